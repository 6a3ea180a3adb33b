package main

import (
	"github.com/hibiken/asynq"

	itemJob "gallery-backend/internal/domains/item/job"
	"gallery-backend/internal/shared"
	"gallery-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Storage handlers
	releasePayload *itemJob.ReleasePayloadHandler

	// Maintenance handlers
	sweepOrphans *itemJob.SweepOrphansHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		releasePayload: itemJob.NewReleasePayloadHandler(c.ItemRepo, c.Store),
		sweepOrphans:   itemJob.NewSweepOrphansHandler(c.ItemRepo, c.Store),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeReleasePayload, h.releasePayload.ProcessTask)
	mux.HandleFunc(shared.TypeSweepOrphans, h.sweepOrphans.ProcessTask)
}
