package shared

import (
	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Actor is the authenticated caller, passed explicitly into every store operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor is the given owner.
func (a Actor) Owns(ownerID uuid.UUID) bool {
	return a.UserID != uuid.Nil && a.UserID == ownerID
}

// Task types
const (
	TypeReleasePayload = "item:release_payload"
	TypeSweepOrphans   = "storage:sweep_orphans"
)

// Queues
const (
	QueueStorage     = "storage"
	QueueMaintenance = "maintenance"
)

// ReleasePayloadPayload lists object keys whose rows are gone.
type ReleasePayloadPayload struct {
	Keys   []string `json:"keys"`
	Reason string   `json:"reason"`
}

// SweepOrphansPayload configures one orphan sweep run.
type SweepOrphansPayload struct {
	Prefix       string `json:"prefix"`
	GraceSeconds int64  `json:"grace_seconds"`
}

// ObjectKeyPrefix is where item payloads live in the bucket.
const ObjectKeyPrefix = "items/"
