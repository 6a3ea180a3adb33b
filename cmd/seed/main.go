// cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"log"
	"time"

	zlog "github.com/rs/zerolog/log"

	"gallery-backend/pkg/container"
	"gallery-backend/pkg/logger"
)

func main() {
	imagesDir := flag.String("images", "", "optional folder of per-collection image folders to import")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall seeding deadline")
	flag.Parse()

	// Building the container applies pending migrations.
	c, err := container.NewContainer()
	if err != nil {
		log.Fatalf("[Container] Failed to initialize: %v", err)
	}
	defer c.Cleanup()

	cfg := c.Config
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)

	seeder := &Seeder{
		users:       c.UserService,
		collections: c.CollectionService,
		lookup:      c.CollectionRepo,
		items:       c.ItemService,
		pageLimit:   cfg.Gallery.MaxPageLimit,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := seeder.Run(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, cfg.Seed.AdminName, *imagesDir)
	if err != nil {
		zlog.Error().Err(err).Msg("seeding failed")
		cancel()
		c.Cleanup()
		log.Fatal("seeding aborted")
	}

	zlog.Info().
		Int("collections_created", report.CollectionsCreated).
		Int("collections_skipped", report.CollectionsSkipped).
		Bool("favorites_created", report.FavoritesCreated).
		Int("items_created", report.ItemsCreated).
		Int("items_skipped", report.ItemsSkipped).
		Int("items_failed", report.ItemsFailed).
		Msg("seeding completed")
}
