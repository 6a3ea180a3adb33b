package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"gallery-backend/internal/infrastructure/database"
	"gallery-backend/internal/shared/metrics"
	"gallery-backend/pkg/container"
	"gallery-backend/pkg/logger"
)

func Serve() {
	// ========================================
	// 1. BUILD DI CONTAINER
	// ========================================
	appContainer, err := container.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer appContainer.Cleanup()

	cfg := appContainer.Config
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ========================================
	// 2. BACKGROUND LOOPS
	// ========================================
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go appContainer.Hub.Run(ctx)

	go func() {
		if err := appContainer.Relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Warn().Err(err).Msg("change relay stopped, events stay local to this instance")
		}
	}()

	go appContainer.DB.MonitorPoolHealth(ctx, 30*time.Second, func(s *database.PoolStats) {
		metrics.SetDBPool(s.AcquiredConns, s.IdleConns, s.AvgAcquire())
	})

	// ========================================
	// 3. CONFIGURE HTTP SERVER
	// ========================================
	router := SetupRouter(appContainer)

	port := cfg.App.Port
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// uploads and image downloads are larger than JSON bodies
		ReadTimeout:    2 * time.Minute,
		WriteTimeout:   2 * time.Minute,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// ========================================
	// 4. START SERVER (NON-BLOCKING)
	// ========================================
	go func() {
		zlog.Info().
			Str("port", port).
			Str("environment", cfg.App.Environment).
			Str("instance", cfg.App.InstanceID).
			Msg("gallery API listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// ========================================
	// 5. GRACEFUL SHUTDOWN
	// ========================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("server forced to shutdown")
	}
	stop()

	zlog.Info().Msg("server exited gracefully")
}
