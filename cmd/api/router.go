package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/infrastructure/queue"
	"gallery-backend/internal/shared/middleware"
	"gallery-backend/internal/shared/response"
	"gallery-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(c.Config.CORS.AllowedOrigins),
		middleware.Metrics(),
	)

	router.GET("/health", healthCheckHandler(c))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		setupAuthRoutes(v1, c)
		setupUserRoutes(v1, c)
		setupCollectionRoutes(v1, c)
		setupItemRoutes(v1, c)
		setupAdminRoutes(v1, c)

		v1.GET("/ws/changes", middleware.WebSocketAuthMiddleware(c.JWTManager), c.RealtimeHandler.ServeWS)
	}

	return router
}

// ========================================
// AUTH ROUTES
// ========================================
func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.UserHandler.Register)
		auth.POST("/login", c.UserHandler.Login)
		auth.POST("/refresh", c.UserHandler.RefreshToken)
	}
}

// ========================================
// USER ROUTES
// ========================================
func setupUserRoutes(v1 *gin.RouterGroup, c *container.Container) {
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		users.GET("/me", c.UserHandler.GetProfile)
	}
}

// ========================================
// COLLECTION ROUTES
// ========================================
func setupCollectionRoutes(v1 *gin.RouterGroup, c *container.Container) {
	collections := v1.Group("/collections")
	collections.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		collections.POST("", c.CollectionHandler.Create)
		collections.GET("", c.CollectionHandler.List)

		// static segment before /:id
		collections.POST("/favorites", c.CollectionHandler.EnsureFavorites)
		collections.GET("/favorites", c.FavoriteHandler.GetFavoritesCollection)

		collections.GET("/:id", c.CollectionHandler.Get)
		collections.PUT("/:id", c.CollectionHandler.Update)
		collections.DELETE("/:id", c.CollectionHandler.Delete)
		collections.GET("/:id/export", c.CollectionHandler.Export)
	}
}

// ========================================
// ITEM ROUTES
// ========================================
func setupItemRoutes(v1 *gin.RouterGroup, c *container.Container) {
	items := v1.Group("/items")
	items.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		items.GET("", c.ItemHandler.List)
		items.POST("/upload", c.ItemHandler.Upload)

		items.GET("/:id", c.ItemHandler.Get)
		items.PUT("/:id", c.ItemHandler.Update)
		items.PATCH("/:id", c.ItemHandler.PatchMetadata)
		items.DELETE("/:id", c.ItemHandler.Delete)
		items.GET("/:id/image", c.ItemHandler.Image)
		items.GET("/:id/related", c.ItemHandler.Related)

		items.GET("/:id/favorite", c.FavoriteHandler.Status)
		items.POST("/:id/favorite", c.FavoriteHandler.Toggle)
	}
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	{
		admin.POST("/maintenance/sweep-orphans", sweepOrphansHandler(c))
	}
}

// sweepOrphansHandler queues an orphan sweep without waiting for the cron.
func sweepOrphansHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := queue.EnqueueSweepOrphans(c.Request.Context(), appCtx.AsynqClient, appCtx.Config.Worker.OrphanGracePeriod)
		if err != nil {
			log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("failed to enqueue orphan sweep")
			response.Error(c, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "Task queue is unavailable")
			return
		}

		response.Success(c, http.StatusAccepted, "Orphan sweep queued", gin.H{"task_id": id})
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"instance":  appCtx.Config.App.InstanceID,
		}

		// Check database
		dbStatus := "ok"
		if appCtx.DB == nil || appCtx.DB.Pool == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.DB.Ping(ctx); err != nil {
				dbStatus = fmt.Sprintf("error: %v", err)
				health["status"] = "degraded"
			}
		}

		// Check redis; the API keeps serving without it
		cacheStatus := "ok"
		if appCtx.Cache == nil {
			cacheStatus = "disconnected"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.Cache.Ping(ctx); err != nil {
				cacheStatus = fmt.Sprintf("error: %v", err)
			}
		}

		health["services"] = gin.H{
			"database":  dbStatus,
			"cache":     cacheStatus,
			"ws_client": appCtx.Hub.ClientCount(),
		}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, health)
	}
}
