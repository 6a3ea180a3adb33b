package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"gallery-backend/internal/config"
	infraCache "gallery-backend/internal/infrastructure/cache"
	"gallery-backend/internal/infrastructure/database"
	"gallery-backend/internal/infrastructure/events"
	"gallery-backend/internal/infrastructure/realtime"
	"gallery-backend/internal/infrastructure/storage"
	"gallery-backend/pkg/cache"
	"gallery-backend/pkg/jwt"

	"gallery-backend/internal/domains/user"
	userHandler "gallery-backend/internal/domains/user/handler"
	userRepo "gallery-backend/internal/domains/user/repository"
	userService "gallery-backend/internal/domains/user/service"

	collectionHandler "gallery-backend/internal/domains/collection/handler"
	collectionRepo "gallery-backend/internal/domains/collection/repository"
	collectionService "gallery-backend/internal/domains/collection/service"

	itemHandler "gallery-backend/internal/domains/item/handler"
	itemRepo "gallery-backend/internal/domains/item/repository"
	itemService "gallery-backend/internal/domains/item/service"

	favoriteHandler "gallery-backend/internal/domains/favorite/handler"
	favoriteService "gallery-backend/internal/domains/favorite/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds every long-lived dependency of a process.
// Build order: config, infrastructure, repositories, services, handlers.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	Redis       *infraCache.RedisClient
	Cache       cache.Cache
	JWTManager  *jwt.Manager
	Store       storage.ObjectStore
	Images      *storage.ImageProcessor
	AsynqClient *asynq.Client
	Bus         *events.Bus
	Relay       *events.RedisRelay
	Hub         *realtime.Hub

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	UserRepo       user.Repository
	CollectionRepo collectionRepo.RepositoryInterface
	ItemRepo       itemRepo.RepositoryInterface

	// ========================================
	// SERVICE LAYER
	// ========================================
	UserService       user.Service
	CollectionService collectionService.ServiceInterface
	ItemService       itemService.ServiceInterface
	FavoriteService   favoriteService.ServiceInterface

	// ========================================
	// HANDLER LAYER
	// ========================================
	UserHandler       *userHandler.UserHandler
	CollectionHandler *collectionHandler.CollectionHandler
	ItemHandler       *itemHandler.ItemHandler
	FavoriteHandler   *favoriteHandler.FavoriteHandler
	RealtimeHandler   *realtime.Handler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer connects every backing service and wires the dependency graph.
// PostgreSQL and MinIO are required; Redis is not: without it the read cache
// falls back to cache.Noop and change events stay on this instance.
func NewContainer() (*Container, error) {
	log.Println("Initializing DI container...")

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("Config loaded (environment: %s)", cfg.App.Environment)

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	c.DB = db
	log.Println("Database connected")

	// ========================================
	// STEP 3: INITIALIZE REDIS, CACHE, QUEUE CLIENT
	// ========================================
	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		log.Printf("Redis connection failed (non-critical, caching disabled): %v", err)
		c.Cache = cache.Noop{}
	} else {
		c.Cache = infraCache.NewRedisCache(c.Redis.Client)
	}

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// ========================================
	// STEP 4: OBJECT STORAGE, AUTH, EVENTS
	// ========================================
	store, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}
	c.Store = store
	c.Images = storage.NewImageProcessor(cfg.Gallery.MaxUploadBytes)
	log.Printf("Object storage ready (bucket: %s)", cfg.MinIO.Bucket)

	c.JWTManager = jwt.NewManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenExpiry)*time.Hour,
	)

	c.Bus = events.NewBus()
	c.Relay = events.NewRedisRelay(c.Redis.Client, cfg.Redis.EventsChannel, cfg.App.InstanceID, c.Bus)
	c.Hub = realtime.NewHub()

	// ========================================
	// STEP 5..7: REPOSITORIES, SERVICES, HANDLERS
	// ========================================
	c.initRepositories()
	c.initServices()
	c.initHandlers()
	c.initSubscribers()

	log.Println("DI container initialized")
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.UserRepo = userRepo.NewPostgresRepository(pool)
	c.CollectionRepo = collectionRepo.NewPostgresRepository(pool)
	c.ItemRepo = itemRepo.NewPostgresRepository(pool)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.UserService = userService.NewUserService(c.UserRepo, c.JWTManager)

	c.CollectionService = collectionService.NewCollectionService(
		c.CollectionRepo,
		c.AsynqClient,
		c.Bus,
		cfg.Gallery,
		cfg.Worker,
	)

	c.ItemService = itemService.NewItemService(
		c.ItemRepo,
		c.CollectionRepo,
		c.Store,
		c.Images,
		c.Cache,
		c.AsynqClient,
		c.Bus,
		cfg.Gallery,
		cfg.Worker,
	)

	c.FavoriteService = favoriteService.NewFavoriteService(c.CollectionRepo, c.ItemService)
}

func (c *Container) initHandlers() {
	c.UserHandler = userHandler.NewUserHandler(c.UserService)
	c.CollectionHandler = collectionHandler.NewCollectionHandler(c.CollectionService)
	c.ItemHandler = itemHandler.NewItemHandler(c.ItemService, c.Config.Gallery.MaxUploadBytes)
	c.FavoriteHandler = favoriteHandler.NewFavoriteHandler(c.FavoriteService)
	c.RealtimeHandler = realtime.NewHandler(c.Hub, c.Config.CORS.AllowedOrigins)
}

// initSubscribers attaches the in-process change consumers.
// The Redis relay subscribes itself when it is started.
func (c *Container) initSubscribers() {
	c.Bus.Subscribe("item-cache", itemService.NewCacheInvalidator(c.Cache).OnChange)
	c.Bus.Subscribe("websocket-hub", c.Hub.OnChange)
}

// Cleanup releases pooled connections. Call it after the server stopped.
func (c *Container) Cleanup() {
	log.Println("Cleaning up container resources...")

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("Failed to close queue client: %v", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("Failed to close Redis: %v", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}

	log.Println("Container cleanup completed")
}
