package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds the whole application configuration, populated from environment variables.
type Config struct {
	App     AppConfig
	Redis   RedisConfig
	JWT     JWTConfig
	MinIO   MinIOConfig
	Gallery GalleryConfig
	Worker  WorkerConfig
	CORS    CORSConfig
	Seed    SeedConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string
	InstanceID  string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
	// Pub/sub channel used to relay change events between API instances.
	EventsChannel string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  int // minutes
	RefreshTokenExpiry int // hours
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GalleryConfig struct {
	MaxUploadBytes   int64
	DefaultPageLimit int
	MaxPageLimit     int
	CacheTTL         time.Duration
}

type WorkerConfig struct {
	Concurrency       int
	OrphanSweepCron   string
	OrphanGracePeriod time.Duration
	ReleaseMaxRetry   int
	HealthAddr        string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Gallery API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			InstanceID:  getEnv("INSTANCE_ID", hostnameOr("gallery-api")),
		},
		Redis: RedisConfig{
			Host:          getEnv("REDIS_HOST", "localhost:6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			EventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "gallery:changes"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTokenExpiry:  getEnvInt("JWT_ACCESS_EXPIRY", 60),
			RefreshTokenExpiry: getEnvInt("JWT_REFRESH_EXPIRY", 72),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "gallery"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Gallery: GalleryConfig{
			MaxUploadBytes:   int64(getEnvInt("GALLERY_MAX_UPLOAD_MB", 20)) << 20,
			DefaultPageLimit: getEnvInt("GALLERY_DEFAULT_LIMIT", 100),
			MaxPageLimit:     getEnvInt("GALLERY_MAX_LIMIT", 500),
			CacheTTL:         getEnvDuration("GALLERY_CACHE_TTL", 2*time.Minute),
		},
		Worker: WorkerConfig{
			Concurrency:       getEnvInt("WORKER_CONCURRENCY", 5),
			OrphanSweepCron:   getEnv("ORPHAN_SWEEP_CRON", "0 * * * *"),
			OrphanGracePeriod: getEnvDuration("ORPHAN_GRACE_PERIOD", time.Hour),
			ReleaseMaxRetry:   getEnvInt("RELEASE_MAX_RETRY", 5),
			HealthAddr:        getEnv("WORKER_HEALTH_ADDR", ":9999"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@gallery.local"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.Gallery.DefaultPageLimit <= 0 || c.Gallery.MaxPageLimit <= 0 {
		return fmt.Errorf("page limits must be positive")
	}
	if c.Gallery.DefaultPageLimit > c.Gallery.MaxPageLimit {
		return fmt.Errorf("GALLERY_DEFAULT_LIMIT (%d) exceeds GALLERY_MAX_LIMIT (%d)",
			c.Gallery.DefaultPageLimit, c.Gallery.MaxPageLimit)
	}
	if c.Gallery.MaxUploadBytes <= 0 {
		return fmt.Errorf("GALLERY_MAX_UPLOAD_MB must be positive")
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hostnameOr(fallback string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return fallback
}
