package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 100, cfg.Gallery.DefaultPageLimit)
	assert.Equal(t, 500, cfg.Gallery.MaxPageLimit)
	assert.Equal(t, int64(20<<20), cfg.Gallery.MaxUploadBytes)
	assert.Equal(t, 2*time.Minute, cfg.Gallery.CacheTTL)
	assert.Equal(t, "gallery:changes", cfg.Redis.EventsChannel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("GALLERY_MAX_LIMIT", "50")
	t.Setenv("GALLERY_DEFAULT_LIMIT", "10")
	t.Setenv("ORPHAN_GRACE_PERIOD", "30m")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Gallery.MaxPageLimit)
	assert.Equal(t, 10, cfg.Gallery.DefaultPageLimit)
	assert.Equal(t, 30*time.Minute, cfg.Worker.OrphanGracePeriod)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("GALLERY_CACHE_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 2*time.Minute, cfg.Gallery.CacheTTL)
}

func TestValidate(t *testing.T) {
	t.Run("default limit above max", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")
		t.Setenv("GALLERY_DEFAULT_LIMIT", "600")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("production requires jwt secret", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "")

		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("production with secret", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "s3cr3t")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestLoadDatabaseConfig(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_RETRY_DELAY", "250ms")

	cfg, err := LoadDatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)

	t.Setenv("DB_PORT", "abc")
	_, err = LoadDatabaseConfig()
	assert.ErrorContains(t, err, "DB_PORT")
}

func TestLoadDatabaseConfig_PoolBounds(t *testing.T) {
	t.Setenv("DB_MIN_CONNECTIONS", "30")
	t.Setenv("DB_MAX_CONNECTIONS", "10")

	_, err := LoadDatabaseConfig()
	assert.ErrorContains(t, err, "DB_MIN_CONNECTIONS")
}
