package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/rentiful")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3002", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.SlowQueryThreshold)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocoder.BaseURL)
	assert.Equal(t, time.Second, cfg.Geocoder.MinInterval)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, 5*time.Minute, cfg.SearchCache.TTL)
	assert.Equal(t, "@every 1h", cfg.BatchProcessing.Schedule)
	assert.Equal(t, 3, cfg.BatchProcessing.MaxRetries)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/rentiful")
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://rentiful.app")
	t.Setenv("SEARCH_CACHE_TTL", "30s")
	t.Setenv("BATCH_MAX_RETRIES", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://rentiful.app"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.SearchCache.TTL)
	assert.Equal(t, 5, cfg.BatchProcessing.MaxRetries)
}

func TestLoadConfig_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestGetCityByName(t *testing.T) {
	city := GetCityByName("Los Angeles")
	require.NotNil(t, city)
	assert.Equal(t, "CA", city.State)
	assert.InDelta(t, -118.24, city.Center[0], 0.01)

	assert.Nil(t, GetCityByName("Atlantis"))
	assert.Len(t, GetCityNames(), len(SeedCities))
}
