package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://stockpulse:pw@localhost:5432/stockpulse_ts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8089", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "stockpulse", cfg.Mongo.Database)
	assert.Equal(t, 10, cfg.Groww.RequestsPerSecond)
	assert.Equal(t, 300, cfg.Groww.RequestsPerMinute)
	assert.Equal(t, 5, cfg.Groww.Concurrency)
	assert.Equal(t, 5, cfg.Groww.MaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.Pipeline.Interval)
	assert.True(t, cfg.Pipeline.AutoStart)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stockpulse_ts")
	t.Setenv("ENV", "testing")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENV must be one of")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stockpulse_ts")
	t.Setenv("ENV", "production")
	t.Setenv("PIPELINE_INTERVAL", "30m")
	t.Setenv("GROWW_REQS_PER_SEC", "4")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.Interval)
	assert.Equal(t, 4, cfg.Groww.RequestsPerSecond)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_IntervalTooShort(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stockpulse_ts")
	t.Setenv("PIPELINE_INTERVAL", "10s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PIPELINE_INTERVAL")
}
