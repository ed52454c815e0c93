package config_test

import (
	"testing"
	"time"

	"github.com/loyaltyhub/go-auth-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/v1", cfg.BaseURL)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.Equal(t, config.BackendMemory, cfg.StorageBackend)
	require.Equal(t, "auth", cfg.StorageNamespace)
}

func TestLoadTimeoutMillis(t *testing.T) {
	t.Setenv("AUTH_API_TIMEOUT_MS", "2500")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 2500*time.Millisecond, cfg.Timeout)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("AUTH_API_TIMEOUT_MS", "soon")
	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "scratchpad")
	_, err := config.Load()
	require.Error(t, err)
}

func TestRedisBackendRequiresURL(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.BackendRedis, cfg.StorageBackend)
}
