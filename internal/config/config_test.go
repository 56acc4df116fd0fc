package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/hashfsm/internal/config"
	"github.com/aretw0/hashfsm/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, config.BackendRedis, cfg.Backend)
	assert.Equal(t, "direct", cfg.Strategy)
	assert.Equal(t, registry.Overwrite, cfg.Policy())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.ConnectionURL)
	assert.Equal(t, 10*time.Second, cfg.Redis.ConnectTimeout)
	assert.False(t, cfg.Redis.ConfigureKeyspace)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HASHFSM_REDIS_URL", "redis://cache:6380/2")
	t.Setenv("HASHFSM_CONFIGURE_KEYSPACE", "true")
	t.Setenv("HASHFSM_CONNECT_TIMEOUT", "3s")
	t.Setenv("HASHFSM_STRATEGY", "cas")
	t.Setenv("HASHFSM_PREFIX_POLICY", "reject")
	t.Setenv("HASHFSM_LOG_LEVEL", "debug")
	t.Setenv("HASHFSM_LOCK_TTL", "5s")
	t.Setenv("HASHFSM_BACKEND", "memory")

	cfg, err := config.Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "redis://cache:6380/2", cfg.Redis.ConnectionURL)
	assert.True(t, cfg.Redis.ConfigureKeyspace)
	assert.Equal(t, 3*time.Second, cfg.Redis.ConnectTimeout)
	assert.Equal(t, "cas", cfg.Strategy)
	assert.Equal(t, registry.Reject, cfg.Policy())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, config.BackendMemory, cfg.Backend)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HASHFSM_HTTP_ADDR=:9191\nHASHFSM_STRATEGY=locked\n"), 0o644))
	// Process variables win over the file.
	t.Setenv("HASHFSM_STRATEGY", "cas")
	t.Cleanup(func() { _ = os.Unsetenv("HASHFSM_HTTP_ADDR") })

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.HTTPAddr)
	assert.Equal(t, "cas", cfg.Strategy)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("HASHFSM_STRATEGY", "optimistic")
	t.Setenv("HASHFSM_PREFIX_POLICY", "merge")

	_, err := config.Load(missingEnvFile(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "optimistic")
	assert.Contains(t, err.Error(), "merge")
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("HASHFSM_LOCK_TTL", "soon")

	_, err := config.Load(missingEnvFile(t))
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}
