package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/authwatch/authwatch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	require.NoError(t, config.Load(t.TempDir()))

	cfg := config.GetConfig()
	assert.Equal(t, 8087, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "24h", cfg.Storage.ProfileTTL)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 80.0, cfg.Engine.RiskThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Engine.LockDuration)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
  secret_key: test-secret
storage:
  backend: redis
  profile_ttl: 48h
redis:
  host: redis.internal
  port: 6380
engine:
  risk_threshold: 70
  lock_duration: 30m
metrics:
  enabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	require.NoError(t, config.Load(dir))

	cfg := config.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test-secret", cfg.Server.SecretKey)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "48h", cfg.Storage.ProfileTTL)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.True(t, cfg.Metrics.Enabled)

	assert.Equal(t, 70.0, cfg.Engine.RiskThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Engine.LockDuration)
	// Keys absent from the file keep the engine defaults.
	assert.Equal(t, 3, cfg.Engine.FailedLoginThreshold)
}

func TestLoad_InvalidEngineTuning(t *testing.T) {
	dir := t.TempDir()
	yaml := `
engine:
  warning_threshold: 95
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	assert.Error(t, config.Load(dir))
}
