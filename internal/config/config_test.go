package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
app:
  name: test
database:
  host: localhost
  port: 3306
  user: u
  password: p
  name: d
  charset: utf8mb4
  parse_time: true
  loc: UTC
redis:
  host: localhost
  port: 6379
sheets:
  base_url: https://sheets.example.com/v4
  timeout: 60s
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Sync.TokenExpiryBuffer)
	assert.Equal(t, 3, cfg.Sync.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, "session:", cfg.Redis.SessionPrefix)

	assert.Equal(t, "u:p@tcp(localhost:3306)/d?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DatabaseDSN())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
