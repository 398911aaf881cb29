// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
app:
  name: jobboard-backend
  environment: test
database:
  postgres:
    host: localhost
    port: 5432
    database: jobboard
    user: jobboard
  redis:
    address: localhost:6379
`

// ==========================
// Loading Tests
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	cfg, err := LoadFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15000, cfg.Server.ReadTimeout)
	assert.Equal(t, 10000, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 25, cfg.Database.Postgres.MaxConnections)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 300, cfg.Cache.TTL)
	assert.Equal(t, "jobboard", cfg.Cache.KeyPrefix)
	assert.Equal(t, 600000, cfg.Sweeper.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_ExplicitValuesWin(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
server:
  port: 9090
cache:
  ttl: 60
  key_prefix: staging
`)

	cfg, err := LoadFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Cache.TTL)
	assert.Equal(t, "staging", cfg.Cache.KeyPrefix)
}

// ==========================
// Validation Tests
// ==========================

func TestLoadFromFile_MissingPostgresHost(t *testing.T) {
	path := writeConfigFile(t, `
database:
  postgres:
    database: jobboard
    user: jobboard
  redis:
    address: localhost:6379
`)

	_, err := LoadFromFile(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.postgres.host is required")
}

func TestLoadFromFile_AuthEnabledNeedsKeycloakURL(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
auth:
  enabled: true
`)

	_, err := LoadFromFile(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.keycloak.url is required")
}

// ==========================
// Duration Tests
// ==========================

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 15*time.Second, GetDuration(15000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
	assert.Equal(t, 500*time.Millisecond, GetDuration(500))
}
