package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToml = `
[development]
host = "localhost"
port = 8080
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "workout"
prometheus_metrics_host = "localhost"
prometheus_metrics_port = "2112"

[production]
host = "0.0.0.0"
port = 9000
log_level = "info"
logs_path = "/var/log/workout-backend"
postgres_host = "db"
postgres_port = "5432"
postgres_db_name = "workout"
prometheus_metrics_host = "0.0.0.0"
prometheus_metrics_port = "2112"
sentry_enabled = true
tracing_enabled = true
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testToml), 0o600))

	cfg, err := Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "workout", cfg.PostgresDBName)
	assert.False(t, cfg.SentryEnabled)

	cfg, err = Load("prod", path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.SentryEnabled)
	assert.True(t, cfg.TracingEnabled)

	_, err = Load("staging", path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("dev", "/no/such/config.toml")
	assert.Error(t, err)
}
