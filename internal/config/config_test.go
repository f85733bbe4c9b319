package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigToml = `
[development]
host = "localhost"
port = 8080
log_level = "trace"
logs_path = ""
log_to_stdout = true
sentry_enabled = false
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "trainingkarte_db"
postgres_user = "postgres"
redis_host = "localhost"
redis_port = "6379"
prometheus_metrics_host = "localhost"
prometheus_metrics_port = "2112"
login_rate_limit_allowed_per_min = 15
feedback_rate_limit_allowed_per_min = 60

[production]
host = "localhost"
port = 9000
log_level = "debug"
logs_path = "/var/log/trainingkarte/service.log"
log_to_stdout = false
sentry_enabled = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "trainingkarte_db"
postgres_user = "postgres"
redis_host = "localhost"
redis_port = "6379"
prometheus_metrics_host = "localhost"
prometheus_metrics_port = "2112"
login_rate_limit_allowed_per_min = 15
feedback_rate_limit_allowed_per_min = 60
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigToml), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.True(t, cfg.LogToStdout)
	assert.Equal(t, "trainingkarte_db", cfg.PostgresDBName)
	assert.Equal(t, 15, cfg.LoginRateLimitAllowedPerMin)
	assert.Equal(t, 60, cfg.FeedbackRateLimitAllowedPerMin)

	// short env names work too
	cfg, err = Load("prod", path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.SentryEnabled)
}

func TestLoad_unknownEnv(t *testing.T) {
	path := writeTestConfig(t)

	_, err := Load("staging", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown env")
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load("development", "/nonexistent/config.toml")
	require.Error(t, err)
}
