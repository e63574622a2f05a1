package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the tests assert defaults for; empty
// values read as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_PORT", "EVENT_LOG_PATH", "JWT_SECRET", "REDIS_ADDRESS", "DATABASE_URL",
		"PROVIDER_REQUEST_TIMEOUT", "RATE_LIMIT_PER_MINUTE", "LOGGING_SINK_ENABLED",
		"LOGGING_SINK_S3_BUCKET", "REQUEST_LOGGER_FILE_PATH_TEMPLATE", "QUEUE_BATCH_SIZE",
		"CARBON_BUDGET_G", "COST_BUDGET_EUR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "ecologits-traces.jsonl", cfg.EventLogPath)
	assert.Empty(t, cfg.JWTSecret)
	assert.False(t, cfg.Redis.Enabled())
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 60*time.Second, cfg.Provider.RequestTimeout)
	assert.Equal(t, 0, cfg.RateLimitPerMinute)
	assert.False(t, cfg.LoggingSink.Enabled)
	assert.Empty(t, cfg.RequestLogger.FilePathTemplate)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("EVENT_LOG_PATH", "/data/traces.jsonl")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("PROVIDER_REQUEST_TIMEOUT", "15s")
	t.Setenv("CARBON_BUDGET_G", "250.5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("LOGGING_SINK_ENABLED", "TRUE")
	t.Setenv("LOGGING_SINK_S3_BUCKET", "usage-archive")
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "/data/traces.jsonl", cfg.EventLogPath)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "or-key", cfg.Provider.OpenRouterAPIKey)
	assert.Equal(t, 15*time.Second, cfg.Provider.RequestTimeout)
	assert.Equal(t, 250.5, cfg.Budget.MonthlyCarbonG)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.True(t, cfg.LoggingSink.Enabled)
	assert.Equal(t, []byte("0123456789abcdef"), cfg.JWTSecret)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUEUE_BATCH_SIZE", "many")
	t.Setenv("PROVIDER_REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Queue.BatchSize)
	assert.Equal(t, 60*time.Second, cfg.Provider.RequestTimeout)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "sink without bucket", env: map[string]string{"LOGGING_SINK_ENABLED": "true"}},
		{name: "negative rate limit", env: map[string]string{"RATE_LIMIT_PER_MINUTE": "-1"}},
		{name: "negative budget", env: map[string]string{"CARBON_BUDGET_G": "-5"}},
		{name: "short jwt secret", env: map[string]string{"JWT_SECRET": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
