package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "gpt-3.5-turbo", cfg.AI.Model)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout())
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, 6*time.Minute, cfg.RateLimit.GeneralWindow())
	assert.Equal(t, 100, cfg.RateLimit.GeneralMaxRequests)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Sweep.Schedule)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "1000")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "3")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, time.Second, cfg.RateLimit.Window())
	assert.Equal(t, 3, cfg.RateLimit.MaxRequests)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.App.IsProduction())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Config{
		App:       AppConfig{Port: "8080"},
		AI:        AIConfig{TimeoutSeconds: 0},
		RateLimit: RateLimitConfig{WindowMS: 0, MaxRequests: 10, GeneralMaxRequests: 100},
		Auth:      AuthConfig{Enabled: true},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_WINDOW_MS")
	assert.Contains(t, err.Error(), "AI_TIMEOUT_SECONDS")
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}
