package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.True(t, cfg.EnforceAddressOwnership)
	assert.Equal(t, "storefront_db", cfg.PostgresDB)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.UserServiceTimeout)
	assert.Empty(t, cfg.JWTSecret)
	assert.True(t, cfg.RedisEnabled)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ENFORCE_ADDRESS_OWNERSHIP", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("IDEMPOTENCY_TTL", "30m")
	t.Setenv("CB_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com,https://admin.example.com")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.False(t, cfg.EnforceAddressOwnership)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, 5*time.Second, cfg.CBTimeout)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"port too high", "STOREFRONT_HTTP_PORT", "70000", "invalid HTTP port"},
		{"port zero", "STOREFRONT_HTTP_PORT", "0", "invalid HTTP port"},
		{"unknown driver", "STORE_DRIVER", "sqlite", "invalid STORE_DRIVER"},
		{"negative ttl", "IDEMPOTENCY_TTL", "-1m", "IDEMPOTENCY_TTL must be positive"},
		{"sample rate", "OTEL_SAMPLE_RATE", "1.5", "OTEL_SAMPLE_RATE"},
		{"zero burst", "RATE_LIMIT_BURST", "0", "RATE_LIMIT_BURST"},
		{"failure ratio", "CB_FAILURE_RATIO", "0", "CB_FAILURE_RATIO"},
		{"not a number", "STOREFRONT_HTTP_PORT", "abc", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
