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
	assert.Equal(t, 8004, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 168, cfg.CacheTTLHours)
	assert.Equal(t, 30, cfg.SessionIdleMinutes)
	assert.Equal(t, "carts", cfg.CartsCollection)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("CARTSYNC_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	t.Setenv("CART_CACHE_TTL_HOURS", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cache TTL")
}

func TestLoad_InvalidIdleTimeout(t *testing.T) {
	t.Setenv("SESSION_IDLE_MINUTES", "-5")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session idle timeout")
}

func TestLoad_CustomRedisAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.prod:6380")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "redis.prod:6380", cfg.RedisAddr)
}

func TestLoad_KafkaBrokerList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_RemoteEnabled(t *testing.T) {
	t.Setenv("FIRESTORE_PROJECT_ID", "storefront-prod")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.RemoteEnabled())
}

func TestDurationAccessors(t *testing.T) {
	t.Setenv("CART_CACHE_TTL_HOURS", "24")
	t.Setenv("SESSION_IDLE_MINUTES", "15")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 15*time.Minute, cfg.SessionIdleTTL())
}
