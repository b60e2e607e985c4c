package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/cartsync/pkg/config"
)

// Config holds all configuration for the cart sync service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CARTSYNC_HTTP_PORT" envDefault:"8004"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cached cart TTL in hours (default: 7 days)
	CacheTTLHours int `env:"CART_CACHE_TTL_HOURS" envDefault:"168"`

	// Idle session stores are evicted after this many minutes.
	SessionIdleMinutes int `env:"SESSION_IDLE_MINUTES" envDefault:"30"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Firestore remote store. Empty project id disables the remote tier,
	// leaving carts session-local.
	FirestoreProjectID       string `env:"FIRESTORE_PROJECT_ID" envDefault:""`
	FirestoreCredentialsFile string `env:"FIRESTORE_CREDENTIALS_FILE" envDefault:""`
	CartsCollection          string `env:"CARTS_COLLECTION" envDefault:"carts"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cartsync config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CacheTTLHours < 1 {
		return fmt.Errorf("invalid cache TTL: %d hours", c.CacheTTLHours)
	}
	if c.SessionIdleMinutes < 1 {
		return fmt.Errorf("invalid session idle timeout: %d minutes", c.SessionIdleMinutes)
	}
	return nil
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// SessionIdleTTL returns the idle session eviction window as a duration.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// RemoteEnabled reports whether the Firestore remote tier is configured.
func (c *Config) RemoteEnabled() bool {
	return c.FirestoreProjectID != ""
}
