package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/cartsync/internal/domain"
)

const keyPrefix = "cart:session:"

// CartCache implements cache.CartCache using Redis. Each session's cart is
// one JSON document under a fixed key with the configured TTL.
type CartCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Redis-backed cart cache.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CartCache {
	return &CartCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

type cachedCart struct {
	Items     []domain.LineItem `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Load returns the session's last persisted cart. A missing key or a value
// that fails to parse both load as an empty cart.
func (c *CartCache) Load(ctx context.Context, sessionID string) (domain.Cart, error) {
	data, err := c.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, fmt.Errorf("redis get cart: %w", err)
	}

	var stored cachedCart
	if err := json.Unmarshal(data, &stored); err != nil {
		// Corrupt entry is a cache miss, never an error to the consumer.
		c.logger.WarnContext(ctx, "discarding corrupt cached cart",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return domain.Cart{}, nil
	}

	return domain.Cart{
		Items:     stored.Items,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

// Save overwrites the session's snapshot with the configured TTL.
func (c *CartCache) Save(ctx context.Context, sessionID string, snap domain.Snapshot) error {
	data, err := json.Marshal(cachedCart{
		Items:     snap.Items,
		UpdatedAt: snap.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+sessionID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// Delete removes the session's snapshot.
func (c *CartCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
