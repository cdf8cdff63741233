package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultSettledTTL bounds how long a settled marker is kept. Settlement is permanent,
// the TTL only keeps the keyspace from growing without bound.
const DefaultSettledTTL = 7 * 24 * time.Hour

// RedisSettledCache implements auctions.SettledCache
type RedisSettledCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSettledCache creates a cache with DefaultSettledTTL when ttl is zero
func NewRedisSettledCache(client *redis.Client, ttl time.Duration) *RedisSettledCache {
	if ttl <= 0 {
		ttl = DefaultSettledTTL
	}
	return &RedisSettledCache{client: client, ttl: ttl}
}

func settledKey(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s:settled", auctionID)
}

// IsSettled reports whether the auction has been marked settled
func (c *RedisSettledCache) IsSettled(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	err := c.client.Get(ctx, settledKey(auctionID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read settled marker: %w", err)
	}
	return true, nil
}

// MarkSettled records the auction as settled. Marking twice is harmless.
func (c *RedisSettledCache) MarkSettled(ctx context.Context, auctionID uuid.UUID) error {
	if err := c.client.Set(ctx, settledKey(auctionID), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write settled marker: %w", err)
	}
	return nil
}
