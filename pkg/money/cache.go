package money

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisRateCache stores the rate table as JSON under a single key.
type RedisRateCache struct {
	store kvStore
	key   string
}

// NewRedisRateCache builds a cache backed by the redis client.
func NewRedisRateCache(store kvStore, key string) (*RedisRateCache, error) {
	if store == nil {
		return nil, errors.New("redis store required for rate cache")
	}
	if key == "" {
		return nil, errors.New("rate cache key is required")
	}
	return &RedisRateCache{store: store, key: key}, nil
}

// Load returns the cached table or nil when nothing is stored.
func (c *RedisRateCache) Load(ctx context.Context) (*RateTable, error) {
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rate cache: %w", err)
	}
	var table RateTable
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil, fmt.Errorf("decode rate cache: %w", err)
	}
	return &table, nil
}

// Store writes the table with the provided TTL.
func (c *RedisRateCache) Store(ctx context.Context, table *RateTable, ttl time.Duration) error {
	if table == nil {
		return nil
	}
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode rate cache: %w", err)
	}
	return c.store.Set(ctx, c.key, string(payload), ttl)
}
