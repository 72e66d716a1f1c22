package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketdata-service/internal/application"

	"github.com/redis/go-redis/v9"
)

// Cache keeps pipeline payloads as plain JSON strings under their cache key.
type Cache struct {
	Client *redis.Client
}

var _ application.Cache = (*Cache)(nil)

func NewCache(client *redis.Client) *Cache {
	return &Cache{Client: client}
}

// Get treats a missing key, an empty value and a value that is not JSON as a miss.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	b, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get %s: %w", key, err)
	}
	if len(b) == 0 || !json.Valid(b) {
		return nil, false, nil
	}
	return json.RawMessage(b), true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	if err := c.Client.Set(ctx, key, []byte(value), ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// NoopCache always misses; selected with CACHE_BACKEND=none.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (json.RawMessage, bool, error) { return nil, false, nil }

func (NoopCache) Set(context.Context, string, json.RawMessage, time.Duration) error { return nil }
