// Package cache provides the recommendation cache adapter.
// Clean Architecture: Adapter implementing ports.RecommendationCache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

const keyPrefix = "supportdesk:"

// RedisCache implements ports.RecommendationCache with JSON values and TTLs.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// NewRedisCacheFromURL parses a redis:// URL and checks the connection.
func NewRedisCacheFromURL(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisCache{rdb: rdb}, nil
}

// Get returns ok=false on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*entities.CachedRecommendation, bool, error) {
	data, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load recommendations: %w", err)
	}

	var entry entities.CachedRecommendation
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}
	return &entry, true, nil
}

// Set stores a result for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, entry entities.CachedRecommendation, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save recommendations: %w", err)
	}
	return nil
}

// Ping reports whether redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
