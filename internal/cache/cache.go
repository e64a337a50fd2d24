// Package cache stores read-mostly JSON payloads in Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Keys of cached collections
const (
	KeyFeaturedReels = "courses:featuredreels"
	KeyAds           = "ads:all"
)

// redisCache implements a JSON cache on top of a Redis client
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache whose entries expire after ttl
func NewRedisCache(client *redis.Client, ttl time.Duration) *redisCache {
	return &redisCache{
		client: client,
		ttl:    ttl,
	}
}

// GetJSON decodes the value stored under key into dest.
// Returns false without error when the key is missing.
func (c *redisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}

	return true, nil
}

// SetJSON stores value under key encoded as JSON
func (c *redisCache) SetJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s for cache: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}

	return nil
}

// Delete removes keys from the cache
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// noopCache never stores anything; used when Redis is not configured
type noopCache struct{}

// NewNoopCache creates a cache that always misses
func NewNoopCache() noopCache {
	return noopCache{}
}

func (noopCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) { return false, nil }

func (noopCache) SetJSON(ctx context.Context, key string, value any) error { return nil }

func (noopCache) Delete(ctx context.Context, keys ...string) error { return nil }
