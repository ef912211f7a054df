// Package rediscache is an optional distributed cache sitting in front
// of internal/httpapi's predict endpoint: a repeated request with the
// same race_id and an identical body within the TTL window is served
// from Redis instead of
// re-running the factor/combiner/model pipeline. Grounded on
// stitts-dev-dfs-sim's backend/internal/services/cache.go
// (NewCacheService, JSON marshal/unmarshal around go-redis, redis.Nil
// as the miss sentinel).
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with JSON marshal/unmarshal and a single
// default TTL; every key is namespaced under "racecast:" to avoid
// collisions with any other tenant of the same Redis instance.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a Cache. client is expected to already be configured
// (address, pool size, timeouts) by the caller.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

const keyPrefix = "racecast:"

// Get unmarshals the cached value for key into dest, reporting whether
// the key was present. A miss (key absent, or a transport error) is not
// itself an error the caller must handle specially — it just means
// "compute it fresh" — but a transport error is still returned so
// callers can log it.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("rediscache: get: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("rediscache: unmarshal: %w", err)
	}
	return true, nil
}

// Set marshals value as JSON and stores it under key with the cache's
// default TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("rediscache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: set: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
