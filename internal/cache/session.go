// Package cache provides a Redis read-through cache for session lookups.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionPrefix is the Redis key prefix for session → user id entries.
const sessionPrefix = "session:"

// SessionCache stores session token → user id mappings with a TTL.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*SessionCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

// Get returns the cached user id. A miss is reported with ok=false and a nil
// error.
func (c *SessionCache) Get(ctx context.Context, sessionID string) (string, bool, error) {
	userID, err := c.client.Get(ctx, sessionPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached session: %w", err)
	}
	return userID, true, nil
}

// Set caches the mapping. A positive ttl shorter than the cache's own TTL
// wins, so entries never outlive the session they point at.
func (c *SessionCache) Set(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, sessionPrefix+sessionID, userID, EntryTTL(c.ttl, ttl)).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

// Delete evicts the mapping. Missing keys are not an error.
func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, sessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to evict cached session: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (c *SessionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *SessionCache) Close() error {
	return c.client.Close()
}

// EntryTTL picks the lifetime for a cache entry: the smaller positive value of
// the cache default and the session's remaining lifetime.
func EntryTTL(def, remaining time.Duration) time.Duration {
	if remaining > 0 && (def <= 0 || remaining < def) {
		return remaining
	}
	return def
}
