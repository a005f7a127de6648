// Package redischat caches rendered chat profile context in Redis.
package redischat

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// Cache stores the per-user profile summary that seeds chat prompts, with a
// TTL so stale assessment data ages out.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a Cache from a Redis URL.
func New(url string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=redischat.New: %w", err)
	}
	return &Cache{client: redis.NewClient(opt), ttl: ttl}, nil
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(c *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: c, ttl: ttl}
}

func key(userID string) string { return "chat:profile:" + userID }

// Get returns the cached profile and whether it was present.
func (c *Cache) Get(ctx domain.Context, userID string) (string, bool, error) {
	v, err := c.client.Get(ctx, key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("op=redischat.Get: %w", err)
	}
	return v, true, nil
}

// Set stores the profile under the cache TTL.
func (c *Cache) Set(ctx domain.Context, userID, profile string) error {
	if err := c.client.Set(ctx, key(userID), profile, c.ttl).Err(); err != nil {
		return fmt.Errorf("op=redischat.Set: %w", err)
	}
	return nil
}

// Invalidate drops the cached profile; called after new submissions so the
// next chat turn sees fresh assessment state.
func (c *Cache) Invalidate(ctx domain.Context, userID string) error {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("op=redischat.Invalidate: %w", err)
	}
	return nil
}

// Ping reports cache reachability for readiness probes.
func (c *Cache) Ping(ctx domain.Context) error {
	return c.client.Ping(ctx).Err()
}
