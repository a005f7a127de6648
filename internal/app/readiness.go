package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextstep-labs/nextstep/internal/adapter/repo/redischat"
)

// DBCheck returns a readiness probe over the connection pool.
func DBCheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db pool not configured")
		}
		return pool.Ping(ctx)
	}
}

// RedisCheck returns a readiness probe over the chat context cache. A nil
// cache reports ready: caching is optional.
func RedisCheck(cache *redischat.Cache) func(context.Context) error {
	return func(ctx context.Context) error {
		if cache == nil {
			return nil
		}
		return cache.Ping(ctx)
	}
}
