// Package ratelimit guards the credential endpoints against brute force.
// The Redis limiter shares its counters across instances; the in-memory
// limiter in http/middlewares remains the fallback for single-node runs.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
	}
}

// Allow implements a fixed window: INCR the key and set its expiry on
// first hit. Returns the seconds to wait when the caller is over limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error) {
	pipe := l.rdb.TxPipeline()

	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)

	_, err = pipe.Exec(ctx)

	if err != nil {
		return false, 0, err
	}

	if incr.Val() <= int64(l.limit) {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()

	if err != nil || ttl < 0 {
		ttl = l.window
	}

	return false, ttl, nil
}
