// Package ratelimit implements the optional login throttle.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classpulse-systems/classpulse/internal/metrics"
)

// Limiter answers whether another attempt is allowed for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

type redisLimiter struct {
	client   *redis.Client
	limit    int64
	window   time.Duration
	disabled bool
}

// NewRedisLimiter builds a sliding-window limiter over Redis. With
// disabled=true every attempt is allowed and no connection is made.
func NewRedisLimiter(redisURL string, limit int, window time.Duration, disabled bool) (Limiter, error) {
	if disabled {
		return &redisLimiter{disabled: true}, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}, nil
}

// NewLimiterWithClient wraps an existing client; used by tests.
func NewLimiterWithClient(client *redis.Client, limit int, window time.Duration) Limiter {
	return &redisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}
}

// Allow implements sliding-window limiting with an atomic Lua script.
func (r *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.disabled {
		return true, nil
	}

	now := time.Now().UnixNano()
	windowStart := now - r.window.Nanoseconds()

	script := `
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local limit = tonumber(ARGV[3])

		redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

		local current = redis.call('ZCARD', key)

		if current < limit then
			redis.call('ZADD', key, now, now)
			redis.call('EXPIRE', key, 900)
			return 1
		else
			return 0
		end
	`

	result, err := r.client.Eval(ctx, script, []string{"login_throttle:" + key}, now, windowStart, r.limit).Int()
	if err != nil {
		return false, fmt.Errorf("throttle check failed: %w", err)
	}

	allowed := result == 1
	if !allowed {
		metrics.ThrottleHits.Inc()
	}

	return allowed, nil
}

func (r *redisLimiter) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
