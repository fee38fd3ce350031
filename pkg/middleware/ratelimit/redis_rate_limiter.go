package ratelimit

import (
	"context"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
)

// WindowCounter counts hits per key in fixed windows. *redis.Adapter implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisRateLimiter shares a fixed-window counter between replicas. Each key may make
// requestsPerSecond*window + burst requests per window.
type RedisRateLimiter struct {
	counter   WindowCounter
	limit     int64
	window    time.Duration
	opTimeout time.Duration
	log       logger.Logger
}

func NewRedisRateLimiter(counter WindowCounter, requestsPerSecond float64, burst int, window, opTimeout time.Duration, log logger.Logger) *RedisRateLimiter {
	if window <= 0 {
		window = time.Second
	}
	if opTimeout <= 0 {
		opTimeout = 500 * time.Millisecond
	}
	if log == nil {
		log = logger.NewNop()
	}
	limit := int64(requestsPerSecond*window.Seconds()) + int64(burst)
	if limit < 1 {
		limit = 1
	}
	return &RedisRateLimiter{counter: counter, limit: limit, window: window, opTimeout: opTimeout, log: log}
}

// Allow fails open: when Redis cannot be reached the request proceeds.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	count, left, err := r.counter.IncrWindow(ctx, "ratelimit:"+key, r.window)
	if err != nil {
		r.log.WithContext(ctx).Warn("redis rate limiter unavailable, allowing request", "error", err)
		return true, 0
	}
	if count > r.limit {
		return false, left
	}
	return true, 0
}
