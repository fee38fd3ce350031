// Package redis wraps the go-redis client used for the shared rate limiter and the
// outbound response cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
)

// ErrNotFound is returned by Get for a missing or expired key.
var ErrNotFound = errors.New("redis key not found")

const (
	dialTimeout = 5 * time.Second
	pingTimeout = 2 * time.Second
)

type Config struct {
	URL              string
	MaxConns         int
	OperationTimeout time.Duration
	// KeyPrefix namespaces every key, so the cache and the limiter can share an
	// instance with other services.
	KeyPrefix string
}

func (c Config) options() (*redis.Options, error) {
	if c.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = dialTimeout
	if c.MaxConns > 0 {
		opts.PoolSize = c.MaxConns
	}
	if c.OperationTimeout > 0 {
		opts.ReadTimeout, opts.WriteTimeout = c.OperationTimeout, c.OperationTimeout
	}
	return opts, nil
}

// Adapter is a pooled connection with prefixed keys.
type Adapter struct {
	client *redis.Client
	log    logger.Logger
	prefix string
}

// NewAdapter connects to cfg.URL and pings the server before returning.
func NewAdapter(ctx context.Context, cfg Config, log logger.Logger) (*Adapter, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	log.Info("connected to redis", "addr", opts.Addr, "db", opts.DB, "pool_size", opts.PoolSize)
	return &Adapter{client: client, log: log, prefix: cfg.KeyPrefix}, nil
}

func (a *Adapter) key(k string) string {
	return a.prefix + k
}

// Get returns the stored bytes or ErrNotFound.
func (a *Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := a.client.Get(ctx, a.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// SetWithTTL stores value under key. A zero ttl never expires.
func (a *Adapter) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := a.client.Set(ctx, a.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, a.key(k))
	}
	if err := a.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// IncrWindow counts a hit on key inside a fixed window. The expiry is set by the
// first hit only, so the window does not slide. It returns the hits so far and the
// time until the window resets.
func (a *Adapter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := a.key(key)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	left := ttl.Val()
	if left < 0 {
		left = window
	}
	return incr.Val(), left, nil
}

func (a *Adapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.client.Ping(ctx).Err(); err != nil {
		a.log.Error("redis ping failed", "error", err)
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
