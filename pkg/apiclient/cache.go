package apiclient

import (
	"context"
	"errors"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/observability/tracing"
	"github.com/kaminari-anilist/kaminari/pkg/store/redis"
	"github.com/samber/mo"
)

// Cache stores raw response bodies of read-only calls. Implementations never fail the
// call: a broken cache behaves like an empty one.
type Cache interface {
	Get(ctx context.Context, key string) mo.Option[[]byte]
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) mo.Option[[]byte]      { return mo.None[[]byte]() }
func (NopCache) Set(context.Context, string, []byte, time.Duration) {}

// KV is the subset of the Redis adapter RedisCache needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache keeps bodies in Redis.
type RedisCache struct {
	kv  KV
	log logger.Logger
}

// NewRedisCache wraps kv, normally a *redis.Adapter.
func NewRedisCache(kv KV, log logger.Logger) *RedisCache {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisCache{kv: kv, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) mo.Option[[]byte] {
	ctx, span := tracing.StartCacheSpan(ctx, tracing.OpCacheGet, "redis", key)
	defer span.End()

	body, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, redis.ErrNotFound):
		tracing.RecordHit(span, false)
		return mo.None[[]byte]()
	case err != nil:
		tracing.RecordError(span, err)
		c.log.WithContext(ctx).Warn("response cache read failed", "key", key, "error", err)
		return mo.None[[]byte]()
	}
	tracing.RecordHit(span, true)
	return mo.Some(body)
}

func (c *RedisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	ctx, span := tracing.StartCacheSpan(ctx, tracing.OpCacheSet, "redis", key)
	defer span.End()

	if err := c.kv.SetWithTTL(ctx, key, body, ttl); err != nil {
		tracing.RecordError(span, err)
		c.log.WithContext(ctx).Warn("response cache write failed", "key", key, "error", err)
	}
}
