// Package store opens the backing stores: the document store holding accounts,
// watchlists and rooms, and the Redis instances behind the response cache and the
// rate limiter.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/repository/memory"
	"github.com/kaminari-anilist/kaminari/pkg/store/mongodb"
	"github.com/kaminari-anilist/kaminari/pkg/store/redis"
)

// Adapter is a connected store. The health probes ping it and shutdown closes it.
type Adapter interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

// NewDocumentStore selects and connects the document store named by cfg.Type.
// The result is a *mongodb.Adapter or a *memory.Store.
func NewDocumentStore(ctx context.Context, cfg config.DatabaseConfig, appName string, log logger.Logger) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "mongodb":
		return mongodb.NewAdapter(ctx, mongodb.Config{
			URL:              cfg.URL,
			Database:         cfg.DatabaseName,
			AppName:          appName,
			ConnectTimeout:   cfg.ConnectTimeout,
			OperationTimeout: cfg.OperationTimeout,
			MaxPoolSize:      cfg.MaxPoolSize,
		}, log)
	case "memory":
		log.Warn("using the in-memory document store; data is lost on restart")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database.type %q (supported: mongodb, memory)", cfg.Type)
	}
}

// NewRedisAdapter connects the Redis instance described by cfg.
func NewRedisAdapter(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*redis.Adapter, error) {
	return redis.NewAdapter(ctx, redis.Config{
		URL:              cfg.URL,
		MaxConns:         cfg.MaxConns,
		OperationTimeout: cfg.OperationTimeout,
		KeyPrefix:        cfg.Prefix,
	}, log)
}
