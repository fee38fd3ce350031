// Package mongodb manages the MongoDB client shared by every repository.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
)

// ErrClosed is returned by every call made after Close.
var ErrClosed = errors.New("mongodb adapter is closed")

const (
	defaultConnectTimeout   = 10 * time.Second
	defaultOperationTimeout = 5 * time.Second
	pingTimeout             = 2 * time.Second
	disconnectTimeout       = 5 * time.Second
)

type Config struct {
	URL      string
	Database string
	AppName  string
	// ConnectTimeout bounds the initial connect and ping.
	ConnectTimeout time.Duration
	// OperationTimeout bounds a repository call that carries no deadline.
	OperationTimeout time.Duration
	MaxPoolSize      uint64
}

func (c *Config) setDefaults() error {
	switch {
	case c.URL == "":
		return errors.New("mongodb URL is required")
	case c.Database == "":
		return errors.New("mongodb database is required")
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = defaultOperationTimeout
	}
	return nil
}

// Adapter owns one mongo.Client bound to the service database.
type Adapter struct {
	client  *mongo.Client
	db      *mongo.Database
	log     logger.Logger
	timeout time.Duration
	closed  atomic.Bool
}

// NewAdapter connects and pings the primary. Collections are provisioned by the
// repositories through EnsureCollection.
func NewAdapter(ctx context.Context, cfg Config, log logger.Logger) (*Adapter, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	opts := options.Client().
		ApplyURI(cfg.URL).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("connected to mongodb", "database", cfg.Database, "app_name", cfg.AppName)
	return &Adapter{
		client:  client,
		db:      client.Database(cfg.Database),
		log:     log,
		timeout: cfg.OperationTimeout,
	}, nil
}

func (a *Adapter) Collection(name string) *mongo.Collection {
	return a.db.Collection(name)
}

// HealthCheck pings the primary within two seconds.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if a.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.client.Ping(ctx, readpref.Primary()); err != nil {
		a.log.Error("mongodb ping failed", "error", err)
		return fmt.Errorf("ping mongodb: %w", err)
	}
	return nil
}

// Close disconnects once. Later calls return nil.
func (a *Adapter) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

// EnsureCollection creates name when it is missing and reports whether it did. A
// collection created concurrently by another instance counts as existing.
func (a *Adapter) EnsureCollection(ctx context.Context, name string) (bool, error) {
	if a.closed.Load() {
		return false, ErrClosed
	}
	ctx, cancel := a.OperationContext(ctx)
	defer cancel()

	names, err := a.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	if len(names) > 0 {
		return false, nil
	}
	if err := a.db.CreateCollection(ctx, name); err != nil {
		if cmdErr := (mongo.CommandError{}); errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
			return false, nil
		}
		return false, fmt.Errorf("create collection %s: %w", name, err)
	}
	a.log.Info("created mongodb collection", "collection", name)
	return true, nil
}

// WithTransaction runs fn in a session transaction. Operations inside fn must use
// the context it is given. Transactions need a replica set or a sharded cluster.
func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.closed.Load() {
		return ErrClosed
	}
	session, err := a.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// OperationContext applies the operation timeout unless ctx already has a deadline.
func (a *Adapter) OperationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}
