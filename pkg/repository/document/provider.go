package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	mongostore "github.com/kaminari-anilist/kaminari/pkg/store/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Provider hands out collection handles bound to one MongoDB database.
type Provider struct {
	adapter *mongostore.Adapter
	log     logger.Logger
}

// NewProvider wraps a connected adapter.
func NewProvider(adapter *mongostore.Adapter, log logger.Logger) (*Provider, error) {
	if adapter == nil {
		return nil, errors.New("mongodb adapter is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Provider{adapter: adapter, log: log}, nil
}

// GetCollection returns the typed handle for name, or for the collection named after T
// when name is empty.
func GetCollection[T repository.Document](p *Provider, name string) *Collection[T] {
	if name == "" {
		name = repository.CollectionName[T]()
	}
	return newCollection[T](p.adapter.Collection(name), p.adapter.OperationContext)
}

// GetSelectedCollection returns the raw driver handle for name.
func (p *Provider) GetSelectedCollection(name string) *mongo.Collection {
	return p.adapter.Collection(name)
}

// EnsureCollectionExists creates name when missing and then creates indexes.
// Index creation is idempotent for identical definitions.
func (p *Provider) EnsureCollectionExists(ctx context.Context, name string, indexes ...mongo.IndexModel) error {
	created, err := p.adapter.EnsureCollection(ctx, name)
	if err != nil {
		return err
	}
	if len(indexes) == 0 {
		return nil
	}
	opCtx, cancel := p.adapter.OperationContext(ctx)
	defer cancel()
	names, err := p.adapter.Collection(name).Indexes().CreateMany(opCtx, indexes)
	if err != nil {
		return fmt.Errorf("create indexes on %s: %w", name, classify(err))
	}
	p.log.Debug("collection provisioned", "collection", name, "created", created, "indexes", names)
	return nil
}

// WithTransaction implements repository.TransactionManager.
func (p *Provider) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.adapter.WithTransaction(ctx, fn)
}

// HealthCheck pings the server.
func (p *Provider) HealthCheck(ctx context.Context) error {
	return p.adapter.HealthCheck(ctx)
}

// Close disconnects the underlying client.
func (p *Provider) Close() error {
	return p.adapter.Close()
}

type probe struct{}

func (probe) DocumentID() primitive.ObjectID { return primitive.NilObjectID }
