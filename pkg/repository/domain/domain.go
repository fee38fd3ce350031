package domain

import (
	"context"
	"fmt"

	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"github.com/kaminari-anilist/kaminari/pkg/repository/document"
	"github.com/kaminari-anilist/kaminari/pkg/repository/memory"
	"github.com/kaminari-anilist/kaminari/pkg/store"
	mongostore "github.com/kaminari-anilist/kaminari/pkg/store/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

// Options configures Open.
type Options struct {
	// Provision creates missing collections and their indexes before returning.
	Provision bool
	// Transactions makes Tx run multi-document writes in a store transaction.
	Transactions bool
	Logger       logger.Logger
	Observer     repository.Observer
}

// Repositories groups the repository of every document type with the transaction
// manager the services use for multi-document writes.
type Repositories struct {
	Users    *repository.Generic[model.User]
	Profiles *repository.Generic[model.UserAnimeProfile]
	Animes   *repository.Generic[model.UserAnime]
	Rooms    *repository.Generic[model.TogetherRoom]
	Tx       repository.TransactionManager
}

// Provisioner creates a collection and its indexes when missing.
type Provisioner interface {
	EnsureCollectionExists(ctx context.Context, name string, indexes ...mongo.IndexModel) error
}

type backend interface {
	Provisioner
	repository.TransactionManager
}

// Open builds the repositories over adapter, which must be a *mongodb.Adapter or a
// *memory.Store as returned by store.NewDocumentStore.
func Open(ctx context.Context, adapter store.Adapter, opts Options) (*Repositories, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	var b backend
	switch a := adapter.(type) {
	case *mongostore.Adapter:
		p, err := document.NewProvider(a, log)
		if err != nil {
			return nil, err
		}
		b = p
	case *memory.Store:
		b = a
	default:
		return nil, fmt.Errorf("unsupported document store %T", adapter)
	}

	if opts.Provision {
		if err := Provision(ctx, b); err != nil {
			return nil, err
		}
	}

	repos := &Repositories{
		Users:    repository.New(collection[model.User](b), repoOptions(log, opts.Observer, userKeys())...),
		Profiles: repository.New(collection[model.UserAnimeProfile](b), repoOptions(log, opts.Observer, profileKeys())...),
		Animes:   repository.New(collection[model.UserAnime](b), repoOptions(log, opts.Observer, animeKeys())...),
		Rooms:    repository.New(collection[model.TogetherRoom](b), repoOptions(log, opts.Observer, roomKeys())...),
		Tx:       repository.NoTransaction,
	}
	if opts.Transactions {
		repos.Tx = b
	}
	return repos, nil
}

// Provision ensures every collection of Collections exists with its indexes.
func Provision(ctx context.Context, b Provisioner) error {
	for _, c := range Collections() {
		if err := b.EnsureCollectionExists(ctx, c.Name, c.Indexes...); err != nil {
			return fmt.Errorf("provision %s: %w", c.Name, err)
		}
	}
	return nil
}

func collection[T repository.Document](b backend) repository.Collection[T] {
	switch b := b.(type) {
	case *document.Provider:
		return document.GetCollection[T](b, "")
	case *memory.Store:
		return memory.Open[T](b, "")
	}
	panic(fmt.Sprintf("domain: unexpected backend %T", b))
}

func repoOptions[T repository.Document](log logger.Logger, obs repository.Observer, keys []repository.SortKey[T]) []repository.Option[T] {
	opts := []repository.Option[T]{
		repository.WithSortKeys(keys...),
		repository.WithLogger[T](log),
	}
	if obs != nil {
		opts = append(opts, repository.WithObserver[T](obs))
	}
	return opts
}
