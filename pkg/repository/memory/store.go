// Package memory is an in-process document store with MongoDB filter, update and
// aggregation semantics for the subset the repositories use. It backs local runs and
// tests where no MongoDB server is available.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store is closed")

const idIndex = "_id_"

type entry struct {
	raw bson.Raw
	doc bson.D
}

type table struct {
	docs    []entry
	indexes []repository.IndexSpec
}

func (t *table) clone() *table {
	return &table{docs: slices.Clone(t.docs), indexes: slices.Clone(t.indexes)}
}

// Store holds every collection. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	closed bool

	txMu sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*table)}
}

// HealthCheck fails once the store is closed.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close releases every collection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tables = make(map[string]*table)
	return nil
}

// CollectionExists reports whether name has been created.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.read(ctx, func() error {
		_, exists = s.tables[name]
		return nil
	})
	return exists, err
}

// EnsureCollection creates name when it does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context, name string) (bool, error) {
	var created bool
	err := s.write(ctx, func() error {
		if _, ok := s.tables[name]; !ok {
			s.tables[name] = &table{}
			created = true
		}
		return nil
	})
	return created, err
}

// CollectionNames lists the created collections in name order.
func (s *Store) CollectionNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.read(ctx, func() error {
		names = slices.Sorted(maps.Keys(s.tables))
		return nil
	})
	return names, err
}

// WithTransaction runs fn and restores every collection to its prior state if fn fails.
// Transactions are serialized with each other; writes made outside a transaction while
// one is open are discarded when it rolls back.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	var snapshot map[string]*table
	if err := s.read(ctx, func() error {
		snapshot = make(map[string]*table, len(s.tables))
		for name, t := range s.tables {
			snapshot[name] = t.clone()
		}
		return nil
	}); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		if !s.closed {
			s.tables = snapshot
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) read(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn()
}

func (s *Store) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return fn()
}

// table returns the named collection, creating it when create is set. Callers hold mu.
func (s *Store) table(name string, create bool) *table {
	t, ok := s.tables[name]
	if !ok && create {
		t = &table{}
		s.tables[name] = t
	}
	return t
}

func newEntry(doc bson.D) (entry, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return entry{}, err
	}
	return entry{raw: raw, doc: doc}, nil
}

// withID returns doc with an _id, generating one when it is missing.
func withID(doc bson.D) (bson.D, any) {
	if id, ok := lookup(doc, repository.IDField); ok {
		return doc, id
	}
	id := primitive.NewObjectID()
	return append(bson.D{{Key: repository.IDField, Value: id}}, doc...), id
}

// checkUnique rejects doc when it collides with another document on _id or on any
// unique index. skip is the position of the document being replaced, or -1.
func (t *table) checkUnique(collection string, doc bson.D, skip int) error {
	specs := append([]repository.IndexSpec{{Name: idIndex, Keys: bson.D{{Key: repository.IDField, Value: 1}}, Unique: true}}, t.indexes...)
	for _, spec := range specs {
		if !spec.Unique {
			continue
		}
		key := indexKey(doc, spec.Keys)
		for i, other := range t.docs {
			if i == skip {
				continue
			}
			if equalValues(key, indexKey(other.doc, spec.Keys)) {
				return fmt.Errorf("%w: collection %s index %s dup key %v", repository.ErrDuplicateKey, collection, spec.Name, key)
			}
		}
	}
	return nil
}

func indexKey(doc bson.D, keys bson.D) bson.A {
	key := make(bson.A, len(keys))
	for i, k := range keys {
		key[i], _ = lookup(doc, k.Key)
	}
	return key
}

func indexName(keys bson.D) string {
	parts := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		parts = append(parts, k.Key, fmt.Sprint(k.Value))
	}
	return strings.Join(parts, "_")
}

// EnsureCollectionExists creates name when missing and then creates indexes.
func (s *Store) EnsureCollectionExists(ctx context.Context, name string, indexes ...mongo.IndexModel) error {
	if _, err := s.EnsureCollection(ctx, name); err != nil {
		return err
	}
	if len(indexes) == 0 {
		return nil
	}
	_, err := Open[probe](s, name).CreateIndexes(ctx, indexes)
	return err
}
