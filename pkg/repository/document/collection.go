// Package document backs repository.Collection with a MongoDB collection.
package document

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB server error codes mapped onto repository errors.
const (
	codeImmutableField = 66
)

// Collection is a repository.Collection over one *mongo.Collection.
//
// Filter clauses with a native form are sent to the server. When a filter also carries
// Go-only predicates, candidates are read with the native part and narrowed in process;
// writes then address the surviving documents by _id.
type Collection[T repository.Document] struct {
	coll    *mongo.Collection
	timeout func(context.Context) (context.Context, context.CancelFunc)
}

var _ repository.Collection[probe] = (*Collection[probe])(nil)

func newCollection[T repository.Document](coll *mongo.Collection, timeout func(context.Context) (context.Context, context.CancelFunc)) *Collection[T] {
	if timeout == nil {
		timeout = func(ctx context.Context) (context.Context, context.CancelFunc) { return ctx, func() {} }
	}
	return &Collection[T]{coll: coll, timeout: timeout}
}

// Name implements repository.Collection.
func (c *Collection[T]) Name() string {
	return c.coll.Name()
}

// Find implements repository.Collection. The server sorts, skips and limits unless a
// residual predicate or an order without a native form forces that work in process.
func (c *Collection[T]) Find(ctx context.Context, filter repository.Filter[T], opts repository.FindOptions[T]) ([]T, error) {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	native, residual := filter.Split()
	sortInProcess := opts.Compare != nil && len(opts.Sort) == 0
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort)
	}
	if residual == nil && !sortInProcess {
		if opts.Skip > 0 {
			findOpts.SetSkip(opts.Skip)
		}
		if opts.Limit > 0 {
			findOpts.SetLimit(opts.Limit)
		}
		return c.find(ctx, native, findOpts)
	}

	items, err := c.find(ctx, native, findOpts)
	if err != nil {
		return nil, err
	}
	kept := items
	if residual != nil {
		kept = items[:0]
		for _, item := range items {
			if residual(item) {
				kept = append(kept, item)
			}
		}
	}
	if sortInProcess {
		slices.SortStableFunc(kept, opts.Compare)
	}
	start := min(int(max(opts.Skip, 0)), len(kept))
	end := len(kept)
	if opts.Limit > 0 && opts.Limit < int64(end-start) {
		end = start + int(opts.Limit)
	}
	return slices.Clone(kept[start:end]), nil
}

func (c *Collection[T]) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]T, error) {
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Count implements repository.Collection.
func (c *Collection[T]) Count(ctx context.Context, filter repository.Filter[T]) (int64, error) {
	native, residual := filter.Split()
	if residual != nil {
		items, err := c.Find(ctx, filter, repository.FindOptions[T]{})
		return int64(len(items)), err
	}
	ctx, cancel := c.timeout(ctx)
	defer cancel()
	n, err := c.coll.CountDocuments(ctx, native)
	return n, classify(err)
}

// InsertOne implements repository.Collection.
func (c *Collection[T]) InsertOne(ctx context.Context, doc T) error {
	ctx, cancel := c.timeout(ctx)
	defer cancel()
	_, err := c.coll.InsertOne(ctx, doc)
	return classify(err)
}

// InsertMany implements repository.Collection. Inserts are ordered and stop at the
// first failure.
func (c *Collection[T]) InsertMany(ctx context.Context, docs []T) error {
	ctx, cancel := c.timeout(ctx)
	defer cancel()
	batch := make([]any, len(docs))
	for i, d := range docs {
		batch[i] = d
	}
	_, err := c.coll.InsertMany(ctx, batch)
	return classify(err)
}

// target narrows filter to something the server can evaluate on its own. Without
// residual predicates it is the native document; otherwise the _id of the first
// surviving candidate. ok is false when no candidate survives.
func (c *Collection[T]) target(ctx context.Context, filter repository.Filter[T]) (bson.D, bool, error) {
	native, residual := filter.Split()
	if residual == nil {
		return native, true, nil
	}
	items, err := c.Find(ctx, filter, repository.FindOptions[T]{Limit: 1})
	if err != nil || len(items) == 0 {
		return nil, false, err
	}
	return bson.D{{Key: repository.IDField, Value: items[0].DocumentID()}}, true, nil
}

// ReplaceOne implements repository.Collection.
func (c *Collection[T]) ReplaceOne(ctx context.Context, filter repository.Filter[T], doc T, upsert bool) (repository.WriteResult, error) {
	sel, ok, err := c.target(ctx, filter)
	if err != nil {
		return repository.WriteResult{}, err
	}
	if !ok {
		if !upsert {
			return repository.WriteResult{Acknowledged: true}, nil
		}
		sel = bson.D{{Key: repository.IDField, Value: doc.DocumentID()}}
	}

	ctx, cancel := c.timeout(ctx)
	defer cancel()
	res, err := c.coll.ReplaceOne(ctx, sel, doc, options.Replace().SetUpsert(upsert))
	return writeResult(res, err)
}

// UpdateOne implements repository.Collection.
func (c *Collection[T]) UpdateOne(ctx context.Context, filter repository.Filter[T], update bson.D) (repository.WriteResult, error) {
	sel, ok, err := c.target(ctx, filter)
	if err != nil {
		return repository.WriteResult{}, err
	}
	if !ok {
		return repository.WriteResult{Acknowledged: true}, nil
	}

	ctx, cancel := c.timeout(ctx)
	defer cancel()
	res, err := c.coll.UpdateOne(ctx, sel, update)
	return writeResult(res, err)
}

func writeResult(res *mongo.UpdateResult, err error) (repository.WriteResult, error) {
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return repository.WriteResult{Acknowledged: false}, nil
	}
	if err != nil {
		return repository.WriteResult{}, classify(err)
	}
	return repository.WriteResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

// FindOneAndDelete implements repository.Collection.
func (c *Collection[T]) FindOneAndDelete(ctx context.Context, filter repository.Filter[T]) (T, bool, error) {
	var doc T
	sel, ok, err := c.target(ctx, filter)
	if err != nil || !ok {
		return doc, false, err
	}

	ctx, cancel := c.timeout(ctx)
	defer cancel()
	res := c.coll.FindOneAndDelete(ctx, sel)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return doc, false, nil
		}
		return doc, false, classify(err)
	}
	if err := res.Decode(&doc); err != nil {
		return doc, false, fmt.Errorf("decode deleted document: %w", err)
	}
	return doc, true, nil
}

// DeleteMany implements repository.Collection.
func (c *Collection[T]) DeleteMany(ctx context.Context, filter repository.Filter[T]) (int64, error) {
	native, residual := filter.Split()
	if residual != nil {
		items, err := c.Find(ctx, filter, repository.FindOptions[T]{})
		if err != nil || len(items) == 0 {
			return 0, err
		}
		ids := make(bson.A, len(items))
		for i, item := range items {
			ids[i] = item.DocumentID()
		}
		native = bson.D{{Key: repository.IDField, Value: bson.D{{Key: "$in", Value: ids}}}}
	}

	ctx, cancel := c.timeout(ctx)
	defer cancel()
	res, err := c.coll.DeleteMany(ctx, native)
	if err != nil {
		return 0, classify(err)
	}
	return res.DeletedCount, nil
}

// Aggregate implements repository.Collection.
func (c *Collection[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error) {
	ctx, cancel := c.timeout(ctx)
	defer cancel()
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify(err)
	}
	rows := []bson.M{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode aggregation: %w", err)
	}
	if rows == nil {
		rows = []bson.M{}
	}
	return rows, nil
}

type indexInfo struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

// ListIndexes implements repository.Collection.
func (c *Collection[T]) ListIndexes(ctx context.Context) ([]repository.IndexSpec, error) {
	ctx, cancel := c.timeout(ctx)
	defer cancel()
	cursor, err := c.coll.Indexes().List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	var infos []indexInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("decode indexes: %w", err)
	}
	specs := make([]repository.IndexSpec, len(infos))
	for i, info := range infos {
		specs[i] = repository.IndexSpec{Name: info.Name, Keys: info.Key, Unique: info.Unique}
	}
	return specs, nil
}

// CreateIndexes implements repository.Collection.
func (c *Collection[T]) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	if len(models) == 0 {
		return nil, nil
	}
	ctx, cancel := c.timeout(ctx)
	defer cancel()
	names, err := c.coll.Indexes().CreateMany(ctx, models)
	return names, classify(err)
}

// classify wraps server errors that have a repository equivalent.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", repository.ErrDuplicateKey, err)
	case hasCode(err, codeImmutableField):
		return fmt.Errorf("%w: %v", repository.ErrImmutableID, err)
	default:
		return err
	}
}

func hasCode(err error, code int) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(code)
}
