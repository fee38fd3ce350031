package repository

import (
	"context"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// IDField is the stored name of the document identifier.
const IDField = "_id"

// Document is any record with a store-generated identifier assigned at construction.
type Document interface {
	DocumentID() primitive.ObjectID
}

// Named lets a document type override its collection name.
type Named interface {
	CollectionName() string
}

// CollectionName returns the collection backing T: the value of CollectionName when T
// implements Named, otherwise the name of the type itself.
func CollectionName[T any]() string {
	var zero T
	if named, ok := any(zero).(Named); ok {
		if name := named.CollectionName(); name != "" {
			return name
		}
	}
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// FindOptions carries the order and window of a Find call.
// Compare is the order in process and Sort its store-native form; both are nil when the
// natural order is kept. Sort is also nil when Compare has no native form, and the
// collection then orders with Compare before applying the window. Skip and Limit are
// ignored when zero.
type FindOptions[T any] struct {
	Sort    bson.D
	Compare func(a, b T) int
	Skip    int64
	Limit   int64
}

// WriteResult reports the outcome of a replace or update.
type WriteResult struct {
	Acknowledged  bool
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	UpsertedID    any
}

// IndexSpec describes an existing index.
type IndexSpec struct {
	Name   string
	Keys   bson.D
	Unique bool
}

// Collection is the handle to one backing collection of T.
// Implementations are safe for concurrent use and hold no per-call state.
type Collection[T Document] interface {
	Name() string

	// Find returns the documents matching filter. A nil slice with a nil error means
	// the store produced no result set at all.
	Find(ctx context.Context, filter Filter[T], opts FindOptions[T]) ([]T, error)
	Count(ctx context.Context, filter Filter[T]) (int64, error)

	InsertOne(ctx context.Context, doc T) error
	InsertMany(ctx context.Context, docs []T) error

	// ReplaceOne replaces the first match wholesale; with upsert it inserts doc when
	// nothing matched, in one store operation.
	ReplaceOne(ctx context.Context, filter Filter[T], doc T, upsert bool) (WriteResult, error)
	UpdateOne(ctx context.Context, filter Filter[T], update bson.D) (WriteResult, error)

	// FindOneAndDelete removes the first match and returns it. found is false when
	// nothing matched.
	FindOneAndDelete(ctx context.Context, filter Filter[T]) (doc T, found bool, err error)
	DeleteMany(ctx context.Context, filter Filter[T]) (int64, error)

	Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error)

	ListIndexes(ctx context.Context) ([]IndexSpec, error)
	CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error)
}
