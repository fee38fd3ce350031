// Package repository implements a generic document repository over a Collection handle.
//
// Every operation returns an *envelope.Envelope instead of an error: store faults become
// Error envelopes, missing data becomes a Warning or an empty Success as documented per
// operation. Sorting and paging of filter calls happen after the filtered set has been
// materialized, so results are always take(size, skip(offset, sort(filter(all)))).
package repository

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"go.mongodb.org/mongo-driver/bson"
)

// Reader provides the read operations of a repository.
type Reader[T Document] interface {
	GetAll(ctx context.Context, sorts ...SortOption) *envelope.Envelope[T]
	FilterBy(ctx context.Context, filter Filter[T], opts ...QueryOption) *envelope.Envelope[T]
	FilterByAll(ctx context.Context, filters []Filter[T], opts ...QueryOption) *envelope.Envelope[T]
	FilterByNative(ctx context.Context, doc bson.D, opts ...QueryOption) *envelope.Envelope[T]
	FilterByFromStore(ctx context.Context, filter Filter[T], sorts []SortOption, page *PageOption) *envelope.Envelope[T]
	GetByID(ctx context.Context, id string) *envelope.Envelope[T]
	Count(ctx context.Context, filter Filter[T]) *envelope.Envelope[int64]
}

// Writer provides the write operations of a repository.
type Writer[T Document] interface {
	InsertOne(ctx context.Context, doc T) *envelope.Envelope[T]
	InsertMany(ctx context.Context, docs []T) *envelope.Envelope[T]
	UpsertOne(ctx context.Context, filter Filter[T], doc T) *envelope.Envelope[T]
	ReplaceOne(ctx context.Context, filter Filter[T], doc T) *envelope.Envelope[T]
	UpdateOne(ctx context.Context, filter Filter[T], update bson.D) *envelope.Envelope[T]
	DeleteByID(ctx context.Context, id string) *envelope.Envelope[T]
	DeleteOne(ctx context.Context, filter Filter[T]) *envelope.Envelope[T]
	DeleteMany(ctx context.Context, filter Filter[T]) *envelope.Envelope[T]
}

// Aggregator groups documents server side.
type Aggregator[T Document] interface {
	GroupAndAggregate(ctx context.Context, groupBy FieldRef[T], aggs ...Aggregation[T]) *envelope.Envelope[GroupResult]
	GroupAndAggregateWhere(ctx context.Context, filter Filter[T], groupBy FieldRef[T], aggs ...Aggregation[T]) *envelope.Envelope[GroupResult]
}

// Repository combines Reader, Writer and Aggregator.
type Repository[T Document] interface {
	Reader[T]
	Writer[T]
	Aggregator[T]
}

// Messages placed in Envelope.Message by successful or empty operations.
const (
	MsgFetched         = "data fetched successfully"
	MsgNoResultSet     = "store returned no result set"
	MsgNotFound        = "no document matched"
	MsgInserted        = "document inserted"
	MsgUpdated         = "document updated"
	MsgDeleted         = "document deleted"
	MsgNotAcknowledged = "write not acknowledged"
	MsgAggregated      = "aggregation completed"
)
