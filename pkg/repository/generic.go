package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generic implements Repository for one document type over a Collection handle.
// It holds no mutable state and is safe for concurrent use.
type Generic[T Document] struct {
	coll     Collection[T]
	keys     map[string]SortKey[T]
	log      logger.Logger
	observer Observer
}

// Option configures a Generic repository.
type Option[T Document] func(*Generic[T])

// WithSortKeys sets the fields that sort options may name.
func WithSortKeys[T Document](keys ...SortKey[T]) Option[T] {
	return func(r *Generic[T]) {
		for _, k := range keys {
			r.keys[k.Name] = k
		}
	}
}

// WithLogger sets the logger used for failed and empty operations.
func WithLogger[T Document](log logger.Logger) Option[T] {
	return func(r *Generic[T]) {
		if log != nil {
			r.log = log
		}
	}
}

// WithObserver attaches an observer notified around every operation.
func WithObserver[T Document](obs Observer) Option[T] {
	return func(r *Generic[T]) {
		r.observer = obs
	}
}

// New creates a repository over coll.
func New[T Document](coll Collection[T], opts ...Option[T]) *Generic[T] {
	r := &Generic[T]{
		coll: coll,
		keys: make(map[string]SortKey[T]),
		log:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Collection returns the underlying handle.
func (r *Generic[T]) Collection() Collection[T] {
	return r.coll
}

// GetAll returns every document, optionally sorted.
func (r *Generic[T]) GetAll(ctx context.Context, sorts ...SortOption) *envelope.Envelope[T] {
	return observe(r, ctx, "GetAll", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		return r.find(ctx, origin, All[T](), query{sorts: sorts})
	})
}

// FilterBy returns the documents matching filter. Sort and page options are applied in
// process after the matching set has been read.
func (r *Generic[T]) FilterBy(ctx context.Context, filter Filter[T], opts ...QueryOption) *envelope.Envelope[T] {
	return observe(r, ctx, "FilterBy", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		return r.find(ctx, origin, filter, buildQuery(opts))
	})
}

// FilterByAll returns the documents matching every filter.
func (r *Generic[T]) FilterByAll(ctx context.Context, filters []Filter[T], opts ...QueryOption) *envelope.Envelope[T] {
	return observe(r, ctx, "FilterByAll", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		if len(filters) == 0 {
			return envelope.Fail[T](origin, ErrNoPredicates)
		}
		return r.find(ctx, origin, And(filters...), buildQuery(opts))
	})
}

// FilterByNative returns the documents matching a store-native filter document.
func (r *Generic[T]) FilterByNative(ctx context.Context, doc bson.D, opts ...QueryOption) *envelope.Envelope[T] {
	return observe(r, ctx, "FilterByNative", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		return r.find(ctx, origin, Native[T](doc), buildQuery(opts))
	})
}

// FilterByFromStore behaves like FilterBy but lets the store sort, skip and limit.
func (r *Generic[T]) FilterByFromStore(ctx context.Context, filter Filter[T], sorts []SortOption, page *PageOption) *envelope.Envelope[T] {
	return observe(r, ctx, "FilterByFromStore", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		compare, native, err := compositeOrder(r.keys, sorts)
		if err != nil {
			return envelope.Fail[T](origin, err)
		}
		opts := FindOptions[T]{Sort: native, Compare: compare}
		if page != nil {
			if err := page.Validate(); err != nil {
				return envelope.Fail[T](origin, err)
			}
			opts.Skip = int64(page.Offset())
			opts.Limit = int64(page.Limit())
		}
		items, err := r.coll.Find(ctx, filter, opts)
		if err != nil {
			return envelope.Fail[T](origin, fmt.Errorf("find in %s: %w", r.coll.Name(), err))
		}
		if items == nil {
			return envelope.Warn[T](origin, MsgNoResultSet)
		}
		return envelope.OK(origin, items, MsgFetched)
	})
}

// GetByID returns the document with the given hex identifier. A malformed identifier
// is an Error; a well-formed identifier that matches nothing is a Warning.
func (r *Generic[T]) GetByID(ctx context.Context, id string) *envelope.Envelope[T] {
	return observe(r, ctx, "GetByID", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		oid, err := ParseID(id)
		if err != nil {
			return envelope.Fail[T](origin, err)
		}
		items, err := r.coll.Find(ctx, ByID[T](oid), FindOptions[T]{Limit: 1})
		if err != nil {
			return envelope.Fail[T](origin, fmt.Errorf("find %s in %s: %w", id, r.coll.Name(), err))
		}
		if items == nil {
			return envelope.Warn[T](origin, MsgNoResultSet)
		}
		if len(items) == 0 {
			return envelope.Warn[T](origin, MsgNotFound)
		}
		return envelope.OK(origin, items[:1], MsgFetched)
	})
}

// Count returns the number of documents matching filter as the single item.
func (r *Generic[T]) Count(ctx context.Context, filter Filter[T]) *envelope.Envelope[int64] {
	return observe(r, ctx, "Count", func(ctx context.Context, origin string) *envelope.Envelope[int64] {
		n, err := r.coll.Count(ctx, filter)
		if err != nil {
			return envelope.Fail[int64](origin, fmt.Errorf("count in %s: %w", r.coll.Name(), err))
		}
		return envelope.OK(origin, []int64{n}, MsgFetched)
	})
}

// InsertOne writes doc and echoes it back.
func (r *Generic[T]) InsertOne(ctx context.Context, doc T) *envelope.Envelope[T] {
	return observe(r, ctx, "InsertOne", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		if err := r.coll.InsertOne(ctx, doc); err != nil {
			return envelope.Fail[T](origin, fmt.Errorf("insert into %s: %w", r.coll.Name(), err))
		}
		return envelope.OK(origin, []T{doc}, MsgInserted)
	})
}

// InsertMany writes docs and echoes them back.
func (r *Generic[T]) InsertMany(ctx context.Context, docs []T) *envelope.Envelope[T] {
	return observe(r, ctx, "InsertMany", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		if len(docs) == 0 {
			return envelope.OK[T](origin, nil, "nothing to insert")
		}
		if err := r.coll.InsertMany(ctx, docs); err != nil {
			return envelope.Fail[T](origin, fmt.Errorf("insert %d documents into %s: %w", len(docs), r.coll.Name(), err))
		}
		return envelope.OK(origin, slices.Clone(docs), fmt.Sprintf("%d documents inserted", len(docs)))
	})
}

// UpsertOne replaces the first document matching filter, or inserts doc when nothing
// matched. The message is MsgInserted or MsgUpdated depending on the matched count.
func (r *Generic[T]) UpsertOne(ctx context.Context, filter Filter[T], doc T) *envelope.Envelope[T] {
	return observe(r, ctx, "UpsertOne", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		res, err := r.coll.ReplaceOne(ctx, filter, doc, true)
		if err != nil {
			return envelope.Fail[T](origin, fmt.Errorf("upsert into %s: %w", r.coll.Name(), err))
		}
		if !res.Acknowledged {
			return envelope.Warn[T](origin, MsgNotAcknowledged)
		}
		if res.MatchedCount == 0 {
			return envelope.OK(origin, []T{doc}, MsgInserted)
		}
		return envelope.OK(origin, []T{doc}, MsgUpdated)
	})
}

// ReplaceOne replaces the first document matching filter. An acknowledged write is a
// Success even when nothing was modified; only an unacknowledged write is a Warning.
func (r *Generic[T]) ReplaceOne(ctx context.Context, filter Filter[T], doc T) *envelope.Envelope[T] {
	return observe(r, ctx, "ReplaceOne", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		res, err := r.coll.ReplaceOne(ctx, filter, doc, false)
		if err != nil {
			return envelope.Fail[T](origin, fmt.Errorf("replace in %s: %w", r.coll.Name(), err))
		}
		if !res.Acknowledged {
			return envelope.Warn[T](origin, MsgNotAcknowledged)
		}
		return envelope.Done[T](origin, fmt.Sprintf("replace acknowledged: matched=%d modified=%d", res.MatchedCount, res.ModifiedCount))
	})
}

// UpdateOne applies a partial update to the first document matching filter.
// Success requires an acknowledged write that modified a document; anything else is a
// Warning. This is stricter than ReplaceOne on purpose.
func (r *Generic[T]) UpdateOne(ctx context.Context, filter Filter[T], update bson.D) *envelope.Envelope[T] {
	return observe(r, ctx, "UpdateOne", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		res, err := r.coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return envelope.Fail[T](origin, fmt.Errorf("update in %s: %w", r.coll.Name(), err))
		}
		if !res.Acknowledged {
			return envelope.Warn[T](origin, MsgNotAcknowledged)
		}
		if res.ModifiedCount == 0 {
			return envelope.Warn[T](origin, fmt.Sprintf("no document modified: matched=%d", res.MatchedCount))
		}
		return envelope.Done[T](origin, fmt.Sprintf("update acknowledged: matched=%d modified=%d", res.MatchedCount, res.ModifiedCount))
	})
}

// DeleteByID removes the document with the given hex identifier and returns it.
func (r *Generic[T]) DeleteByID(ctx context.Context, id string) *envelope.Envelope[T] {
	return observe(r, ctx, "DeleteByID", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		oid, err := ParseID(id)
		if err != nil {
			return envelope.Fail[T](origin, err)
		}
		return r.deleteOne(ctx, origin, ByID[T](oid))
	})
}

// DeleteOne removes the first document matching filter and returns it.
func (r *Generic[T]) DeleteOne(ctx context.Context, filter Filter[T]) *envelope.Envelope[T] {
	return observe(r, ctx, "DeleteOne", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		return r.deleteOne(ctx, origin, filter)
	})
}

// DeleteMany removes every document matching filter. The count is reported in the
// message; items are absent.
func (r *Generic[T]) DeleteMany(ctx context.Context, filter Filter[T]) *envelope.Envelope[T] {
	return observe(r, ctx, "DeleteMany", func(ctx context.Context, origin string) *envelope.Envelope[T] {
		n, err := r.coll.DeleteMany(ctx, filter)
		if err != nil {
			return envelope.Fail[T](origin, fmt.Errorf("delete from %s: %w", r.coll.Name(), err))
		}
		if n == 0 {
			return envelope.Warn[T](origin, MsgNotFound)
		}
		return envelope.Done[T](origin, fmt.Sprintf("%d documents deleted", n))
	})
}

func (r *Generic[T]) find(ctx context.Context, origin string, filter Filter[T], q query) *envelope.Envelope[T] {
	compare, _, err := compositeOrder(r.keys, q.sorts)
	if err != nil {
		return envelope.Fail[T](origin, err)
	}
	if q.page != nil {
		if err := q.page.Validate(); err != nil {
			return envelope.Fail[T](origin, err)
		}
	}

	items, err := r.coll.Find(ctx, filter, FindOptions[T]{})
	if err != nil {
		return envelope.Fail[T](origin, fmt.Errorf("find in %s: %w", r.coll.Name(), err))
	}
	if items == nil {
		return envelope.Warn[T](origin, MsgNoResultSet)
	}
	if compare != nil {
		slices.SortStableFunc(items, compare)
	}
	if q.page != nil {
		items = Paginate(items, *q.page)
	}
	return envelope.OK(origin, items, MsgFetched)
}

func (r *Generic[T]) deleteOne(ctx context.Context, origin string, filter Filter[T]) *envelope.Envelope[T] {
	doc, found, err := r.coll.FindOneAndDelete(ctx, filter)
	if err != nil {
		return envelope.Fail[T](origin, fmt.Errorf("delete from %s: %w", r.coll.Name(), err))
	}
	if !found {
		return envelope.Warn[T](origin, MsgNotFound)
	}
	return envelope.OK(origin, []T{doc}, MsgDeleted)
}

// observe runs one operation with its origin tag, the observer and logging.
func observe[T Document, E any](r *Generic[T], ctx context.Context, op string, fn func(context.Context, string) *envelope.Envelope[E]) *envelope.Envelope[E] {
	name := r.coll.Name()
	origin := name + "." + op

	finish := FinishFunc(func(envelope.Outcome, error) {})
	if r.observer != nil {
		var f FinishFunc
		ctx, f = r.observer.Start(ctx, name, op)
		if f != nil {
			finish = f
		}
	}

	env := fn(ctx, origin)
	finish(env.Outcome, env.Err)

	switch env.Outcome {
	case envelope.Error:
		r.log.WithContext(ctx).Error("repository operation failed",
			"collection", name, "origin", origin, "error", env.Err)
	case envelope.Warning:
		r.log.WithContext(ctx).Debug("repository operation returned no data",
			"collection", name, "origin", origin, "message", env.Message)
	}
	return env
}

// ParseID parses a 24 character hex identifier. It never tolerates malformed input.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q: %v", ErrMalformedID, id, err)
	}
	return oid, nil
}

var _ Repository[nopDoc] = (*Generic[nopDoc])(nil)

type nopDoc struct{}

func (nopDoc) DocumentID() primitive.ObjectID { return primitive.NilObjectID }
