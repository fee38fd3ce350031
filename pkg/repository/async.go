package repository

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"go.mongodb.org/mongo-driver/bson"
)

// Future is the pending result of an operation started by Async.
type Future[E any] struct {
	done chan struct{}
	env  *envelope.Envelope[E]
}

// Go runs fn on its own goroutine and returns its future result.
func Go[E any](fn func() *envelope.Envelope[E]) *Future[E] {
	f := &Future[E]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.env = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[E]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is ready or ctx ends. Ending ctx only stops waiting;
// the operation itself observes the context it was started with.
func (f *Future[E]) Await(ctx context.Context) (*envelope.Envelope[E], error) {
	select {
	case <-f.done:
		return f.env, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Async exposes every repository operation in non-blocking form. Each call is started
// on its own goroutine; calls share no state and may be interleaved freely.
type Async[T Document] struct {
	repo Repository[T]
}

// NewAsync wraps repo.
func NewAsync[T Document](repo Repository[T]) *Async[T] {
	return &Async[T]{repo: repo}
}

func (a *Async[T]) GetAll(ctx context.Context, sorts ...SortOption) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.GetAll(ctx, sorts...) })
}

func (a *Async[T]) FilterBy(ctx context.Context, filter Filter[T], opts ...QueryOption) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.FilterBy(ctx, filter, opts...) })
}

func (a *Async[T]) FilterByAll(ctx context.Context, filters []Filter[T], opts ...QueryOption) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.FilterByAll(ctx, filters, opts...) })
}

func (a *Async[T]) FilterByNative(ctx context.Context, doc bson.D, opts ...QueryOption) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.FilterByNative(ctx, doc, opts...) })
}

func (a *Async[T]) FilterByFromStore(ctx context.Context, filter Filter[T], sorts []SortOption, page *PageOption) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.FilterByFromStore(ctx, filter, sorts, page) })
}

func (a *Async[T]) GetByID(ctx context.Context, id string) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.GetByID(ctx, id) })
}

func (a *Async[T]) Count(ctx context.Context, filter Filter[T]) *Future[int64] {
	return Go(func() *envelope.Envelope[int64] { return a.repo.Count(ctx, filter) })
}

func (a *Async[T]) InsertOne(ctx context.Context, doc T) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.InsertOne(ctx, doc) })
}

func (a *Async[T]) InsertMany(ctx context.Context, docs []T) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.InsertMany(ctx, docs) })
}

func (a *Async[T]) UpsertOne(ctx context.Context, filter Filter[T], doc T) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.UpsertOne(ctx, filter, doc) })
}

func (a *Async[T]) ReplaceOne(ctx context.Context, filter Filter[T], doc T) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.ReplaceOne(ctx, filter, doc) })
}

func (a *Async[T]) UpdateOne(ctx context.Context, filter Filter[T], update bson.D) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.UpdateOne(ctx, filter, update) })
}

func (a *Async[T]) DeleteByID(ctx context.Context, id string) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.DeleteByID(ctx, id) })
}

func (a *Async[T]) DeleteOne(ctx context.Context, filter Filter[T]) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.DeleteOne(ctx, filter) })
}

func (a *Async[T]) DeleteMany(ctx context.Context, filter Filter[T]) *Future[T] {
	return Go(func() *envelope.Envelope[T] { return a.repo.DeleteMany(ctx, filter) })
}

func (a *Async[T]) GroupAndAggregate(ctx context.Context, groupBy FieldRef[T], aggs ...Aggregation[T]) *Future[GroupResult] {
	return Go(func() *envelope.Envelope[GroupResult] { return a.repo.GroupAndAggregate(ctx, groupBy, aggs...) })
}

func (a *Async[T]) GroupAndAggregateWhere(ctx context.Context, filter Filter[T], groupBy FieldRef[T], aggs ...Aggregation[T]) *Future[GroupResult] {
	return Go(func() *envelope.Envelope[GroupResult] {
		return a.repo.GroupAndAggregateWhere(ctx, filter, groupBy, aggs...)
	})
}
