package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AggregationKind names the accumulator of an Aggregation.
type AggregationKind string

const (
	KindSum AggregationKind = "sum"
	KindAvg AggregationKind = "avg"
	// KindCount counts the documents of each group.
	KindCount AggregationKind = "count"
)

// Number is the set of field types that can be summed or averaged.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Aggregation computes one value per group over a numeric field.
type Aggregation[T any] struct {
	Kind  AggregationKind
	Field string
	As    string
}

// Sum totals f per group.
func Sum[T any, V Number](f Field[T, V]) Aggregation[T] {
	return Aggregation[T]{Kind: KindSum, Field: f.name}
}

// Avg averages f per group.
func Avg[T any, V Number](f Field[T, V]) Aggregation[T] {
	return Aggregation[T]{Kind: KindAvg, Field: f.name}
}

// Tally counts the documents of each group.
func Tally[T any]() Aggregation[T] {
	return Aggregation[T]{Kind: KindCount}
}

// Named sets the key under which the aggregated value is reported.
func (a Aggregation[T]) Named(alias string) Aggregation[T] {
	a.As = alias
	return a
}

// Alias returns the result key: As when set, otherwise "<kind>_<field>".
func (a Aggregation[T]) Alias() string {
	if a.As != "" {
		return a.As
	}
	if a.Kind == KindCount {
		return "count"
	}
	return string(a.Kind) + "_" + strings.ReplaceAll(a.Field, ".", "_")
}

func (a Aggregation[T]) operator() (string, error) {
	switch a.Kind {
	case KindSum:
		return "$sum", nil
	case KindAvg:
		return "$avg", nil
	case KindCount:
		return "$sum", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAggregation, a.Kind)
	}
}

// GroupResult is one group produced by GroupAndAggregate.
type GroupResult struct {
	Key    any                `json:"key"`
	Values map[string]float64 `json:"values"`
}

// GroupPipeline builds the server-side $group stage for groupBy and aggs, followed by a
// $sort on the group key so results come back in a stable order.
func GroupPipeline[T any](groupBy string, aggs []Aggregation[T]) (mongo.Pipeline, error) {
	if groupBy == "" {
		return nil, fmt.Errorf("%w: empty group field", ErrUnsupportedAggregation)
	}
	group := bson.D{{Key: "_id", Value: "$" + groupBy}}
	seen := make(map[string]struct{}, len(aggs))
	for _, a := range aggs {
		op, err := a.operator()
		if err != nil {
			return nil, err
		}
		alias := a.Alias()
		if alias == "_id" || strings.Contains(alias, ".") {
			return nil, fmt.Errorf("%w: invalid alias %q", ErrUnsupportedAggregation, alias)
		}
		if _, dup := seen[alias]; dup {
			return nil, fmt.Errorf("%w: duplicate alias %q", ErrUnsupportedAggregation, alias)
		}
		seen[alias] = struct{}{}
		var operand any = "$" + a.Field
		if a.Kind == KindCount {
			operand = 1
		}
		group = append(group, bson.E{Key: alias, Value: bson.D{{Key: op, Value: operand}}})
	}
	return mongo.Pipeline{
		{{Key: "$group", Value: group}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}, nil
}

// GroupAndAggregate groups every document by groupBy and computes each aggregation per
// group in the store. Unsupported aggregation kinds fail before the store is contacted.
func (r *Generic[T]) GroupAndAggregate(ctx context.Context, groupBy FieldRef[T], aggs ...Aggregation[T]) *envelope.Envelope[GroupResult] {
	return observe(r, ctx, "GroupAndAggregate", func(ctx context.Context, origin string) *envelope.Envelope[GroupResult] {
		return r.aggregate(ctx, origin, nil, groupBy, aggs)
	})
}

// GroupAndAggregateWhere is GroupAndAggregate restricted to the documents matching
// filter. The filter runs as a $match stage, so it must not carry Go-only predicates.
func (r *Generic[T]) GroupAndAggregateWhere(ctx context.Context, filter Filter[T], groupBy FieldRef[T], aggs ...Aggregation[T]) *envelope.Envelope[GroupResult] {
	return observe(r, ctx, "GroupAndAggregateWhere", func(ctx context.Context, origin string) *envelope.Envelope[GroupResult] {
		native, residual := filter.Split()
		if residual != nil {
			return envelope.Fail[GroupResult](origin, fmt.Errorf("%w: filter has predicates the store cannot evaluate", ErrUnsupportedAggregation))
		}
		return r.aggregate(ctx, origin, native, groupBy, aggs)
	})
}

func (r *Generic[T]) aggregate(ctx context.Context, origin string, match bson.D, groupBy FieldRef[T], aggs []Aggregation[T]) *envelope.Envelope[GroupResult] {
	if groupBy == nil {
		return envelope.Fail[GroupResult](origin, fmt.Errorf("%w: missing group field", ErrUnsupportedAggregation))
	}
	pipeline, err := GroupPipeline(groupBy.Name(), aggs)
	if err != nil {
		return envelope.Fail[GroupResult](origin, err)
	}
	if len(match) > 0 {
		pipeline = append(mongo.Pipeline{{{Key: "$match", Value: match}}}, pipeline...)
	}
	rows, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return envelope.Fail[GroupResult](origin, fmt.Errorf("aggregate %s: %w", r.coll.Name(), err))
	}
	if rows == nil {
		return envelope.Warn[GroupResult](origin, MsgNoResultSet)
	}
	results := make([]GroupResult, 0, len(rows))
	for _, row := range rows {
		res := GroupResult{Key: row["_id"], Values: make(map[string]float64, len(aggs))}
		for _, a := range aggs {
			v, err := toFloat(row[a.Alias()])
			if err != nil {
				return envelope.Fail[GroupResult](origin, fmt.Errorf("decode %s: %w", a.Alias(), err))
			}
			res.Values[a.Alias()] = v
		}
		results = append(results, res)
	}
	return envelope.OK(origin, results, MsgAggregated)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("non-numeric aggregate value %T", v)
	}
}
