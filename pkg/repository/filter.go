package repository

import (
	"cmp"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clause is one conjunct of a Filter. Doc is the store-native form and Match the
// in-process form; at least one of them is set.
type Clause[T any] struct {
	Doc   bson.D
	Match func(T) bool
}

// Filter is a predicate over documents of type T. Clauses are combined with AND;
// the zero Filter matches every document.
type Filter[T any] struct {
	clauses []Clause[T]
}

// All matches every document.
func All[T any]() Filter[T] {
	return Filter[T]{}
}

// Match wraps a Go predicate. It is evaluated in process after the store-native part
// of the filter has narrowed the candidates.
func Match[T any](fn func(T) bool) Filter[T] {
	if fn == nil {
		return Filter[T]{}
	}
	return Filter[T]{clauses: []Clause[T]{{Match: fn}}}
}

// Native wraps a store-native filter document.
func Native[T any](doc bson.D) Filter[T] {
	if len(doc) == 0 {
		return Filter[T]{}
	}
	return Filter[T]{clauses: []Clause[T]{{Doc: doc}}}
}

// And combines filters; a document matches only when every filter matches.
func And[T any](filters ...Filter[T]) Filter[T] {
	var out Filter[T]
	for _, f := range filters {
		out.clauses = append(out.clauses, f.clauses...)
	}
	return out
}

// And returns f combined with others.
func (f Filter[T]) And(others ...Filter[T]) Filter[T] {
	return And(append([]Filter[T]{f}, others...)...)
}

// Clauses returns the conjuncts of f.
func (f Filter[T]) Clauses() []Clause[T] {
	return slices.Clone(f.clauses)
}

// IsEmpty reports whether f matches every document.
func (f Filter[T]) IsEmpty() bool {
	return len(f.clauses) == 0
}

// Split separates f into a store-native document and a residual Go predicate.
// Clauses with a native form are pushed to the store; the rest are returned as the
// residual. The residual is nil when the store can evaluate the whole filter.
func (f Filter[T]) Split() (bson.D, func(T) bool) {
	docs := make([]bson.D, 0, len(f.clauses))
	var residual []func(T) bool
	for _, c := range f.clauses {
		switch {
		case c.Doc != nil:
			docs = append(docs, c.Doc)
		case c.Match != nil:
			residual = append(residual, c.Match)
		}
	}

	var native bson.D
	switch len(docs) {
	case 0:
		native = bson.D{}
	case 1:
		native = docs[0]
	default:
		and := make(bson.A, len(docs))
		for i, d := range docs {
			and[i] = d
		}
		native = bson.D{{Key: "$and", Value: and}}
	}

	if len(residual) == 0 {
		return native, nil
	}
	return native, func(doc T) bool {
		for _, fn := range residual {
			if !fn(doc) {
				return false
			}
		}
		return true
	}
}

// Eq matches documents whose field equals v.
func Eq[T any, V comparable](f Field[T, V], v V) Filter[T] {
	return clause(bson.D{{Key: f.name, Value: v}}, func(doc T) bool { return f.get(doc) == v })
}

// Ne matches documents whose field differs from v.
func Ne[T any, V comparable](f Field[T, V], v V) Filter[T] {
	return clause(bson.D{{Key: f.name, Value: bson.D{{Key: "$ne", Value: v}}}}, func(doc T) bool { return f.get(doc) != v })
}

// Gt matches documents whose field is greater than v.
func Gt[T any, V cmp.Ordered](f Field[T, V], v V) Filter[T] {
	return compare(f, "$gt", v, func(c int) bool { return c > 0 })
}

// Gte matches documents whose field is greater than or equal to v.
func Gte[T any, V cmp.Ordered](f Field[T, V], v V) Filter[T] {
	return compare(f, "$gte", v, func(c int) bool { return c >= 0 })
}

// Lt matches documents whose field is less than v.
func Lt[T any, V cmp.Ordered](f Field[T, V], v V) Filter[T] {
	return compare(f, "$lt", v, func(c int) bool { return c < 0 })
}

// Lte matches documents whose field is less than or equal to v.
func Lte[T any, V cmp.Ordered](f Field[T, V], v V) Filter[T] {
	return compare(f, "$lte", v, func(c int) bool { return c <= 0 })
}

// Before matches documents whose time field is earlier than t.
func Before[T any](f Field[T, time.Time], t time.Time) Filter[T] {
	return clause(bson.D{{Key: f.name, Value: bson.D{{Key: "$lt", Value: t}}}}, func(doc T) bool { return f.get(doc).Before(t) })
}

// After matches documents whose time field is later than t.
func After[T any](f Field[T, time.Time], t time.Time) Filter[T] {
	return clause(bson.D{{Key: f.name, Value: bson.D{{Key: "$gt", Value: t}}}}, func(doc T) bool { return f.get(doc).After(t) })
}

// In matches documents whose field equals one of values.
func In[T any, V comparable](f Field[T, V], values ...V) Filter[T] {
	arr := make(bson.A, len(values))
	for i, v := range values {
		arr[i] = v
	}
	return clause(bson.D{{Key: f.name, Value: bson.D{{Key: "$in", Value: arr}}}}, func(doc T) bool {
		return slices.Contains(values, f.get(doc))
	})
}

// ByID matches the document with the given identifier.
func ByID[T Document](id primitive.ObjectID) Filter[T] {
	return clause(bson.D{{Key: IDField, Value: id}}, func(doc T) bool { return doc.DocumentID() == id })
}

func compare[T any, V cmp.Ordered](f Field[T, V], op string, v V, ok func(int) bool) Filter[T] {
	return clause(bson.D{{Key: f.name, Value: bson.D{{Key: op, Value: v}}}}, func(doc T) bool {
		return ok(cmp.Compare(f.get(doc), v))
	})
}

func clause[T any](doc bson.D, match func(T) bool) Filter[T] {
	return Filter[T]{clauses: []Clause[T]{{Doc: doc, Match: match}}}
}
