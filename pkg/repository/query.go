package repository

import (
	"cmp"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// SortOption names one sort key and its direction.
// The zero value of Descending sorts ascending.
type SortOption struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// Asc sorts by field in ascending order.
func Asc(field string) SortOption {
	return SortOption{Field: field}
}

// Desc sorts by field in descending order.
func Desc(field string) SortOption {
	return SortOption{Field: field, Descending: true}
}

func (s SortOption) String() string {
	if s.Descending {
		return s.Field + " desc"
	}
	return s.Field + " asc"
}

// PageOption selects one page of an already filtered and sorted sequence.
type PageOption struct {
	Number int `json:"page"`
	Size   int `json:"size"`
}

// Page builds a PageOption.
func Page(number, size int) PageOption {
	return PageOption{Number: number, Size: size}
}

// Validate reports an error when either value is below one.
func (p PageOption) Validate() error {
	if p.Number < 1 || p.Size < 1 {
		return fmt.Errorf("%w: page=%d size=%d", ErrInvalidPage, p.Number, p.Size)
	}
	return nil
}

// Offset returns the number of items skipped before the page starts. It saturates at
// math.MaxInt, which is past the end of any sequence.
func (p PageOption) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Limit returns the page size.
func (p PageOption) Limit() int {
	return p.Size
}

// Paginate returns take(size, skip((number-1)*size, items)).
func Paginate[T any](items []T, p PageOption) []T {
	return window(items, p.Offset(), p.Limit())
}

func window[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-skip {
		end = skip + limit
	}
	out := make([]T, end-skip)
	copy(out, items[skip:end])
	return out
}

// Field is a typed accessor for one stored field of T.
// Name is the stored (bson) field name; Get reads the same value from a decoded document.
type Field[T any, V any] struct {
	name string
	get  func(T) V
}

// NewField declares an accessor for the stored field name of T.
func NewField[T any, V any](name string, get func(T) V) Field[T, V] {
	return Field[T, V]{name: name, get: get}
}

// Name returns the stored field name.
func (f Field[T, V]) Name() string { return f.name }

// Get reads the field from doc.
func (f Field[T, V]) Get(doc T) V { return f.get(doc) }

func (f Field[T, V]) fieldOf(T) {}

// FieldRef is satisfied by every Field declared on T, whatever its value type.
type FieldRef[T any] interface {
	Name() string
	fieldOf(T)
}

// SortKey is an allow-listed sort field: its stored name and a typed comparator.
type SortKey[T any] struct {
	Name    string
	Compare func(a, b T) int
	// InProcess marks a comparator the store's binary field order cannot reproduce.
	// Sorts naming such a key carry no native order.
	InProcess bool
}

// OrderedKey derives a SortKey from a field whose values are ordered.
func OrderedKey[T any, V cmp.Ordered](f Field[T, V]) SortKey[T] {
	return SortKey[T]{
		Name:    f.name,
		Compare: func(a, b T) int { return cmp.Compare(f.get(a), f.get(b)) },
	}
}

// FoldedKey derives a case-insensitive SortKey from a string field.
func FoldedKey[T any](f Field[T, string]) SortKey[T] {
	return SortKey[T]{
		Name: f.name,
		Compare: func(a, b T) int {
			return cmp.Compare(strings.ToLower(f.get(a)), strings.ToLower(f.get(b)))
		},
		InProcess: true,
	}
}

// TimeKey derives a SortKey from a time field.
func TimeKey[T any](f Field[T, time.Time]) SortKey[T] {
	return SortKey[T]{
		Name:    f.name,
		Compare: func(a, b T) int { return f.get(a).Compare(f.get(b)) },
	}
}

type resolvedKey[T any] struct {
	key  SortKey[T]
	desc bool
}

// compositeOrder resolves sort options against the allow-list.
// The first option is the primary key and each following option breaks ties left by the previous ones.
// The native order is nil when any key is ordered in process only.
func compositeOrder[T any](keys map[string]SortKey[T], sorts []SortOption) (func(a, b T) int, bson.D, error) {
	if len(sorts) == 0 {
		return nil, nil, nil
	}
	resolved := make([]resolvedKey[T], 0, len(sorts))
	native := make(bson.D, 0, len(sorts))
	inProcess := false
	for _, s := range sorts {
		key, ok := keys[s.Field]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSortField, s.Field)
		}
		inProcess = inProcess || key.InProcess
		resolved = append(resolved, resolvedKey[T]{key: key, desc: s.Descending})
		dir := 1
		if s.Descending {
			dir = -1
		}
		native = append(native, bson.E{Key: key.Name, Value: dir})
	}
	compare := func(a, b T) int {
		for _, r := range resolved {
			c := r.key.Compare(a, b)
			if r.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
	if inProcess {
		native = nil
	}
	return compare, native, nil
}

// QueryOption configures the sort and page of a filter call.
type QueryOption func(*query)

type query struct {
	sorts []SortOption
	page  *PageOption
}

// WithSort orders results by the given keys, primary key first.
func WithSort(sorts ...SortOption) QueryOption {
	return func(q *query) {
		q.sorts = append(q.sorts, sorts...)
	}
}

// WithPage restricts results to one page, applied after filtering and sorting.
func WithPage(p PageOption) QueryOption {
	return func(q *query) {
		page := p
		q.page = &page
	}
}

func buildQuery(opts []QueryOption) query {
	var q query
	for _, opt := range opts {
		if opt != nil {
			opt(&q)
		}
	}
	return q
}
