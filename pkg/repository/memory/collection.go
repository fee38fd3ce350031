package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the handle to one collection of T inside a Store.
type Collection[T repository.Document] struct {
	store *Store
	name  string
}

// Open returns the handle for name, or for the collection named after T when name is
// empty. The collection itself is created on first write.
func Open[T repository.Document](s *Store, name string) *Collection[T] {
	if name == "" {
		name = repository.CollectionName[T]()
	}
	return &Collection[T]{store: s, name: name}
}

var _ repository.Collection[probe] = (*Collection[probe])(nil)

// Name implements repository.Collection.
func (c *Collection[T]) Name() string {
	return c.name
}

type candidate[T any] struct {
	pos   int
	value T
	doc   bson.D
}

// matcher evaluates each clause of filter in process when it carries a Go predicate,
// otherwise against its canonical document form.
type matcher[T any] struct {
	clauses []repository.Clause[T]
	docs    []bson.D
}

func newMatcher[T any](filter repository.Filter[T]) (*matcher[T], error) {
	m := &matcher[T]{clauses: filter.Clauses()}
	m.docs = make([]bson.D, len(m.clauses))
	for i, c := range m.clauses {
		if c.Match != nil {
			continue
		}
		doc, err := canonical(c.Doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrUnsupportedFilter, err)
		}
		m.docs[i] = doc
	}
	return m, nil
}

func (m *matcher[T]) match(e entry) (T, bool, error) {
	var value T
	if err := bson.Unmarshal(e.raw, &value); err != nil {
		return value, false, err
	}
	for i, c := range m.clauses {
		if c.Match != nil {
			if !c.Match(value) {
				return value, false, nil
			}
			continue
		}
		ok, err := matches(e.doc, m.docs[i])
		if err != nil || !ok {
			return value, false, err
		}
	}
	return value, true, nil
}

// scan returns every matching document in insertion order. Callers hold the store lock.
func (c *Collection[T]) scan(filter repository.Filter[T], limit int) ([]candidate[T], error) {
	t := c.store.table(c.name, false)
	if t == nil {
		return []candidate[T]{}, nil
	}
	m, err := newMatcher(filter)
	if err != nil {
		return nil, err
	}
	out := []candidate[T]{}
	for i, e := range t.docs {
		value, ok, err := m.match(e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, candidate[T]{pos: i, value: value, doc: e.doc})
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Find implements repository.Collection. It never reports a missing result set.
func (c *Collection[T]) Find(ctx context.Context, filter repository.Filter[T], opts repository.FindOptions[T]) ([]T, error) {
	var items []T
	err := c.store.read(ctx, func() error {
		hits, err := c.scan(filter, 0)
		if err != nil {
			return err
		}
		switch {
		case opts.Compare != nil:
			slices.SortStableFunc(hits, func(a, b candidate[T]) int { return opts.Compare(a.value, b.value) })
		case len(opts.Sort) > 0:
			order := sortDocs(opts.Sort)
			slices.SortStableFunc(hits, func(a, b candidate[T]) int { return order(a.doc, b.doc) })
		}
		start := min(int(max(opts.Skip, 0)), len(hits))
		end := len(hits)
		if opts.Limit > 0 && opts.Limit < int64(end-start) {
			end = start + int(opts.Limit)
		}
		items = make([]T, 0, end-start)
		for _, h := range hits[start:end] {
			items = append(items, h.value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Count implements repository.Collection.
func (c *Collection[T]) Count(ctx context.Context, filter repository.Filter[T]) (int64, error) {
	var n int64
	err := c.store.read(ctx, func() error {
		hits, err := c.scan(filter, 0)
		n = int64(len(hits))
		return err
	})
	return n, err
}

// InsertOne implements repository.Collection.
func (c *Collection[T]) InsertOne(ctx context.Context, doc T) error {
	return c.InsertMany(ctx, []T{doc})
}

// InsertMany inserts in order and stops at the first failure; earlier documents stay.
func (c *Collection[T]) InsertMany(ctx context.Context, docs []T) error {
	return c.store.write(ctx, func() error {
		t := c.store.table(c.name, true)
		for i, doc := range docs {
			d, err := canonical(doc)
			if err != nil {
				return fmt.Errorf("encode document %d: %w", i, err)
			}
			d, _ = withID(d)
			if err := t.checkUnique(c.name, d, -1); err != nil {
				return err
			}
			e, err := newEntry(d)
			if err != nil {
				return err
			}
			t.docs = append(t.docs, e)
		}
		return nil
	})
}

// ReplaceOne implements repository.Collection. The replacement keeps the identifier of
// the matched document; a replacement carrying a different identifier is rejected.
func (c *Collection[T]) ReplaceOne(ctx context.Context, filter repository.Filter[T], doc T, upsert bool) (repository.WriteResult, error) {
	res := repository.WriteResult{Acknowledged: true}
	err := c.store.write(ctx, func() error {
		replacement, err := canonical(doc)
		if err != nil {
			return fmt.Errorf("encode replacement: %w", err)
		}
		hits, err := c.scan(filter, 1)
		if err != nil {
			return err
		}
		t := c.store.table(c.name, true)
		if len(hits) == 0 {
			if !upsert {
				return nil
			}
			replacement, id := withID(replacement)
			if err := t.checkUnique(c.name, replacement, -1); err != nil {
				return err
			}
			e, err := newEntry(replacement)
			if err != nil {
				return err
			}
			t.docs = append(t.docs, e)
			res.UpsertedCount, res.UpsertedID = 1, id
			return nil
		}

		hit := hits[0]
		res.MatchedCount = 1
		oldID, _ := lookup(hit.doc, repository.IDField)
		if newID, ok := lookup(replacement, repository.IDField); ok {
			if !equalValues(oldID, newID) {
				return repository.ErrImmutableID
			}
		} else {
			replacement = append(bson.D{{Key: repository.IDField, Value: oldID}}, replacement...)
		}
		return c.store.commit(c.name, t, hit.pos, replacement, &res)
	})
	return res, err
}

// UpdateOne implements repository.Collection. It never upserts.
func (c *Collection[T]) UpdateOne(ctx context.Context, filter repository.Filter[T], update bson.D) (repository.WriteResult, error) {
	res := repository.WriteResult{Acknowledged: true}
	err := c.store.write(ctx, func() error {
		ops, err := canonical(update)
		if err != nil {
			return fmt.Errorf("encode update: %w", err)
		}
		hits, err := c.scan(filter, 1)
		if err != nil || len(hits) == 0 {
			return err
		}
		hit := hits[0]
		res.MatchedCount = 1
		updated, err := applyUpdate(hit.doc, ops)
		if err != nil {
			return err
		}
		oldID, _ := lookup(hit.doc, repository.IDField)
		if newID, ok := lookup(updated, repository.IDField); !ok || !equalValues(oldID, newID) {
			return repository.ErrImmutableID
		}
		raw, err := bson.Marshal(updated)
		if err != nil {
			return err
		}
		var decoded T
		if err := bson.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("updated document no longer decodes: %w", err)
		}
		return c.store.commit(c.name, c.store.table(c.name, true), hit.pos, updated, &res)
	})
	return res, err
}

// commit replaces the document at pos after the unique check. Callers hold the write lock.
func (s *Store) commit(name string, t *table, pos int, doc bson.D, res *repository.WriteResult) error {
	if err := t.checkUnique(name, doc, pos); err != nil {
		return err
	}
	e, err := newEntry(doc)
	if err != nil {
		return err
	}
	if !bytes.Equal(e.raw, t.docs[pos].raw) {
		res.ModifiedCount = 1
	}
	t.docs = slices.Clone(t.docs)
	t.docs[pos] = e
	return nil
}

// FindOneAndDelete implements repository.Collection.
func (c *Collection[T]) FindOneAndDelete(ctx context.Context, filter repository.Filter[T]) (T, bool, error) {
	var (
		doc   T
		found bool
	)
	err := c.store.write(ctx, func() error {
		hits, err := c.scan(filter, 1)
		if err != nil || len(hits) == 0 {
			return err
		}
		t := c.store.table(c.name, false)
		t.docs = slices.Delete(slices.Clone(t.docs), hits[0].pos, hits[0].pos+1)
		doc, found = hits[0].value, true
		return nil
	})
	return doc, found, err
}

// DeleteMany implements repository.Collection.
func (c *Collection[T]) DeleteMany(ctx context.Context, filter repository.Filter[T]) (int64, error) {
	var n int64
	err := c.store.write(ctx, func() error {
		hits, err := c.scan(filter, 0)
		if err != nil || len(hits) == 0 {
			return err
		}
		t := c.store.table(c.name, false)
		drop := make(map[int]struct{}, len(hits))
		for _, h := range hits {
			drop[h.pos] = struct{}{}
		}
		kept := make([]entry, 0, len(t.docs)-len(hits))
		for i, e := range t.docs {
			if _, ok := drop[i]; !ok {
				kept = append(kept, e)
			}
		}
		t.docs = kept
		n = int64(len(hits))
		return nil
	})
	return n, err
}

// Aggregate implements repository.Collection for the $match $group $sort $skip and
// $limit stages.
func (c *Collection[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error) {
	var out []bson.M
	err := c.store.read(ctx, func() error {
		stages := make([]bson.D, len(pipeline))
		for i, stage := range pipeline {
			d, err := canonical(stage)
			if err != nil {
				return fmt.Errorf("%w: stage %d: %v", repository.ErrUnsupportedAggregation, i, err)
			}
			stages[i] = d
		}
		var docs []bson.D
		if t := c.store.table(c.name, false); t != nil {
			docs = make([]bson.D, len(t.docs))
			for i, e := range t.docs {
				docs[i] = e.doc
			}
		}
		rows, err := runPipeline(docs, stages)
		if err != nil {
			return err
		}
		out = make([]bson.M, len(rows))
		for i, row := range rows {
			out[i] = toMap(row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListIndexes implements repository.Collection. The _id index is always reported first.
func (c *Collection[T]) ListIndexes(ctx context.Context) ([]repository.IndexSpec, error) {
	var specs []repository.IndexSpec
	err := c.store.read(ctx, func() error {
		specs = []repository.IndexSpec{{Name: idIndex, Keys: bson.D{{Key: repository.IDField, Value: int32(1)}}}}
		if t := c.store.table(c.name, false); t != nil {
			specs = append(specs, t.indexes...)
		}
		return nil
	})
	return specs, err
}

// CreateIndexes implements repository.Collection. Creating an index that already
// exists under the same name is a no-op.
func (c *Collection[T]) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	var names []string
	err := c.store.write(ctx, func() error {
		t := c.store.table(c.name, true)
		for _, m := range models {
			keys, err := canonical(m.Keys)
			if err != nil || len(keys) == 0 {
				return fmt.Errorf("invalid index keys %v", m.Keys)
			}
			spec := repository.IndexSpec{Name: indexName(keys), Keys: keys}
			if m.Options != nil {
				if m.Options.Name != nil {
					spec.Name = *m.Options.Name
				}
				if m.Options.Unique != nil {
					spec.Unique = *m.Options.Unique
				}
			}
			names = append(names, spec.Name)
			if slices.ContainsFunc(t.indexes, func(s repository.IndexSpec) bool { return s.Name == spec.Name }) {
				continue
			}
			candidate := &table{docs: t.docs, indexes: []repository.IndexSpec{spec}}
			for i, e := range t.docs {
				if err := candidate.checkUnique(c.name, e.doc, i); err != nil {
					return fmt.Errorf("create index %s: %w", spec.Name, err)
				}
			}
			t.indexes = append(t.indexes, spec)
		}
		return nil
	})
	return names, err
}

type probe struct{}

func (probe) DocumentID() primitive.ObjectID { return primitive.NilObjectID }
