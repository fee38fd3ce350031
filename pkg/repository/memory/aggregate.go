package memory

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
)

// runPipeline evaluates the $match $group $sort $skip and $limit stages.
func runPipeline(docs []bson.D, pipeline []bson.D) ([]bson.D, error) {
	rows := docs
	for _, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("%w: a stage must have exactly one operator", repository.ErrUnsupportedAggregation)
		}
		spec := stage[0]
		var err error
		switch spec.Key {
		case "$match":
			filter, ok := spec.Value.(bson.D)
			if !ok {
				return nil, fmt.Errorf("%w: $match needs a document", repository.ErrUnsupportedAggregation)
			}
			kept := make([]bson.D, 0, len(rows))
			for _, row := range rows {
				hit, err := matches(row, filter)
				if err != nil {
					return nil, err
				}
				if hit {
					kept = append(kept, row)
				}
			}
			rows = kept
		case "$group":
			rows, err = group(rows, spec.Value)
		case "$sort":
			order, ok := spec.Value.(bson.D)
			if !ok || len(order) == 0 {
				return nil, fmt.Errorf("%w: $sort needs a document", repository.ErrUnsupportedAggregation)
			}
			rows = slices.Clone(rows)
			slices.SortStableFunc(rows, sortDocs(order))
		case "$skip", "$limit":
			n, ok := number(spec.Value)
			if !ok || n < 0 {
				return nil, fmt.Errorf("%w: %s needs a non-negative number", repository.ErrUnsupportedAggregation, spec.Key)
			}
			if spec.Key == "$skip" {
				rows = rows[min(int(n), len(rows)):]
			} else {
				rows = rows[:min(int(n), len(rows))]
			}
		default:
			return nil, fmt.Errorf("%w: stage %s", repository.ErrUnsupportedAggregation, spec.Key)
		}
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

type accumulator struct {
	alias string
	op    string
	expr  any
}

type groupState struct {
	key    any
	sums   []float64
	counts []int
	ints   []bool
	best   []any
}

func group(rows []bson.D, spec any) ([]bson.D, error) {
	def, ok := spec.(bson.D)
	if !ok {
		return nil, fmt.Errorf("%w: $group needs a document", repository.ErrUnsupportedAggregation)
	}
	var keyExpr any
	hasKey := false
	var accs []accumulator
	for _, e := range def {
		if e.Key == "_id" {
			keyExpr, hasKey = e.Value, true
			continue
		}
		op, ok := e.Value.(bson.D)
		if !ok || len(op) != 1 {
			return nil, fmt.Errorf("%w: accumulator %q", repository.ErrUnsupportedAggregation, e.Key)
		}
		switch op[0].Key {
		case "$sum", "$avg", "$min", "$max":
		default:
			return nil, fmt.Errorf("%w: accumulator %s", repository.ErrUnsupportedAggregation, op[0].Key)
		}
		accs = append(accs, accumulator{alias: e.Key, op: op[0].Key, expr: op[0].Value})
	}
	if !hasKey {
		return nil, fmt.Errorf("%w: $group needs an _id", repository.ErrUnsupportedAggregation)
	}

	var order []*groupState
	for _, row := range rows {
		key := evaluate(row, keyExpr)
		var st *groupState
		for _, g := range order {
			if equalValues(g.key, key) {
				st = g
				break
			}
		}
		if st == nil {
			st = &groupState{
				key:    key,
				sums:   make([]float64, len(accs)),
				counts: make([]int, len(accs)),
				ints:   slices.Repeat([]bool{true}, len(accs)),
				best:   make([]any, len(accs)),
			}
			order = append(order, st)
		}
		for i, a := range accs {
			v := evaluate(row, a.expr)
			switch a.op {
			case "$sum", "$avg":
				n, isNum := number(v)
				if !isNum {
					continue
				}
				if _, isFloat := v.(float64); isFloat {
					st.ints[i] = false
				}
				st.sums[i] += n
				st.counts[i]++
			case "$min", "$max":
				if v == nil {
					continue
				}
				c := 0
				if st.best[i] != nil {
					c = compareValues(v, st.best[i])
				}
				if st.best[i] == nil || (a.op == "$min" && c < 0) || (a.op == "$max" && c > 0) {
					st.best[i] = v
				}
			}
		}
	}

	out := make([]bson.D, 0, len(order))
	for _, st := range order {
		row := bson.D{{Key: "_id", Value: st.key}}
		for i, a := range accs {
			var v any
			switch a.op {
			case "$sum":
				if st.ints[i] {
					v = int64(st.sums[i])
				} else {
					v = st.sums[i]
				}
			case "$avg":
				if st.counts[i] > 0 {
					v = st.sums[i] / float64(st.counts[i])
				}
			default:
				v = st.best[i]
			}
			row = append(row, bson.E{Key: a.alias, Value: v})
		}
		out = append(out, row)
	}
	return out, nil
}

// evaluate resolves a "$field" path reference; any other expression is a literal.
func evaluate(row bson.D, expr any) any {
	s, ok := expr.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return expr
	}
	v, _ := lookup(row, strings.TrimPrefix(s, "$"))
	return v
}

func toMap(d bson.D) bson.M {
	m := make(bson.M, len(d))
	for _, e := range d {
		m[e.Key] = e.Value
	}
	return m
}
