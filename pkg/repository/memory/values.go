package memory

import (
	"bytes"
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// canonical round-trips v through the bson codec so that Go values such as int or
// time.Time take the same form as the values read back from a stored document.
func canonical(doc any) (bson.D, error) {
	if doc == nil {
		return bson.D{}, nil
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out bson.D
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// lookup resolves a dotted path. Numeric segments index into arrays.
func lookup(doc bson.D, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case bson.D:
			found := false
			for _, e := range v {
				if e.Key == part {
					cur, found = e.Value, true
					break
				}
			}
			if !found {
				return nil, false
			}
		case bson.A:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// setPath assigns value at a dotted path, creating intermediate documents.
func setPath(doc bson.D, path string, value any) (bson.D, error) {
	head, rest, nested := strings.Cut(path, ".")
	for i, e := range doc {
		if e.Key != head {
			continue
		}
		if !nested {
			doc[i].Value = value
			return doc, nil
		}
		child, ok := e.Value.(bson.D)
		if !ok {
			if e.Value != nil {
				return nil, fmt.Errorf("cannot create field %q in element of type %T", rest, e.Value)
			}
			child = bson.D{}
		}
		child, err := setPath(child, rest, value)
		if err != nil {
			return nil, err
		}
		doc[i].Value = child
		return doc, nil
	}
	if !nested {
		return append(doc, bson.E{Key: head, Value: value}), nil
	}
	child, err := setPath(bson.D{}, rest, value)
	if err != nil {
		return nil, err
	}
	return append(doc, bson.E{Key: head, Value: child}), nil
}

// removePath deletes the field at a dotted path. Missing fields are ignored.
func removePath(doc bson.D, path string) bson.D {
	head, rest, nested := strings.Cut(path, ".")
	for i, e := range doc {
		if e.Key != head {
			continue
		}
		if !nested {
			return append(doc[:i:i], doc[i+1:]...)
		}
		if child, ok := e.Value.(bson.D); ok {
			doc[i].Value = removePath(child, rest)
		}
		return doc
	}
	return doc
}

// typeRank orders values of different types the way MongoDB does.
func typeRank(v any) int {
	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return 1
	case int32, int64, float64, int:
		return 2
	case string, primitive.Symbol:
		return 3
	case bson.D, bson.M:
		return 4
	case bson.A:
		return 5
	case primitive.Binary:
		return 6
	case primitive.ObjectID:
		return 7
	case bool:
		return 8
	case primitive.DateTime:
		return 9
	case primitive.Timestamp:
		return 10
	case primitive.Regex:
		return 11
	default:
		return 12
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// compareValues is a total order over bson values.
func compareValues(a, b any) int {
	if c := cmp.Compare(typeRank(a), typeRank(b)); c != 0 {
		return c
	}
	switch x := a.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return 0
	case int32, int64, float64, int:
		fa, _ := number(x)
		fb, _ := number(b)
		return cmp.Compare(fa, fb)
	case string:
		return cmp.Compare(x, stringOf(b))
	case primitive.Symbol:
		return cmp.Compare(string(x), stringOf(b))
	case bson.D:
		return compareDocs(x, docOf(b))
	case bson.M:
		return compareDocs(mapToD(x), docOf(b))
	case bson.A:
		y := b.(bson.A)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := compareValues(x[i], y[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(x), len(y))
	case primitive.Binary:
		return bytes.Compare(x.Data, b.(primitive.Binary).Data)
	case primitive.ObjectID:
		y := b.(primitive.ObjectID)
		return bytes.Compare(x[:], y[:])
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case primitive.DateTime:
		return cmp.Compare(x, b.(primitive.DateTime))
	case primitive.Timestamp:
		y := b.(primitive.Timestamp)
		if c := cmp.Compare(x.T, y.T); c != 0 {
			return c
		}
		return cmp.Compare(x.I, y.I)
	default:
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func stringOf(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case primitive.Symbol:
		return string(s)
	default:
		return ""
	}
}

func docOf(v any) bson.D {
	switch d := v.(type) {
	case bson.D:
		return d
	case bson.M:
		return mapToD(d)
	default:
		return nil
	}
}

func mapToD(m bson.M) bson.D {
	d, err := canonical(m)
	if err != nil {
		return nil
	}
	return d
}

func compareDocs(x, y bson.D) int {
	for i := 0; i < len(x) && i < len(y); i++ {
		if c := cmp.Compare(x[i].Key, y[i].Key); c != 0 {
			return c
		}
		if c := compareValues(x[i].Value, y[i].Value); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(x), len(y))
}

func equalValues(a, b any) bool {
	return compareValues(a, b) == 0
}

// sortDocs compares two documents by a store-native sort specification.
func sortDocs(spec bson.D) func(a, b bson.D) int {
	return func(a, b bson.D) int {
		for _, e := range spec {
			va, _ := lookup(a, e.Key)
			vb, _ := lookup(b, e.Key)
			c := compareValues(va, vb)
			if dir, ok := number(e.Value); ok && dir < 0 {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
}
