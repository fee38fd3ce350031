package memory

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

var errUpdateOperators = errors.New("update document must contain only update operators")

// applyUpdate applies $set $unset $inc $push $addToSet and $pull to a copy of doc.
func applyUpdate(doc, update bson.D) (bson.D, error) {
	if len(update) == 0 {
		return nil, errUpdateOperators
	}
	out := cloneDoc(doc)
	var err error
	for _, op := range update {
		if !strings.HasPrefix(op.Key, "$") {
			return nil, errUpdateOperators
		}
		fields, ok := op.Value.(bson.D)
		if !ok {
			return nil, fmt.Errorf("%s needs a document, got %T", op.Key, op.Value)
		}
		for _, f := range fields {
			switch op.Key {
			case "$set":
				out, err = setPath(out, f.Key, f.Value)
			case "$unset":
				out = removePath(out, f.Key)
			case "$inc":
				out, err = increment(out, f.Key, f.Value)
			case "$push":
				out, err = push(out, f.Key, f.Value, false)
			case "$addToSet":
				out, err = push(out, f.Key, f.Value, true)
			case "$pull":
				out, err = pull(out, f.Key, f.Value)
			default:
				return nil, fmt.Errorf("unsupported update operator %s", op.Key)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func increment(doc bson.D, path string, delta any) (bson.D, error) {
	if _, ok := number(delta); !ok {
		return nil, fmt.Errorf("cannot increment %q by non-numeric %T", path, delta)
	}
	cur, exists := lookup(doc, path)
	if !exists || cur == nil {
		return setPath(doc, path, delta)
	}
	return setPath(doc, path, addNumbers(cur, delta))
}

// addNumbers keeps the widest operand type: int32 stays int32, any double gives a double.
func addNumbers(a, b any) any {
	switch x := a.(type) {
	case int32:
		switch y := b.(type) {
		case int32:
			return x + y
		case int64:
			return int64(x) + y
		}
	case int64:
		switch y := b.(type) {
		case int32:
			return x + int64(y)
		case int64:
			return x + y
		}
	}
	fa, _ := number(a)
	fb, _ := number(b)
	return fa + fb
}

func push(doc bson.D, path string, value any, unique bool) (bson.D, error) {
	items := bson.A{value}
	if d, ok := value.(bson.D); ok && len(d) == 1 && d[0].Key == "$each" {
		each, isArr := d[0].Value.(bson.A)
		if !isArr {
			return nil, fmt.Errorf("$each on %q needs an array", path)
		}
		items = each
	}
	cur, exists := lookup(doc, path)
	var arr bson.A
	if exists && cur != nil {
		existing, ok := cur.(bson.A)
		if !ok {
			return nil, fmt.Errorf("field %q is %T, not an array", path, cur)
		}
		arr = append(bson.A{}, existing...)
	} else {
		arr = bson.A{}
	}
	for _, item := range items {
		if unique && contains(arr, item) {
			continue
		}
		arr = append(arr, item)
	}
	return setPath(doc, path, arr)
}

func pull(doc bson.D, path string, cond any) (bson.D, error) {
	cur, exists := lookup(doc, path)
	if !exists || cur == nil {
		return doc, nil
	}
	arr, ok := cur.(bson.A)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, not an array", path, cur)
	}
	kept := bson.A{}
	for _, item := range arr {
		var hit bool
		if ops, isOps := operatorDoc(cond); isOps {
			var err error
			if hit, err = matchOperators(item, true, ops); err != nil {
				return nil, err
			}
		} else {
			hit = equalValues(item, cond)
		}
		if !hit {
			kept = append(kept, item)
		}
	}
	return setPath(doc, path, kept)
}

func contains(arr bson.A, v any) bool {
	for _, item := range arr {
		if equalValues(item, v) {
			return true
		}
	}
	return false
}

func cloneDoc(doc bson.D) bson.D {
	out := make(bson.D, len(doc))
	for i, e := range doc {
		out[i] = bson.E{Key: e.Key, Value: cloneValue(e.Value)}
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case bson.D:
		return cloneDoc(x)
	case bson.A:
		out := make(bson.A, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
