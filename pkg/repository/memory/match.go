package memory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matches evaluates a canonical filter document against doc.
// Supported: implicit equality, $eq $ne $gt $gte $lt $lte $in $nin $exists $regex $not
// $size $elemMatch on fields and $and $or $nor at any level.
func matches(doc, filter bson.D) (bool, error) {
	for _, e := range filter {
		ok, err := matchElement(doc, e)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchElement(doc bson.D, e bson.E) (bool, error) {
	switch e.Key {
	case "$and", "$or", "$nor":
		arr, ok := e.Value.(bson.A)
		if !ok || len(arr) == 0 {
			return false, fmt.Errorf("%w: %s needs a non-empty array", repository.ErrUnsupportedFilter, e.Key)
		}
		for _, item := range arr {
			sub, ok := item.(bson.D)
			if !ok {
				return false, fmt.Errorf("%w: %s element is %T", repository.ErrUnsupportedFilter, e.Key, item)
			}
			hit, err := matches(doc, sub)
			if err != nil {
				return false, err
			}
			switch {
			case e.Key == "$and" && !hit:
				return false, nil
			case e.Key == "$or" && hit:
				return true, nil
			case e.Key == "$nor" && hit:
				return false, nil
			}
		}
		return e.Key != "$or", nil
	}
	if strings.HasPrefix(e.Key, "$") {
		return false, fmt.Errorf("%w: top-level operator %s", repository.ErrUnsupportedFilter, e.Key)
	}
	actual, exists := lookup(doc, e.Key)
	if ops, ok := operatorDoc(e.Value); ok {
		return matchOperators(actual, exists, ops)
	}
	return matchEq(actual, exists, e.Value), nil
}

// operatorDoc reports whether v is a document of query operators.
func operatorDoc(v any) (bson.D, bool) {
	d, ok := v.(bson.D)
	if !ok || len(d) == 0 || !strings.HasPrefix(d[0].Key, "$") {
		return nil, false
	}
	return d, true
}

// matchEq follows MongoDB equality: a missing field equals null and an array field
// matches when the array itself or any element equals want.
func matchEq(actual any, exists bool, want any) bool {
	if !exists {
		return typeRank(want) == 1
	}
	if equalValues(actual, want) {
		return true
	}
	if arr, ok := actual.(bson.A); ok {
		for _, item := range arr {
			if equalValues(item, want) {
				return true
			}
		}
	}
	return false
}

func matchOperators(actual any, exists bool, ops bson.D) (bool, error) {
	for _, op := range ops {
		ok, err := matchOperator(actual, exists, op, ops)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(actual any, exists bool, op bson.E, siblings bson.D) (bool, error) {
	switch op.Key {
	case "$eq":
		return matchEq(actual, exists, op.Value), nil
	case "$ne":
		return !matchEq(actual, exists, op.Value), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !exists {
			return false, nil
		}
		return anyElement(actual, func(v any) bool {
			if typeRank(v) != typeRank(op.Value) {
				return false
			}
			c := compareValues(v, op.Value)
			switch op.Key {
			case "$gt":
				return c > 0
			case "$gte":
				return c >= 0
			case "$lt":
				return c < 0
			default:
				return c <= 0
			}
		}), nil
	case "$in", "$nin":
		arr, ok := op.Value.(bson.A)
		if !ok {
			return false, fmt.Errorf("%w: %s needs an array", repository.ErrUnsupportedFilter, op.Key)
		}
		hit := false
		for _, want := range arr {
			if matchEq(actual, exists, want) {
				hit = true
				break
			}
		}
		return hit == (op.Key == "$in"), nil
	case "$exists":
		want, ok := op.Value.(bool)
		if !ok {
			n, isNum := number(op.Value)
			want, ok = n != 0, isNum
		}
		if !ok {
			return false, fmt.Errorf("%w: $exists needs a boolean", repository.ErrUnsupportedFilter)
		}
		return exists == want, nil
	case "$regex":
		re, err := compileRegex(op.Value, siblings)
		if err != nil {
			return false, err
		}
		return exists && anyElement(actual, func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		}), nil
	case "$options":
		return true, nil
	case "$not":
		inner, ok := operatorDoc(op.Value)
		if !ok {
			if rx, isRegex := op.Value.(primitive.Regex); isRegex {
				inner = bson.D{{Key: "$regex", Value: rx}}
			} else {
				return false, fmt.Errorf("%w: $not needs an operator document", repository.ErrUnsupportedFilter)
			}
		}
		hit, err := matchOperators(actual, exists, inner)
		return !hit, err
	case "$size":
		n, ok := number(op.Value)
		if !ok {
			return false, fmt.Errorf("%w: $size needs a number", repository.ErrUnsupportedFilter)
		}
		arr, isArr := actual.(bson.A)
		return exists && isArr && float64(len(arr)) == n, nil
	case "$elemMatch":
		sub, ok := op.Value.(bson.D)
		if !ok {
			return false, fmt.Errorf("%w: $elemMatch needs a document", repository.ErrUnsupportedFilter)
		}
		arr, isArr := actual.(bson.A)
		if !exists || !isArr {
			return false, nil
		}
		for _, item := range arr {
			var hit bool
			var err error
			if ops, isOps := operatorDoc(sub); isOps {
				hit, err = matchOperators(item, true, ops)
			} else if d, isDoc := item.(bson.D); isDoc {
				hit, err = matches(d, sub)
			}
			if err != nil {
				return false, err
			}
			if hit {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: operator %s", repository.ErrUnsupportedFilter, op.Key)
	}
}

func anyElement(actual any, fn func(any) bool) bool {
	if fn(actual) {
		return true
	}
	if arr, ok := actual.(bson.A); ok {
		for _, item := range arr {
			if fn(item) {
				return true
			}
		}
	}
	return false
}

func compileRegex(v any, siblings bson.D) (*regexp.Regexp, error) {
	var pattern, options string
	switch p := v.(type) {
	case string:
		pattern = p
	case primitive.Regex:
		pattern, options = p.Pattern, p.Options
	default:
		return nil, fmt.Errorf("%w: $regex needs a string", repository.ErrUnsupportedFilter)
	}
	for _, s := range siblings {
		if s.Key == "$options" {
			options, _ = s.Value.(string)
		}
	}
	var flags string
	for _, o := range options {
		switch o {
		case 'i', 'm', 's':
			flags += string(o)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrUnsupportedFilter, err)
	}
	return re, nil
}
