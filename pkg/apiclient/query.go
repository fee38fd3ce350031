package apiclient

import (
	"net/url"
	"strconv"
)

// Query builds URL query parameters, skipping zero values the way the upstream APIs
// expect optional filters to be omitted.
type Query struct {
	values url.Values
}

func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

// Str sets key when value is not empty.
func (q *Query) Str(key, value string) *Query {
	if value != "" {
		q.values.Set(key, value)
	}
	return q
}

// Int sets key when value is not zero.
func (q *Query) Int(key string, value int) *Query {
	if value != 0 {
		q.values.Set(key, strconv.Itoa(value))
	}
	return q
}

// Float sets key when value is not zero.
func (q *Query) Float(key string, value float64) *Query {
	if value != 0 {
		q.values.Set(key, strconv.FormatFloat(value, 'f', -1, 64))
	}
	return q
}

// Bool always sets key, since false is meaningful to every API that takes a flag.
func (q *Query) Bool(key string, value bool) *Query {
	q.values.Set(key, strconv.FormatBool(value))
	return q
}

// OptBool sets key when value is not nil.
func (q *Query) OptBool(key string, value *bool) *Query {
	if value != nil {
		q.Bool(key, *value)
	}
	return q
}

// Values returns a copy of the parameters.
func (q *Query) Values() url.Values {
	if q == nil {
		return url.Values{}
	}
	out := make(url.Values, len(q.values))
	for k, v := range q.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Encode renders the parameters sorted by key.
func (q *Query) Encode() string {
	if q == nil {
		return ""
	}
	return q.values.Encode()
}
