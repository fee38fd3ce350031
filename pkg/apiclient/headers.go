package apiclient

import (
	"maps"
	"net/http"
)

// Headers is an immutable set of request headers. Every modifier returns a copy, so a
// Headers value can be shared between concurrent calls without leaking one caller's
// credentials into another's request.
type Headers struct {
	values map[string]string
}

// NewHeaders builds Headers from key/value pairs. A trailing key without a value is
// ignored.
func NewHeaders(kv ...string) Headers {
	h := Headers{values: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		h.values[http.CanonicalHeaderKey(kv[i])] = kv[i+1]
	}
	return h
}

// With returns a copy with key set to value.
func (h Headers) With(key, value string) Headers {
	out := Headers{values: make(map[string]string, len(h.values)+1)}
	maps.Copy(out.values, h.values)
	out.values[http.CanonicalHeaderKey(key)] = value
	return out
}

// Bearer returns a copy carrying an Authorization bearer token.
func (h Headers) Bearer(token string) Headers {
	return h.With("Authorization", "Bearer "+token)
}

// Merge returns a copy where the entries of other win.
func (h Headers) Merge(other Headers) Headers {
	out := Headers{values: make(map[string]string, len(h.values)+len(other.values))}
	maps.Copy(out.values, h.values)
	maps.Copy(out.values, other.values)
	return out
}

// Get returns the value of key.
func (h Headers) Get(key string) string {
	return h.values[http.CanonicalHeaderKey(key)]
}

func (h Headers) Len() int { return len(h.values) }

func (h Headers) apply(req *http.Request) {
	for k, v := range h.values {
		req.Header.Set(k, v)
	}
}
