package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream wraps every failure caused by the remote API or the network.
	ErrUpstream = errors.New("upstream request failed")
	// ErrDecode is returned when a successful response cannot be decoded.
	ErrDecode = errors.New("decode upstream response")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Provider   string
	StatusCode int
	// Body is the beginning of the response body, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// Temporary reports whether the status is worth retrying later.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
