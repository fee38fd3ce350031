// Package envelope defines the uniform result wrapper returned by every data-access operation.
//
// An Envelope is never an error by itself: callers inspect Outcome to decide whether the
// operation succeeded. A Success envelope with zero items means "nothing matched" and is
// distinct from an Error envelope, whose Items are always nil.
package envelope

import (
	"errors"
	"fmt"
	"strings"
)

// Outcome classifies the result of an operation.
type Outcome string

const (
	Success Outcome = "SUCCESS"
	Warning Outcome = "WARNING"
	Error   Outcome = "ERROR"
	Info    Outcome = "INFO"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case Success, Warning, Error, Info:
		return true
	}
	return false
}

// DefaultOrigin is used when an envelope is built without an origin tag.
const DefaultOrigin = "FUNC01"

// Envelope carries the outcome of one operation together with its result items.
//
// Items is nil when the result is absent (Warning without data, every Error) and a
// non-nil, possibly empty slice on Success.
type Envelope[T any] struct {
	Outcome Outcome `json:"type"`
	Origin  string  `json:"sender"`
	Message string  `json:"definitionLang,omitempty"`
	Detail  string  `json:"detail,omitempty"`
	Items   []T     `json:"data"`

	// Err is the fault behind an Error envelope. It is not serialized.
	Err error `json:"-"`
}

// OK builds a Success envelope. A nil items slice is normalized to an empty one.
func OK[T any](origin string, items []T, message string) *Envelope[T] {
	if items == nil {
		items = []T{}
	}
	return &Envelope[T]{
		Outcome: Success,
		Origin:  originOrDefault(origin),
		Message: message,
		Items:   items,
	}
}

// Done builds a Success envelope without items, used by writes that report only a message.
func Done[T any](origin, message string) *Envelope[T] {
	return &Envelope[T]{
		Outcome: Success,
		Origin:  originOrDefault(origin),
		Message: message,
	}
}

// Warn builds a Warning envelope with absent items.
func Warn[T any](origin, message string) *Envelope[T] {
	return &Envelope[T]{
		Outcome: Warning,
		Origin:  originOrDefault(origin),
		Message: message,
	}
}

// Inform builds an Info envelope.
func Inform[T any](origin, message string, items []T) *Envelope[T] {
	return &Envelope[T]{
		Outcome: Info,
		Origin:  originOrDefault(origin),
		Message: message,
		Items:   items,
	}
}

// Fail builds an Error envelope from err. Items are always absent.
func Fail[T any](origin string, err error) *Envelope[T] {
	origin = originOrDefault(origin)
	if err == nil {
		err = errors.New("unknown failure")
	}
	return &Envelope[T]{
		Outcome: Error,
		Origin:  origin,
		Message: err.Error(),
		Detail:  Describe(err, origin),
		Err:     err,
	}
}

// Describe renders err, its inner cause and the operation origin into one detail line.
func Describe(err error, origin string) string {
	if err == nil {
		return ""
	}
	parts := []string{err.Error()}
	if inner := errors.Unwrap(err); inner != nil {
		parts = append(parts, "inner: "+inner.Error())
	}
	if origin != "" {
		parts = append(parts, "at "+origin)
	}
	return strings.Join(parts, " | ")
}

// IsSuccess reports whether the envelope has a Success outcome.
func (e *Envelope[T]) IsSuccess() bool {
	return e != nil && e.Outcome == Success
}

// IsError reports whether the envelope has an Error outcome.
func (e *Envelope[T]) IsError() bool {
	return e != nil && e.Outcome == Error
}

// Len returns the number of items carried by the envelope.
func (e *Envelope[T]) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Items)
}

// First returns the first item, if any.
func (e *Envelope[T]) First() (T, bool) {
	var zero T
	if e == nil || len(e.Items) == 0 {
		return zero, false
	}
	return e.Items[0], true
}

// AsError converts a non-successful envelope into an error. Success and Info yield nil.
func (e *Envelope[T]) AsError() error {
	if e == nil {
		return &OutcomeError{Outcome: Error, Message: "nil envelope"}
	}
	switch e.Outcome {
	case Success, Info:
		return nil
	}
	return &OutcomeError{Outcome: e.Outcome, Origin: e.Origin, Message: e.Message, Err: e.Err}
}

// OutcomeError is returned by AsError for Warning and Error envelopes.
type OutcomeError struct {
	Outcome Outcome
	Origin  string
	Message string
	Err     error
}

func (e *OutcomeError) Error() string {
	if e.Origin == "" {
		return fmt.Sprintf("%s: %s", strings.ToLower(string(e.Outcome)), e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Origin, strings.ToLower(string(e.Outcome)), e.Message)
}

func (e *OutcomeError) Unwrap() error {
	return e.Err
}

// Map converts the items of an envelope while keeping its outcome and diagnostics.
func Map[T, U any](e *Envelope[T], fn func(T) U) *Envelope[U] {
	if e == nil {
		return nil
	}
	out := &Envelope[U]{
		Outcome: e.Outcome,
		Origin:  e.Origin,
		Message: e.Message,
		Detail:  e.Detail,
		Err:     e.Err,
	}
	if e.Items != nil {
		out.Items = make([]U, len(e.Items))
		for i, item := range e.Items {
			out.Items[i] = fn(item)
		}
	}
	return out
}

func originOrDefault(origin string) string {
	if origin == "" {
		return DefaultOrigin
	}
	return origin
}
