// Package i18n holds kaminari's message catalog and the coded error type that
// services return. Controllers translate the code for the caller's locale.
package i18n

import (
	"errors"
	"fmt"
	"maps"
)

// Params are the values substituted into a message template.
type Params map[string]any

// AppError is an error identified by a catalog code. FallbackMessage is used when the
// catalog has no entry for the code, and as the developer-facing detail otherwise.
type AppError struct {
	Code            string
	FallbackMessage string
	Params          Params
	Details         map[string]any
	HTTPStatus      int
	Cause           error
}

// NewError creates an AppError for code. params is copied.
func NewError(code string, params Params, cause error) *AppError {
	return &AppError{Code: code, Params: maps.Clone(params), Cause: cause}
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	label := e.Code
	if e.FallbackMessage != "" {
		label = e.FallbackMessage
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", label, e.Cause)
	}
	return label
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another AppError with the same code, so a bare NewError(code, nil, nil)
// works as a sentinel.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if e == nil || !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Code == e.Code
}

func (e *AppError) WithMessage(message string) *AppError {
	if e != nil {
		e.FallbackMessage = message
	}
	return e
}

func (e *AppError) WithHTTPStatus(status int) *AppError {
	if e != nil {
		e.HTTPStatus = status
	}
	return e
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e != nil {
		e.Details = details
	}
	return e
}

// Localize renders the error for t, or the fallback message when t does not know
// the code.
func (e *AppError) Localize(t Translator) string {
	if e == nil {
		return ""
	}
	if t != nil {
		if text := t.T(e.Code, e.Params); text != e.Code {
			return text
		}
	}
	if e.FallbackMessage != "" {
		return e.FallbackMessage
	}
	return e.Code
}
