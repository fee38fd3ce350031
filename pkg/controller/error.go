package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// AppError is the single application error contract shared across layers.
type AppError = i18n.AppError

// Message codes owned by the HTTP layer.
const (
	CodeInvalidRequest   = "request.invalid"
	CodeMalformedRequest = "request.malformed"
	CodeRequestTooLarge  = "request.too_large"
	CodeUnauthorized     = "account.unauthorized"
	CodeInternal         = "internal.error"
)

// ErrorResponse is an Error envelope with the application error code attached, so clients
// that only read {type, sender, definitionLang} keep working.
type ErrorResponse struct {
	envelope.Envelope[any]
	Code      string         `json:"code,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// MapError maps err to a status code and an Error envelope tagged with origin.
func MapError(ctx context.Context, origin string, err error) (int, ErrorResponse) {
	appErr := asAppError(err)

	status := appErr.HTTPStatus
	if status == 0 {
		status = inferStatusFromCode(appErr.Code)
	}

	message := appErr.Localize(i18n.TranslatorFromContext(ctx))
	if message == "" {
		message = "an unexpected error occurred"
	}

	resp := ErrorResponse{
		Envelope: envelope.Envelope[any]{
			Outcome: envelope.Error,
			Origin:  origin,
			Message: message,
		},
		Code:      appErr.Code,
		RequestID: logger.RequestIDFromContext(ctx),
		Details:   appErr.Details,
	}
	if status < http.StatusInternalServerError && appErr.FallbackMessage != message {
		resp.Detail = appErr.FallbackMessage
	}
	return status, resp
}

// asAppError classifies err. Binding failures become request errors; anything that is not
// already an AppError is an internal error whose text never reaches the client.
func asAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return NewValidationError("request validation failed", map[string]any{"fields": fields}, err)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return i18n.NewError(CodeRequestTooLarge, i18n.Params{"limit": tooLarge.Limit}, err).
			WithMessage("request body is too large").
			WithHTTPStatus(http.StatusRequestEntityTooLarge)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, router.ErrEmptyBody) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return i18n.NewError(CodeMalformedRequest, nil, err).
			WithMessage("request body could not be decoded").
			WithHTTPStatus(http.StatusBadRequest)
	}

	return NewInternalError("an unexpected error occurred", err)
}

// NewValidationError creates a 400 error carrying per-field details.
func NewValidationError(message string, details map[string]any, cause error) *AppError {
	return i18n.NewError(CodeInvalidRequest, nil, cause).
		WithMessage(message).
		WithHTTPStatus(http.StatusBadRequest).
		WithDetails(details)
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string, cause error) *AppError {
	return i18n.NewError(CodeUnauthorized, nil, cause).
		WithMessage(message).
		WithHTTPStatus(http.StatusUnauthorized)
}

// NewInternalError creates a new internal error with optional cause.
func NewInternalError(message string, cause error) *AppError {
	return i18n.NewError(CodeInternal, nil, cause).
		WithMessage(message).
		WithHTTPStatus(http.StatusInternalServerError)
}

// localize translates code for the request locale, or returns fallback when the
// catalog does not know it.
func localize(ctx context.Context, code string, params i18n.Params, fallback string) string {
	if text := i18n.TranslatorFromContext(ctx).T(code, params); text != code {
		return text
	}
	return fallback
}

func inferStatusFromCode(code string) int {
	lowerCode := strings.ToLower(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(lowerCode, "request."):
		return http.StatusBadRequest
	case strings.Contains(lowerCode, "unauthorized"), strings.Contains(lowerCode, "invalid_credentials"):
		return http.StatusUnauthorized
	case strings.Contains(lowerCode, "not_found"):
		return http.StatusNotFound
	case strings.Contains(lowerCode, "exists"), strings.Contains(lowerCode, "taken"):
		return http.StatusConflict
	case strings.HasPrefix(lowerCode, "provider."):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
