// Package service implements kaminari's use cases on top of the repositories and the
// third-party API clients. Every failure is returned as an *i18n.AppError carrying a
// stable message code and the HTTP status the controllers should answer with.
package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kaminari-anilist/kaminari/pkg/apiclient"
	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"github.com/kaminari-anilist/kaminari/pkg/resilience"
)

// Message codes. The catalogs under pkg/i18n/locales translate each of them.
const (
	CodeInvalidRequest     = "request.invalid"
	CodeUserNameTaken      = "account.username_taken"
	CodeInvalidCredentials = "account.invalid_credentials"
	CodeUserNotFound       = "account.not_found"
	CodeProfileNotFound    = "watchlist.profile_not_found"
	CodeProfileExists      = "watchlist.profile_exists"
	CodeAnimeNotFound      = "watchlist.anime_not_found"
	CodeRoomNotFound       = "room.not_found"
	CodeProviderNotFound   = "provider.not_found"
	CodeProviderRejected   = "provider.rejected"
	CodeProviderLimited    = "provider.rate_limited"
	CodeProviderDown       = "provider.unavailable"
	CodeStoreFailure       = "store.failure"
)

// Causes carried by the returned AppErrors, for errors.Is.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func invalid(message string, cause error) *i18n.AppError {
	if cause == nil {
		cause = ErrInvalidRequest
	}
	return i18n.NewError(CodeInvalidRequest, nil, cause).
		WithMessage(message).
		WithHTTPStatus(http.StatusBadRequest)
}

func notFound(code, message string) *i18n.AppError {
	return i18n.NewError(code, nil, ErrNotFound).WithMessage(message).WithHTTPStatus(http.StatusNotFound)
}

func conflict(code, message string, params i18n.Params) *i18n.AppError {
	return i18n.NewError(code, params, ErrConflict).WithMessage(message).WithHTTPStatus(http.StatusConflict)
}

// storeError turns a non-successful envelope into an AppError. Duplicate keys become a
// conflict with conflictCode when one is given.
func storeError[T any](env *envelope.Envelope[T], message, conflictCode string) *i18n.AppError {
	err := env.AsError()
	if err == nil {
		return nil
	}
	if conflictCode != "" && errors.Is(err, repository.ErrDuplicateKey) {
		return i18n.NewError(conflictCode, nil, errors.Join(ErrConflict, err)).WithMessage(message).WithHTTPStatus(http.StatusConflict)
	}
	return i18n.NewError(CodeStoreFailure, nil, err).
		WithMessage(message).
		WithHTTPStatus(http.StatusInternalServerError).
		WithDetails(map[string]any{"origin": env.Origin, "outcome": string(env.Outcome)})
}

// storeFailure is storeError returning a plain error, nil on success.
func storeFailure[T any](env *envelope.Envelope[T], message, conflictCode string) error {
	if appErr := storeError(env, message, conflictCode); appErr != nil {
		return appErr
	}
	return nil
}

// deletedCount reads the count DeleteMany reports in its message.
func deletedCount[T any](env *envelope.Envelope[T]) int {
	var n int
	if _, err := fmt.Sscanf(env.Message, "%d documents deleted", &n); err != nil {
		return 0
	}
	return n
}

// providerError classifies a failed upstream call.
func providerError(provider string, err error) *i18n.AppError {
	params := i18n.Params{"provider": provider}
	switch {
	case errors.Is(err, resilience.ErrCircuitBreakerOpen):
		return i18n.NewError(CodeProviderDown, params, err).
			WithMessage(provider + " is temporarily unavailable").
			WithHTTPStatus(http.StatusServiceUnavailable)
	case !errors.Is(err, apiclient.ErrUpstream) && !errors.Is(err, apiclient.ErrDecode):
		return invalid(err.Error(), err)
	}

	switch status := apiclient.StatusCode(err); {
	case status == http.StatusNotFound:
		return i18n.NewError(CodeProviderNotFound, params, err).
			WithMessage(provider + " has no such resource").
			WithHTTPStatus(http.StatusNotFound)
	case status == http.StatusTooManyRequests:
		return i18n.NewError(CodeProviderLimited, params, err).
			WithMessage(provider + " rate limit reached").
			WithHTTPStatus(http.StatusTooManyRequests)
	case status >= 400 && status < 500:
		return i18n.NewError(CodeProviderRejected, params, err).
			WithMessage(provider + " rejected the request").
			WithHTTPStatus(http.StatusBadGateway)
	default:
		return i18n.NewError(CodeProviderDown, params, err).
			WithMessage(provider + " request failed").
			WithHTTPStatus(http.StatusBadGateway)
	}
}
