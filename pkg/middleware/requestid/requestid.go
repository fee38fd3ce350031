// Package requestid tags every request with an id that follows it into logs and error envelopes.
package requestid

import (
	"context"

	"github.com/google/uuid"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// RequestIDHeader is the HTTP header name for request ID.
const RequestIDHeader = "X-Request-ID"

// ContextKey is the router.Context key holding the id.
const ContextKey = "request_id"

const maxLength = 128

// RequestID reuses a well-formed X-Request-ID from the client or generates a UUID, echoes
// it in the response and stores it where logger.WithContext finds it.
func RequestID() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if !acceptable(requestID) {
				requestID = uuid.NewString()
			}

			c.Set(ContextKey, requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)
			c.SetRequest(c.Request().WithContext(logger.ContextWithRequestID(c.Request().Context(), requestID)))

			return next(c)
		}
	}
}

// GetRequestID extracts the request ID from a context.
func GetRequestID(ctx context.Context) string {
	return logger.RequestIDFromContext(ctx)
}

// acceptable rejects empty, oversized and non-printable ids so they never reach log lines.
func acceptable(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
