// Package logging writes one structured entry per HTTP request.
package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// Field names of the request entry.
const (
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"
	FieldQuery      = "query"
	FieldUserID     = "user_id"
)

type Config struct {
	Enabled bool
	// SkipPaths are path prefixes that are never logged.
	SkipPaths []string
	// MinimalPaths are path prefixes logged without client details, query or user.
	MinimalPaths []string
}

// DefaultConfig logs every API request in full and keeps probes and scrapes out.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}
}

// WithConfig logs each request through a logger bound to the request context, so the
// request id is attached. Handler errors and 5xx log at error level, 4xx at warn.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			path := c.Request().URL.Path
			if !cfg.Enabled || matches(path, cfg.SkipPaths) {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			// Later middleware may have replaced the request; read it afterwards.
			req := c.Request()
			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			fields := []any{
				FieldMethod, req.Method,
				FieldPath, path,
				FieldStatus, status,
				FieldDurationMS, time.Since(start).Milliseconds(),
			}
			if !matches(path, cfg.MinimalPaths) {
				fields = append(fields, FieldRemoteAddr, req.RemoteAddr, FieldUserAgent, req.UserAgent())
				if req.URL.RawQuery != "" {
					fields = append(fields, FieldQuery, req.URL.RawQuery)
				}
				if claims := auth.GetClaims(req.Context()); claims != nil {
					fields = append(fields, FieldUserID, claims.Subject)
				}
			}

			entry := log.WithContext(req.Context())
			switch {
			case err != nil:
				entry.Error("request failed", append(fields, FieldError, err)...)
			case status >= http.StatusInternalServerError:
				entry.Error("request completed", fields...)
			case status >= http.StatusBadRequest:
				entry.Warn("request completed", fields...)
			default:
				entry.Info("request completed", fields...)
			}
			return err
		}
	}
}

func matches(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
