// Package tracing opens an OpenTelemetry server span per request.
package tracing

import (
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/requestid"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

type Config struct {
	// TracerName defaults to "kaminari/http".
	TracerName string
	// SkipPaths are path prefixes that get no span.
	SkipPaths []string
	// MinimalPaths are path prefixes whose spans carry only the method, target and
	// status. Other spans also record the client and the authenticated user.
	MinimalPaths []string
}

func DefaultConfig() Config {
	return Config{TracerName: "kaminari/http"}
}

// Tracing continues the trace from the incoming traceparent header, or starts one,
// and closes the span with the response status. Repository and provider spans opened
// by the handler become its children.
func Tracing(cfg Config) router.MiddlewareFunc {
	if cfg.TracerName == "" {
		cfg.TracerName = DefaultConfig().TracerName
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if hasPrefix(req.URL.Path, cfg.SkipPaths) {
				return next(c)
			}
			full := !hasPrefix(req.URL.Path, cfg.MinimalPaths)

			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			// The tracer is looked up per request so a provider installed after the
			// router was built still applies.
			ctx, span := otel.Tracer(cfg.TracerName).Start(ctx, req.Method+" "+req.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.target", req.URL.Path),
				))
			defer span.End()

			if full {
				span.SetAttributes(
					attribute.String("http.host", req.Host),
					attribute.String("http.user_agent", req.UserAgent()),
					attribute.String("http.remote_addr", req.RemoteAddr),
				)
			}
			if id := requestid.GetRequestID(req.Context()); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}

			c.SetRequest(req.WithContext(ctx))
			if err := next(c); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}

			if claims := auth.GetClaims(c.Request().Context()); full && claims != nil {
				span.SetAttributes(attribute.String("enduser.id", claims.Subject))
			}
			status := c.Response().Status()
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return nil
		}
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
