package server

import (
	"net/http"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/cors"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/locale"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/logging"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/metrics"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/ratelimit"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/recovery"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/requestid"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/tracing"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// PublicOptions selects the optional parts of the public middleware chain.
type PublicOptions struct {
	CORS    cors.Config
	Logging logging.Config
	Tracing tracing.Config
	Locale  locale.Config
	// Catalog translates envelopes; nil uses an empty catalog and the fallback texts.
	Catalog *i18n.Catalog
	// Limiter throttles requests per client; nil disables rate limiting.
	Limiter   ratelimit.RateLimiter
	RateLimit ratelimit.Config
}

// DefaultPublicOptions builds the chain from cfg without a limiter or catalog.
func DefaultPublicOptions(cfg *config.Config) PublicOptions {
	return PublicOptions{
		CORS:    cors.FromConfig(cfg.CORS),
		Logging: logging.DefaultConfig(),
		Tracing: tracing.DefaultConfig(),
		Locale:  locale.DefaultConfig(),
	}
}

// PublicAPIServer serves the /api controllers.
type PublicAPIServer struct {
	*Server
	router router.Router
}

// NewPublicAPIServer installs the middleware chain on r. Routes must be registered on
// Router() afterwards, since middleware only wraps routes added after it.
func NewPublicAPIServer(cfg config.HTTPConfig, r router.Router, log logger.Logger, opts PublicOptions) *PublicAPIServer {
	r.Use(
		requestid.RequestID(),
		tracing.Tracing(opts.Tracing),
		logging.WithConfig(log, opts.Logging),
		recovery.Recovery(log),
		metrics.Metrics(),
		cors.Middleware(opts.CORS),
		locale.Middleware(opts.Locale, opts.Catalog),
		maxRequestSize(cfg.MaxRequestSize),
	)
	if opts.Limiter != nil {
		r.Use(ratelimit.RateLimit(opts.Limiter, opts.RateLimit))
	}

	return &PublicAPIServer{
		Server: NewServer(Config{
			Name:            "public",
			Port:            cfg.Port,
			ReadTimeout:     cfg.ReadTimeout,
			WriteTimeout:    cfg.WriteTimeout,
			IdleTimeout:     cfg.IdleTimeout,
			ShutdownTimeout: cfg.ShutdownTimeout,
		}, r, log),
		router: r,
	}
}

func (s *PublicAPIServer) Router() router.Router {
	return s.router
}

// maxRequestSize caps request bodies at limit bytes. Reading past it fails with
// *http.MaxBytesError, which the controllers answer with 413.
func maxRequestSize(limit int64) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		if limit <= 0 {
			return next
		}
		return func(c router.Context) error {
			req := c.Request()
			if req.Body != nil && req.Body != http.NoBody {
				req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)
			}
			return next(c)
		}
	}
}
