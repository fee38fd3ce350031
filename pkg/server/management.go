package server

import (
	"net/http"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/health"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/recovery"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/observability/metrics"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	"github.com/kaminari-anilist/kaminari/pkg/version"
)

// ManagementServer exposes probes, metrics and build information on a port of its own.
//
//	GET /health   liveness; always 200 with every check result
//	GET /ready    readiness; 503 once a check is unhealthy
//	GET /metrics  Prometheus exposition
//	GET /version  build metadata
type ManagementServer struct {
	*Server
}

// NewManagementServer registers the management routes on r.
func NewManagementServer(
	cfg config.ManagementConfig,
	r router.Router,
	log logger.Logger,
	healthRegistry *health.Registry,
	metricsRegistry *metrics.Registry,
	info version.Info,
) *ManagementServer {
	if healthRegistry == nil {
		healthRegistry = health.NewRegistry()
	}
	if metricsRegistry == nil {
		metricsRegistry = metrics.NewRegistry()
	}

	r.Use(recovery.Recovery(log))

	r.GET("/health", func(c router.Context) error {
		return c.JSON(http.StatusOK, healthRegistry.Check(c.Request().Context()))
	})
	r.GET("/ready", func(c router.Context) error {
		result := healthRegistry.Check(c.Request().Context())
		status := http.StatusOK
		if !result.Ready() {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, result)
	})

	metricsHandler := metricsRegistry.Handler()
	r.GET("/metrics", func(c router.Context) error {
		metricsHandler.ServeHTTP(c.Response(), c.Request())
		return nil
	})
	r.GET("/version", func(c router.Context) error {
		return c.JSON(http.StatusOK, info)
	})

	return &ManagementServer{
		Server: NewServer(Config{
			Name:         "management",
			Port:         cfg.Port,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}, r, log),
	}
}
