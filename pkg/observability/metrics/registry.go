// Package metrics exposes kaminari's Prometheus metrics: inbound HTTP traffic,
// repository outcomes and outbound provider calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is what the management server scrapes. Every registry carries the same
// package-level collectors, so a test can build its own without touching the
// default Prometheus registry.
type Registry struct {
	reg *prometheus.Registry
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		httpRequestDuration, httpRequestsTotal, httpRequestsInFlight,
		repositoryOperations, repositoryDuration,
		outboundRequests, outboundDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{reg: reg}
}

// Register adds an application collector. Registering the same one twice fails.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.reg.Register(c)
}

// Handler serves the exposition format, OpenMetrics when the scraper asks for it.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
