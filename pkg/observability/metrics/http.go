package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Inbound traffic. The path label is the registered route, so its cardinality is
// bounded by the route table.
var (
	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Time to serve an API request, by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "API requests served, by method, route and status.",
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "API requests currently being served.",
	})
)

// ObserveRequest records one served request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// TrackInFlight raises the in-flight gauge. The returned func lowers it again.
func TrackInFlight() (done func()) {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}
