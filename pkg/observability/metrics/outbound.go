package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	outboundRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_requests_total",
			Help: "Calls to third-party APIs by provider and status. Transport failures use status 0.",
		},
		[]string{"provider", "status"},
	)

	outboundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbound_request_duration_seconds",
			Help:    "Duration of calls to third-party APIs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// RecordOutbound records one call to a third-party API.
func RecordOutbound(provider string, status int, duration time.Duration) {
	outboundRequests.WithLabelValues(provider, strconv.Itoa(status)).Inc()
	outboundDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
