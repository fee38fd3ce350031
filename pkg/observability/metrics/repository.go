package metrics

import (
	"context"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	repositoryOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_operations_total",
			Help: "Repository operations by collection, operation and envelope outcome",
		},
		[]string{"collection", "operation", "outcome"},
	)

	repositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_operation_duration_seconds",
			Help:    "Repository operation duration in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"collection", "operation"},
	)
)

// RecordRepositoryOperation records one finished repository operation.
func RecordRepositoryOperation(collection, operation string, outcome envelope.Outcome, duration time.Duration) {
	repositoryOperations.WithLabelValues(collection, operation, string(outcome)).Inc()
	repositoryDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// RepositoryObserver returns an observer that records every operation it sees.
func RepositoryObserver() repository.Observer {
	return repository.ObserverFunc(func(ctx context.Context, collection, operation string) (context.Context, repository.FinishFunc) {
		start := time.Now()
		return ctx, func(outcome envelope.Outcome, _ error) {
			RecordRepositoryOperation(collection, operation, outcome, time.Since(start))
		}
	})
}
