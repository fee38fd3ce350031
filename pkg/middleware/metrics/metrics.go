// Package metrics records Prometheus request metrics for every routed request.
package metrics

import (
	"net/http"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/observability/metrics"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// Metrics observes duration and count per method, path and status. Only registered
// routes pass through it, which keeps the path label bounded. A handler error with
// nothing written is counted as the 500 the router will send.
func Metrics() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			defer metrics.TrackInFlight()()
			start := time.Now()

			err := next(c)

			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			metrics.ObserveRequest(c.Request().Method, c.Request().URL.Path, status, time.Since(start))
			return err
		}
	}
}
