package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRegistry_ExposesEveryFamily(t *testing.T) {
	registry := NewRegistry()

	ObserveRequest("POST", "/api/Anime/Search", 200, 10*time.Millisecond)
	RecordRepositoryOperation("User", "GetByID", "SUCCESS", time.Millisecond)
	RecordOutbound("jikan", 200, 20*time.Millisecond)
	defer TrackInFlight()()

	body := scrape(t, registry)
	for _, name := range []string{
		"http_request_duration_seconds",
		"http_requests_total",
		"http_requests_in_flight",
		"repository_operations_total",
		"repository_operation_duration_seconds",
		"outbound_requests_total",
		"outbound_request_duration_seconds",
		"go_goroutines",
		"process_",
	} {
		assert.Contains(t, body, name)
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "kaminari_rooms_created_total", Help: "test"})

	require.NoError(t, registry.Register(counter))
	assert.Error(t, registry.Register(counter))

	counter.Inc()
	assert.Contains(t, scrape(t, registry), "kaminari_rooms_created_total 1")
	assert.NotContains(t, scrape(t, NewRegistry()), "kaminari_rooms_created_total", "registries are independent")
}
