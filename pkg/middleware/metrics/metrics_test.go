package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	obsmetrics "github.com/kaminari-anilist/kaminari/pkg/observability/metrics"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	ginadapter "github.com/kaminari-anilist/kaminari/pkg/server/router/gin"
)

func scrape(t *testing.T, reg *obsmetrics.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	return string(body)
}

func TestMetrics_RecordsRoutedRequests(t *testing.T) {
	reg := obsmetrics.NewRegistry()
	r := ginadapter.NewRouter()
	r.Use(Metrics())
	r.POST("/api/Anime/TopTvAnimes", func(c router.Context) error { return c.String(http.StatusOK, "ok") })
	r.POST("/api/Movie/SearchMovie", func(c router.Context) error { return c.String(http.StatusBadGateway, "down") })
	r.POST("/api/Together/GetAllRooms", func(c router.Context) error { return errors.New("boom") })

	for _, path := range []string{"/api/Anime/TopTvAnimes", "/api/Movie/SearchMovie", "/api/Together/GetAllRooms", "/unrouted"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	out := scrape(t, reg)
	for _, want := range []string{
		`http_requests_total{method="POST",path="/api/Anime/TopTvAnimes",status="200"}`,
		`http_requests_total{method="POST",path="/api/Movie/SearchMovie",status="502"}`,
		`http_requests_total{method="POST",path="/api/Together/GetAllRooms",status="500"}`,
		`http_request_duration_seconds_bucket{method="POST",path="/api/Anime/TopTvAnimes",status="200"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scrape is missing %s", want)
		}
	}
	if strings.Contains(out, `path="/unrouted"`) {
		t.Error("unrouted paths must not become label values")
	}
	if !strings.Contains(out, "http_requests_in_flight 0") {
		t.Error("in-flight gauge should be back to zero")
	}
}
