package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/kaminari-anilist/kaminari/pkg/middleware/requestid"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	ginadapter "github.com/kaminari-anilist/kaminari/pkg/server/router/gin"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})
	return recorder
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func newRouter(cfg Config, seen *trace.SpanContext) router.Router {
	r := ginadapter.NewRouter()
	r.Use(requestid.RequestID(), Tracing(cfg))
	r.POST("/api/Anime/TopTvAnimes", func(c router.Context) error {
		if seen != nil {
			*seen = trace.SpanContextFromContext(c.Request().Context())
		}
		return c.String(http.StatusOK, "ok")
	})
	r.POST("/api/Movie/SearchMovie", func(c router.Context) error { return c.String(http.StatusBadGateway, "down") })
	r.POST("/api/Together/GetAllRooms", func(c router.Context) error { return errors.New("store down") })
	r.GET("/health", func(c router.Context) error { return c.String(http.StatusOK, "up") })
	return r
}

func TestTracing_ServerSpan(t *testing.T) {
	recorder := setupRecorder(t)
	var seen trace.SpanContext

	req := httptest.NewRequest(http.MethodPost, "/api/Anime/TopTvAnimes", nil)
	req.Header.Set(requestid.RequestIDHeader, "req-7")
	newRouter(Config{}, &seen).ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "POST /api/Anime/TopTvAnimes", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, codes.Ok, span.Status().Code)

	a := attrs(span)
	assert.Equal(t, "req-7", a["request.id"].AsString())
	assert.Equal(t, int64(200), a["http.status_code"].AsInt64())
	assert.Contains(t, a, attribute.Key("http.user_agent"))
	assert.Equal(t, span.SpanContext().SpanID(), seen.SpanID(), "handler context must carry the server span")
}

func TestTracing_StatusAndErrors(t *testing.T) {
	recorder := setupRecorder(t)
	r := newRouter(Config{}, nil)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/Movie/SearchMovie", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/Together/GetAllRooms", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "HTTP 502", spans[0].Status().Description)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "store down", spans[1].Status().Description)
	require.NotEmpty(t, spans[1].Events())
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	recorder := setupRecorder(t)

	req := httptest.NewRequest(http.MethodPost, "/api/Anime/TopTvAnimes", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	newRouter(Config{}, nil).ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}

func TestTracing_SkipAndMinimalPaths(t *testing.T) {
	recorder := setupRecorder(t)
	cfg := Config{
		SkipPaths:    []string{"/health"},
		MinimalPaths: []string{" /api/Anime"},
	}
	r := newRouter(cfg, nil)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/Anime/TopTvAnimes", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	a := attrs(spans[0])
	assert.Contains(t, a, attribute.Key("http.method"))
	assert.NotContains(t, a, attribute.Key("http.user_agent"))
	assert.Equal(t, "kaminari/http", spans[0].InstrumentationScope().Name)
}
