package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/resilience"
	"github.com/kaminari-anilist/kaminari/pkg/store/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config), opts ...Option) *Client {
	t.Helper()
	cfg := Config{Name: "test", BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Minute}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{BaseURL: "http://x"})
	assert.Error(t, err)
	_, err = New(Config{Name: "jikan"})
	assert.ErrorContains(t, err, "base URL")

	c, err := New(Config{Name: "jikan", BaseURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, c.http.Timeout)
	assert.Equal(t, "jikan", c.Name())
}

func TestFromProvider(t *testing.T) {
	p := config.ProviderConfig{BaseURL: "https://api.jikan.moe/v4", Timeout: time.Second, RequestsPerSecond: 3, Burst: 2, BreakerFailures: 4, BreakerCooldown: time.Minute}
	cfg := FromProvider("jikan", p, config.ResponseCacheConfig{Enabled: true, TTL: time.Hour})
	assert.Equal(t, "jikan", cfg.Name)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 4, cfg.BreakerFailures)

	cfg = FromProvider("jikan", p, config.ResponseCacheConfig{Enabled: false, TTL: time.Hour})
	assert.Zero(t, cfg.CacheTTL)
}

func TestClient_GetSendsQueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/anime", r.URL.Path)
		assert.Equal(t, "naruto", r.URL.Query().Get("q"))
		assert.False(t, r.URL.Query().Has("page"), "zero values must be skipped")
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "kaminari", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_ = json.NewEncoder(w).Encode(payload{Name: "ok", Count: 2})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) { cfg.BaseURL = srv.URL + "/v4/" },
		WithDefaultHeaders(NewHeaders("User-Agent", "kaminari")))

	var out payload
	err := c.Get(context.Background(), "/anime", NewQuery().Str("q", "naruto").Int("page", 0), NewHeaders().Bearer("secret"), &out)
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "ok", Count: 2}, out)
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.Count++
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()
	c := newTestClient(t, srv, nil)

	var out payload
	require.NoError(t, c.PostJSON(context.Background(), "rooms/create.json", payload{Name: "room", Count: 1}, Headers{}, &out))
	assert.Equal(t, 2, out.Count)
	require.NoError(t, c.PostJSON(context.Background(), "rooms/create.json", payload{}, Headers{}, nil))
}

func TestClient_StatusAndDecodeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.Error(w, strings.Repeat("x", 2000), http.StatusNotFound)
		case "/garbage":
			_, _ = w.Write([]byte("{not json"))
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv, nil)

	var out payload
	err := c.Get(context.Background(), "missing", nil, Headers{}, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.LessOrEqual(t, len(se.Body), errorBodyBytes)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))

	err = c.Get(context.Background(), "garbage", nil, Headers{}, &out)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Zero(t, StatusCode(err))
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	status := atomic.Int32{}
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()
	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	for range 3 {
		assert.Error(t, c.Get(ctx, "x", nil, Headers{}, nil))
	}
	assert.Equal(t, resilience.StateClosed, c.Breaker().State())

	status.Store(http.StatusBadGateway)
	for range 2 {
		assert.Error(t, c.Get(ctx, "x", nil, Headers{}, nil))
	}
	assert.Equal(t, resilience.StateOpen, c.Breaker().State())

	before := hits.Load()
	err := c.Get(ctx, "x", nil, Headers{}, nil)
	assert.ErrorIs(t, err, resilience.ErrCircuitBreakerOpen)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, before, hits.Load(), "open breaker must not reach the upstream")
}

func TestClient_SharedBreaker(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	var healthyHits atomic.Int32
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		healthyHits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer healthy.Close()

	shared := resilience.NewCircuitBreaker(1, time.Minute)
	a := newTestClient(t, failing, nil, WithBreaker(shared))
	b := newTestClient(t, healthy, nil, WithBreaker(shared))
	ctx := context.Background()

	require.Error(t, a.Get(ctx, "x", nil, Headers{}, nil))
	assert.Same(t, shared, b.Breaker())
	assert.ErrorIs(t, b.Get(ctx, "x", nil, Headers{}, nil), resilience.ErrCircuitBreakerOpen)
	assert.Zero(t, healthyHits.Load())
}

func TestClient_RateLimiterHonorsContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	c := newTestClient(t, srv, func(cfg *Config) { cfg.RequestsPerSecond = 0.01; cfg.Burst = 1 })

	require.NoError(t, c.Get(context.Background(), "x", nil, Headers{}, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Get(ctx, "x", nil, Headers{}, nil))
	assert.EqualValues(t, 1, hits.Load())
	assert.Equal(t, resilience.StateClosed, c.Breaker().State())
}

type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]time.Duration
	fail error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[key] = value
	m.ttl[key] = ttl
	return nil
}

func TestClient_CachesGetResponses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(payload{Name: r.URL.Query().Get("q")})
	}))
	defer srv.Close()

	kv := newMemoryKV()
	c := newTestClient(t, srv, func(cfg *Config) { cfg.CacheTTL = time.Minute }, WithCache(NewRedisCache(kv, nil)))
	ctx := context.Background()

	for range 3 {
		var out payload
		require.NoError(t, c.Get(ctx, "search", NewQuery().Str("q", "bebop").Str("key", "api-key"), Headers{}, &out))
		assert.Equal(t, "bebop", out.Name)
	}
	assert.EqualValues(t, 1, hits.Load())

	var other payload
	require.NoError(t, c.Get(ctx, "search", NewQuery().Str("q", "trigun"), Headers{}, &other))
	assert.EqualValues(t, 2, hits.Load())

	require.Len(t, kv.data, 2)
	for key, ttl := range kv.ttl {
		assert.True(t, strings.HasPrefix(key, "test:"))
		assert.NotContains(t, key, "api-key")
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestClient_BrokenCacheFallsThrough(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"name":"live"}`))
	}))
	defer srv.Close()

	kv := newMemoryKV()
	kv.fail = errors.New("connection refused")
	c := newTestClient(t, srv, func(cfg *Config) { cfg.CacheTTL = time.Minute }, WithCache(NewRedisCache(kv, nil)))

	for range 2 {
		var out payload
		require.NoError(t, c.Get(context.Background(), "x", nil, Headers{}, &out))
		assert.Equal(t, "live", out.Name)
	}
	assert.EqualValues(t, 2, hits.Load())
}

func TestClient_ErrorsAreNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"name":"late"}`))
	}))
	defer srv.Close()
	kv := newMemoryKV()
	c := newTestClient(t, srv, func(cfg *Config) { cfg.CacheTTL = time.Minute }, WithCache(NewRedisCache(kv, nil)))

	assert.Error(t, c.Get(context.Background(), "x", nil, Headers{}, &payload{}))
	var out payload
	require.NoError(t, c.Get(context.Background(), "x", nil, Headers{}, &out))
	assert.Equal(t, "late", out.Name)
}
