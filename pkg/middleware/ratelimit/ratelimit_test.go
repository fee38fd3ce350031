package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	ginadapter "github.com/kaminari-anilist/kaminari/pkg/server/router/gin"
	"github.com/kaminari-anilist/kaminari/pkg/testutil"
)

func TestTokenBucketLimiter_BurstThenDeny(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 2)
	ctx := context.Background()

	ok, _ := limiter.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = limiter.Allow(ctx, "a")
	assert.True(t, ok)

	ok, wait := limiter.Allow(ctx, "a")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Second)

	ok, _ = limiter.Allow(ctx, "b")
	assert.True(t, ok, "keys are limited independently")
}

func TestTokenBucketLimiter_Concurrent(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 10)
	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(context.Background(), "shared"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(10), allowed.Load())
}

func newRouter(limiter RateLimiter, cfg Config) router.Router {
	r := ginadapter.NewRouter()
	r.Use(RateLimit(limiter, cfg))
	r.POST("/api/Anime/TopTvAnimes", func(c router.Context) error { return c.String(http.StatusOK, "ok") })
	r.GET("/health", func(c router.Context) error { return c.String(http.StatusOK, "up") })
	return r
}

func TestRateLimit_RejectsWithEnvelope(t *testing.T) {
	r := newRouter(NewTokenBucketLimiter(1, 1), Config{})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/Anime/TopTvAnimes", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/Anime/TopTvAnimes", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "ERROR", body["type"])
	assert.Equal(t, "RateLimit", body["sender"])
	assert.Equal(t, CodeExceeded, body["code"])
	assert.Equal(t, "Too many requests, try again later", body["definitionLang"])
}

func TestRateLimit_ExcludedPaths(t *testing.T) {
	r := newRouter(NewTokenBucketLimiter(1, 1), Config{ExcludedPathPrefixes: []string{"/health"}})
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_KeysByIP(t *testing.T) {
	r := newRouter(NewTokenBucketLimiter(1, 1), Config{})

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/Anime/TopTvAnimes", nil)
		req.RemoteAddr = ip + ":51000"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
}

func TestClientKey(t *testing.T) {
	r := ginadapter.NewRouter()
	var keys []string
	r.POST("/k", func(c router.Context) error {
		keys = append(keys, ClientKey(c))
		return c.String(http.StatusOK, "")
	})

	anon := httptest.NewRequest(http.MethodPost, "/k", nil)
	anon.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), anon)

	authed := httptest.NewRequest(http.MethodPost, "/k", nil)
	authed = authed.WithContext(auth.WithClaims(authed.Context(), &auth.Claims{Subject: "u-1"}))
	r.ServeHTTP(httptest.NewRecorder(), authed)

	assert.Equal(t, []string{"ip:203.0.113.9", "user:u-1"}, keys)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": " 198.51.100.4 ,10.0.0.1"}, remote: "10.0.0.1:80", want: "198.51.100.4"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.5"}, remote: "10.0.0.1:80", want: "198.51.100.5"},
		{name: "remote addr", remote: "192.0.2.1:443", want: "192.0.2.1"},
		{name: "ipv6 remote", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "no port", remote: "192.0.2.7", want: "192.0.2.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], window / 2, nil
}

func TestRedisRateLimiter_WindowLimit(t *testing.T) {
	counter := &fakeCounter{}
	limiter := NewRedisRateLimiter(counter, 2, 1, 2*time.Second, 0, nil)

	// 2 req/s over a 2s window plus a burst of 1.
	for i := 0; i < 5; i++ {
		ok, _ := limiter.Allow(context.Background(), "ip:1")
		require.True(t, ok, "request %d", i+1)
	}
	ok, wait := limiter.Allow(context.Background(), "ip:1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)
	assert.Contains(t, counter.counts, "ratelimit:ip:1")
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	log := testutil.NewRecordingLogger()
	limiter := NewRedisRateLimiter(&fakeCounter{err: errors.New("connection refused")}, 1, 0, time.Second, time.Second, log)

	ok, _ := limiter.Allow(context.Background(), "ip:1")
	assert.True(t, ok)
	_, found := log.Find("redis rate limiter unavailable, allowing request")
	assert.True(t, found)
}
