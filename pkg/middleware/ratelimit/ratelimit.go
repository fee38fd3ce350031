// Package ratelimit throttles inbound requests per client key, either in process with a
// token bucket or across replicas with a Redis window counter.
package ratelimit

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/controller"
	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// CodeExceeded is the message code of a throttled request.
const CodeExceeded = "rate_limit.exceeded"

// RateLimiter decides whether the request identified by key may proceed. When it may
// not, retryAfter tells the client how long to wait.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration)
}

// TokenBucketLimiter keeps one x/time/rate limiter per key.
type TokenBucketLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewTokenBucketLimiter allows requestsPerSecond on average per key with bursts of up
// to burst requests.
func NewTokenBucketLimiter(requestsPerSecond float64, burst int) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketLimiter{rate: rate.Limit(requestsPerSecond), burst: burst}
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	limiter := l.limiter(key)
	r := limiter.Reserve()
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay
	}
	return true, 0
}

func (l *TokenBucketLimiter) limiter(key string) *rate.Limiter {
	if existing, ok := l.limiters.Load(key); ok {
		return existing.(*rate.Limiter)
	}
	created, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return created.(*rate.Limiter)
}

// Config configures the middleware.
type Config struct {
	// KeyFunc defaults to the token subject, then the client IP.
	KeyFunc              func(router.Context) string
	ExcludedPathPrefixes []string
}

// RateLimit answers throttled requests with 429, a Retry-After header in whole seconds
// and an Error envelope.
func RateLimit(limiter RateLimiter, cfg Config) router.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientKey
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range cfg.ExcludedPathPrefixes {
				if prefix != "" && strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			allowed, retryAfter := limiter.Allow(c.Request().Context(), cfg.KeyFunc(c))
			if allowed {
				return next(c)
			}

			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
			err := i18n.NewError(CodeExceeded, nil, nil).
				WithMessage("Too many requests, try again later").
				WithHTTPStatus(http.StatusTooManyRequests).
				WithDetails(map[string]interface{}{"retry_after_seconds": seconds})
			return controller.Error(c, "RateLimit", err)
		}
	}
}

// ClientKey identifies the caller by token subject when authenticated, by IP otherwise.
func ClientKey(c router.Context) string {
	if claims := auth.GetClaims(c.Request().Context()); claims != nil && claims.Subject != "" {
		return "user:" + claims.Subject
	}
	return "ip:" + ClientIP(c.Request())
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
