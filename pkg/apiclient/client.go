// Package apiclient is the outbound HTTP client shared by the third-party API
// integrations. Each provider gets its own Client with a rate limiter, a circuit
// breaker and an optional response cache; every call is traced and counted.
package apiclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/observability/metrics"
	"github.com/kaminari-anilist/kaminari/pkg/observability/tracing"
	"github.com/kaminari-anilist/kaminari/pkg/resilience"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
	errorBodyBytes = 512
)

// Config describes one upstream API.
type Config struct {
	Name              string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   int
	BreakerCooldown   time.Duration
	// CacheTTL applies to cached GET responses. Zero disables caching for this client.
	CacheTTL time.Duration
}

// FromProvider builds a Config from the provider section of the application config.
func FromProvider(name string, p config.ProviderConfig, cache config.ResponseCacheConfig) Config {
	cfg := Config{
		Name:              name,
		BaseURL:           p.BaseURL,
		Timeout:           p.Timeout,
		RequestsPerSecond: p.RequestsPerSecond,
		Burst:             p.Burst,
		BreakerFailures:   p.BreakerFailures,
		BreakerCooldown:   p.BreakerCooldown,
	}
	if cache.Enabled {
		cfg.CacheTTL = cache.TTL
	}
	return cfg
}

// Client performs JSON calls against a single upstream API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	cache   Cache
	log     logger.Logger
	headers Headers
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCache stores GET responses in cache for Config.CacheTTL.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithDefaultHeaders sends h on every request. Per-call headers win.
func WithDefaultHeaders(h Headers) Option {
	return func(c *Client) { c.headers = h }
}

// WithBreaker replaces the circuit breaker built from Config.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) {
		if cb != nil {
			c.breaker = cb
		}
	}
}

// New creates a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Name == "" {
		return nil, errors.New("apiclient: name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("apiclient %s: base URL is required", cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		cache:   NopCache{},
		log:     logger.NewNop(),
	}
	c.breaker = resilience.NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerCooldown,
		resilience.WithFailurePredicate(countsAgainstBreaker))
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("provider", cfg.Name)
	return c, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return c.cfg.Name }

// Breaker exposes the circuit breaker, for readiness reporting.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.breaker }

// Get issues a GET and decodes the JSON response into out. Successful responses are
// served from the cache when one is configured.
func (c *Client) Get(ctx context.Context, path string, query *Query, headers Headers, out any) error {
	target := c.url(path, query)
	key := c.cacheKey(http.MethodGet, target)
	cacheable := c.cfg.CacheTTL > 0

	if cacheable {
		if body, ok := c.cache.Get(ctx, key).Get(); ok {
			return decode(body, out)
		}
	}

	body, err := c.do(ctx, http.MethodGet, path, target, nil, headers)
	if err != nil {
		return err
	}
	if err := decode(body, out); err != nil {
		return err
	}
	if cacheable {
		c.cache.Set(ctx, key, body, c.cfg.CacheTTL)
	}
	return nil
}

// PostJSON encodes body as JSON, posts it and decodes the response into out. out may
// be nil when the response is not needed.
func (c *Client) PostJSON(ctx context.Context, path string, body any, headers Headers, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", c.cfg.Name, err)
	}
	headers = headers.With("Content-Type", "application/json")
	resp, err := c.do(ctx, http.MethodPost, path, c.url(path, nil), payload, headers)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(resp, out)
}

func (c *Client) do(ctx context.Context, method, path, target string, payload []byte, headers Headers) ([]byte, error) {
	ctx, span := tracing.StartClientSpan(ctx, c.cfg.Name, method, path)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("%s rate limit: %w", c.cfg.Name, err)
	}

	var body []byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		body, err = c.roundTrip(ctx, method, path, target, payload, headers, span)
		return err
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitBreakerOpen) {
			err = fmt.Errorf("%s: %w: %w", c.cfg.Name, ErrUpstream, err)
		}
		tracing.RecordError(span, err)
		return nil, err
	}
	tracing.RecordSuccess(span)
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, target string, payload []byte, headers Headers, span trace.Span) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.cfg.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	c.headers.Merge(headers).apply(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordOutbound(c.cfg.Name, 0, time.Since(start))
		c.log.WithContext(ctx).Warn("upstream call failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%s %s %s: %w: %w", c.cfg.Name, method, path, ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	metrics.RecordOutbound(c.cfg.Name, resp.StatusCode, elapsed)
	tracing.RecordStatus(span, resp.StatusCode)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: read body: %w: %w", c.cfg.Name, method, path, ErrUpstream, err)
	}

	c.log.WithContext(ctx).Debug("upstream call",
		"method", method, "path", path, "status", resp.StatusCode, "duration", elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > errorBodyBytes {
			snippet = snippet[:errorBodyBytes]
		}
		return nil, &StatusError{Provider: c.cfg.Name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return body, nil
}

func (c *Client) url(path string, query *Query) string {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if q := query.Encode(); q != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + q
	}
	return target
}

// cacheKey hashes the request so credentials carried in the query never reach the cache.
func (c *Client) cacheKey(method, target string) string {
	sum := sha256.Sum256([]byte(method + " " + target))
	return c.cfg.Name + ":" + hex.EncodeToString(sum[:])
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// countsAgainstBreaker ignores caller mistakes: client errors other than 429 mean the
// upstream is healthy.
func countsAgainstBreaker(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
