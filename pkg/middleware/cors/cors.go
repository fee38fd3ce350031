// Package cors answers browser preflight requests and decorates cross-origin responses
// for the web client.
package cors

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// Config lists what cross-origin callers may do. An AllowOrigins entry is "*", an
// exact origin, or a pattern with one "*" such as "https://*.kaminari.app".
type Config struct {
	Enabled          bool
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultConfig allows the methods and headers the web client uses. No origin is
// allowed until configured.
func DefaultConfig() Config {
	return Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "Accept-Language", "X-Locale", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
}

// FromConfig maps the cors section of the service configuration.
func FromConfig(cfg config.CORSConfig) Config {
	out := DefaultConfig()
	out.Enabled = cfg.Enabled
	out.AllowOrigins = cfg.AllowOrigins
	out.AllowCredentials = cfg.AllowCredentials
	if len(cfg.AllowMethods) > 0 {
		out.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		out.AllowHeaders = cfg.AllowHeaders
	}
	if len(cfg.ExposeHeaders) > 0 {
		out.ExposeHeaders = cfg.ExposeHeaders
	}
	if cfg.MaxAge > 0 {
		out.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}
	return out
}

// Middleware applies cfg. Disallowed preflights get 403; disallowed simple requests
// pass through without CORS headers and the browser blocks the response.
func Middleware(cfg Config) router.MiddlewareFunc {
	p := compile(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			origin := req.Header.Get("Origin")
			if !p.enabled || origin == "" {
				return next(c)
			}
			preflight := req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != ""

			if !p.allows(origin) {
				if preflight {
					c.Response().WriteHeader(http.StatusForbidden)
					return nil
				}
				return next(c)
			}

			h := c.Response().Header()
			for _, v := range []string{"Origin", "Access-Control-Request-Method", "Access-Control-Request-Headers"} {
				addVary(h, v)
			}
			h.Set("Access-Control-Allow-Origin", p.allowOrigin(origin))
			if p.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if p.expose != "" {
				h.Set("Access-Control-Expose-Headers", p.expose)
			}
			if !preflight {
				return next(c)
			}

			h.Set("Access-Control-Allow-Methods", p.methods)
			switch {
			case p.headers != "":
				h.Set("Access-Control-Allow-Headers", p.headers)
			case req.Header.Get("Access-Control-Request-Headers") != "":
				h.Set("Access-Control-Allow-Headers", req.Header.Get("Access-Control-Request-Headers"))
			}
			if p.maxAge != "" {
				h.Set("Access-Control-Max-Age", p.maxAge)
			}
			c.Response().WriteHeader(http.StatusNoContent)
			return nil
		}
	}
}

// policy is a Config with its header values joined once. Nil method and expose
// lists take the defaults; a nil header list echoes what the preflight requested.
type policy struct {
	enabled     bool
	anyOrigin   bool
	origins     []string
	credentials bool
	methods     string
	headers     string
	expose      string
	maxAge      string
}

func compile(cfg Config) policy {
	methods := cfg.AllowMethods
	if methods == nil {
		methods = DefaultConfig().AllowMethods
	}
	expose := cfg.ExposeHeaders
	if expose == nil {
		expose = DefaultConfig().ExposeHeaders
	}
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = DefaultConfig().MaxAge
	}
	origins := clean(cfg.AllowOrigins)
	p := policy{
		enabled:     cfg.Enabled,
		anyOrigin:   slices.Contains(origins, "*"),
		origins:     origins,
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(lo.Map(clean(methods), func(m string, _ int) string { return strings.ToUpper(m) }), ", "),
		headers:     strings.Join(clean(cfg.AllowHeaders), ", "),
		expose:      strings.Join(clean(expose), ", "),
	}
	if maxAge > 0 {
		p.maxAge = strconv.Itoa(int(maxAge / time.Second))
	}
	return p
}

func clean(values []string) []string {
	return lo.Compact(lo.Map(values, func(v string, _ int) string { return strings.TrimSpace(v) }))
}

func (p policy) allows(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return p.anyOrigin || slices.ContainsFunc(p.origins, func(allowed string) bool {
		return strings.EqualFold(allowed, origin) || wildcardMatch(allowed, origin)
	})
}

// allowOrigin echoes the origin whenever credentials are allowed, since browsers
// reject "*" together with credentials.
func (p policy) allowOrigin(origin string) string {
	if p.anyOrigin && !p.credentials {
		return "*"
	}
	return origin
}

// wildcardMatch accepts patterns with exactly one "*".
func wildcardMatch(pattern, value string) bool {
	prefix, suffix, ok := strings.Cut(pattern, "*")
	if !ok || strings.Contains(suffix, "*") {
		return false
	}
	return len(value) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(value, prefix) && strings.HasSuffix(value, suffix)
}

func addVary(h http.Header, value string) {
	for _, v := range h.Values("Vary") {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), value) {
				return
			}
		}
	}
	h.Add("Vary", value)
}
