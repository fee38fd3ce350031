// Package locale picks the response language of each API request and binds the
// matching catalog translator to the request context.
package locale

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// Config controls locale resolution. The first supported locale is the default.
type Config struct {
	Supported            []string
	QueryParam           string
	HeaderName           string
	ExcludedPathPrefixes []string
}

// DefaultConfig resolves between the shipped locales, English first.
func DefaultConfig() Config {
	return Config{
		Supported:            i18n.Supported,
		QueryParam:           "lang",
		HeaderName:           "X-Locale",
		ExcludedPathPrefixes: []string{"/metrics", "/health", "/ready", "/version"},
	}
}

// Middleware resolves the locale from the query parameter, then the locale header,
// then Accept-Language, and stores the catalog translator for it in the request
// context.
func Middleware(cfg Config, catalog *i18n.Catalog) router.MiddlewareFunc {
	if len(cfg.Supported) == 0 {
		cfg.Supported = i18n.Supported
	}
	if catalog == nil {
		catalog = i18n.NewCatalog(cfg.Supported[0])
	}
	tags := make([]language.Tag, len(cfg.Supported))
	for i, l := range cfg.Supported {
		tags[i] = language.Make(l)
	}
	matcher := language.NewMatcher(tags)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if req == nil || excluded(req.URL.Path, cfg.ExcludedPathPrefixes) {
				return next(c)
			}

			_, idx := language.MatchStrings(matcher, candidates(req, cfg)...)
			translator := catalog.ForLocale(cfg.Supported[idx])
			c.SetRequest(req.WithContext(i18n.WithTranslator(req.Context(), translator)))

			h := c.Response().Header()
			h.Set("Content-Language", translator.Locale())
			addVary(h, "Accept-Language")
			if cfg.HeaderName != "" {
				addVary(h, cfg.HeaderName)
			}
			return next(c)
		}
	}
}

func candidates(r *http.Request, cfg Config) []string {
	out := make([]string, 0, 3)
	if cfg.QueryParam != "" {
		if v := strings.TrimSpace(r.URL.Query().Get(cfg.QueryParam)); v != "" {
			out = append(out, v)
		}
	}
	if cfg.HeaderName != "" {
		if v := strings.TrimSpace(r.Header.Get(cfg.HeaderName)); v != "" {
			out = append(out, v)
		}
	}
	return append(out, r.Header.Get("Accept-Language"))
}

func excluded(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
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
