package locale

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	ginadapter "github.com/kaminari-anilist/kaminari/pkg/server/router/gin"
)

type observed struct {
	locale  string
	message string
}

func newTestRouter(t *testing.T) (router.Router, *observed) {
	t.Helper()
	catalog, err := i18n.DefaultCatalog("en", "")
	require.NoError(t, err)

	seen := &observed{}
	r := ginadapter.NewRouter()
	r.Use(Middleware(DefaultConfig(), catalog))
	handler := func(c router.Context) error {
		ctx := c.Request().Context()
		seen.locale = i18n.LocaleFromContext(ctx)
		seen.message = i18n.TranslatorFromContext(ctx).T("room.not_found", nil)
		return c.String(http.StatusOK, "ok")
	}
	r.GET("/api/rooms", handler)
	r.GET("/health", handler)
	return r, seen
}

func TestMiddleware_ResolvesLocale(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		header     map[string]string
		wantLocale string
	}{
		{
			name:       "query parameter wins",
			target:     "/api/rooms?lang=tr",
			header:     map[string]string{"X-Locale": "en", "Accept-Language": "en-US,en;q=0.8"},
			wantLocale: "tr",
		},
		{
			name:       "locale header before accept-language",
			target:     "/api/rooms",
			header:     map[string]string{"X-Locale": "tr", "Accept-Language": "en"},
			wantLocale: "tr",
		},
		{
			name:       "regional accept-language matches base",
			target:     "/api/rooms",
			header:     map[string]string{"Accept-Language": "tr-TR,tr;q=0.9,en;q=0.1"},
			wantLocale: "tr",
		},
		{
			name:       "unsupported falls back to english",
			target:     "/api/rooms?lang=ja",
			wantLocale: "en",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, seen := newTestRouter(t)
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantLocale, seen.locale)
			assert.Equal(t, tt.wantLocale, rec.Header().Get("Content-Language"))
			assert.Contains(t, rec.Header().Values("Vary"), "Accept-Language")
		})
	}
}

func TestMiddleware_TranslatesForResolvedLocale(t *testing.T) {
	r, seen := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms?lang=tr", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "Oda bulunamadı veya süresi doldu", seen.message)
}

func TestMiddleware_SkipsExcludedPaths(t *testing.T) {
	r, seen := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health?lang=tr", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Language"))
	assert.Empty(t, seen.locale)
	assert.Equal(t, "room.not_found", seen.message)
}

func TestAddVary_DoesNotDuplicate(t *testing.T) {
	h := http.Header{}
	h.Set("Vary", "Origin, accept-language")

	addVary(h, "Accept-Language")
	addVary(h, "X-Locale")

	assert.Equal(t, []string{"Origin, accept-language", "X-Locale"}, h.Values("Vary"))
}
