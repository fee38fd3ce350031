package gin

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

func perform(r router.Router, method, path string, body io.Reader) *httptest.ResponseRecorder {
	if body == nil {
		body = http.NoBody
	}
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouter_MethodsAndGroups(t *testing.T) {
	r := NewRouter()
	api := r.Group("/api")
	auth := api.Group("/Auth", func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.Set("group", "auth")
			return next(c)
		}
	})
	auth.POST("/LogIn", func(c router.Context) error {
		return c.String(http.StatusOK, c.Get("group").(string))
	})
	r.GET("/health", func(c router.Context) error { return c.String(http.StatusOK, "up") })

	rec := perform(r, http.MethodPost, "/api/Auth/LogIn", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth", rec.Body.String())

	rec = perform(r, http.MethodGet, "/health", nil)
	assert.Equal(t, "up", rec.Body.String())

	rec = perform(r, http.MethodGet, "/api/Auth/Missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	r := NewRouter()
	var order []string
	trace := func(name string) router.MiddlewareFunc {
		return func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}
	r.Use(trace("global"))
	r.GET("/m", func(c router.Context) error {
		order = append(order, "handler")
		return c.String(http.StatusOK, "ok")
	}, trace("route"))

	perform(r, http.MethodGet, "/m", nil)
	assert.Equal(t, []string{"global", "route", "handler"}, order)
}

func TestRouter_UnwrittenErrorBecomes500(t *testing.T) {
	r := NewRouter()
	r.GET("/boom", func(c router.Context) error { return errors.New("boom") })
	r.GET("/handled", func(c router.Context) error {
		if err := c.String(http.StatusBadRequest, "bad"); err != nil {
			return err
		}
		return errors.New("already written")
	})

	assert.Equal(t, http.StatusInternalServerError, perform(r, http.MethodGet, "/boom", nil).Code)

	rec := perform(r, http.MethodGet, "/handled", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad", rec.Body.String())
}

func TestContext_BindValidatesTags(t *testing.T) {
	type login struct {
		UserName string `json:"userName" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}

	var bindErr error
	var got login
	r := NewRouter()
	r.POST("/bind", func(c router.Context) error {
		got = login{}
		bindErr = c.Bind(&got)
		if bindErr != nil {
			return c.String(http.StatusBadRequest, "invalid")
		}
		return c.JSON(http.StatusOK, got)
	})

	rec := perform(r, http.MethodPost, "/bind", strings.NewReader(`{"userName":"mika","password":"correct horse"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mika", got.UserName)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	perform(r, http.MethodPost, "/bind", strings.NewReader(`{"userName":"mika","password":"short"}`))
	var verrs validator.ValidationErrors
	require.ErrorAs(t, bindErr, &verrs)
	assert.Equal(t, "Password", verrs[0].Field())
	assert.Equal(t, "min", verrs[0].Tag())

	perform(r, http.MethodPost, "/bind", strings.NewReader("{"))
	assert.Error(t, bindErr)
	assert.False(t, errors.As(bindErr, &verrs))

	perform(r, http.MethodPost, "/bind", nil)
	assert.ErrorIs(t, bindErr, router.ErrEmptyBody)
}

func TestContext_Storage(t *testing.T) {
	r := NewRouter()
	r.GET("/rooms", func(c router.Context) error {
		assert.Nil(t, c.Get("missing"))
		c.Set("k", 7)
		assert.Equal(t, 7, c.Get("k"))
		return c.String(http.StatusOK, "100%")
	})

	rec := perform(r, http.MethodGet, "/rooms", nil)
	assert.Equal(t, "100%", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestResponseWriter_TracksStatus(t *testing.T) {
	r := NewRouter()
	r.GET("/created", func(c router.Context) error {
		rw := c.Response()
		assert.False(t, rw.Written())
		rw.WriteHeader(http.StatusCreated)
		rw.WriteHeader(http.StatusTeapot)
		assert.True(t, rw.Written())
		assert.Equal(t, http.StatusCreated, rw.Status())
		return nil
	})

	assert.Equal(t, http.StatusCreated, perform(r, http.MethodGet, "/created", nil).Code)
}

func TestRouter_GroupsSharePreflightRoutes(t *testing.T) {
	r := NewRouter()
	api := r.Group("/api")
	api.Group("/Anime").POST("/Search", func(c router.Context) error { return c.String(http.StatusOK, "a") })
	api.GET("/Anime/Search", func(c router.Context) error { return c.String(http.StatusOK, "b") })

	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodOptions, "/api/Anime/Search", nil).Code)
	assert.Equal(t, "b", perform(r, http.MethodGet, "/api/Anime/Search", nil).Body.String())
}

func TestRouter_OptionsRouteRunsGlobalMiddleware(t *testing.T) {
	r := NewRouter()
	r.Use(func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.Response().Header().Set("Access-Control-Allow-Origin", "*")
			return next(c)
		}
	})
	r.POST("/api/Anime/TopTvAnimes", func(c router.Context) error { return c.String(http.StatusOK, "ok") })

	rec := perform(r, http.MethodOptions, "/api/Anime/TopTvAnimes", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
