// Package gin mounts the router contract on a gin engine.
package gin

import (
	"net/http"
	"path"
	"slices"
	"sync"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// Router is a router.Router backed by a gin engine. Groups share the engine.
type Router struct {
	engine *ginpkg.Engine
	group  *ginpkg.RouterGroup
	state  *state
	mws    []router.MiddlewareFunc
}

type state struct {
	mu        sync.Mutex
	preflight map[string]struct{}
}

// NewRouter creates an empty router with gin in release mode.
func NewRouter() *Router {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	engine := ginpkg.New()
	return &Router{
		engine: engine,
		group:  &engine.RouterGroup,
		state:  &state{preflight: map[string]struct{}{}},
	}
}

func (r *Router) GET(p string, h router.HandlerFunc, mws ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, p, h, mws)
}

func (r *Router) POST(p string, h router.HandlerFunc, mws ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, p, h, mws)
}

func (r *Router) Group(prefix string, mws ...router.MiddlewareFunc) router.Router {
	return &Router{
		engine: r.engine,
		group:  r.group.Group(prefix),
		state:  r.state,
		mws:    slices.Concat(r.middleware(), mws),
	}
}

func (r *Router) Use(mws ...router.MiddlewareFunc) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.mws = append(r.mws, mws...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *Router) middleware() []router.MiddlewareFunc {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return slices.Clone(r.mws)
}

func (r *Router) handle(method, p string, h router.HandlerFunc, routeMws []router.MiddlewareFunc) {
	global := r.middleware()
	handler := chain(chain(h, routeMws), global)
	r.group.Handle(method, p, func(gc *ginpkg.Context) {
		c := newContext(gc)
		if err := handler(c); err != nil && !c.Response().Written() {
			gc.AbortWithStatus(http.StatusInternalServerError)
		}
	})
	r.ensurePreflight(p, global)
}

// ensurePreflight answers OPTIONS on p with 204 after the global middleware, so the
// CORS layer can fill in the headers.
func (r *Router) ensurePreflight(p string, global []router.MiddlewareFunc) {
	key := path.Join(r.group.BasePath(), p)
	r.state.mu.Lock()
	_, done := r.state.preflight[key]
	r.state.preflight[key] = struct{}{}
	r.state.mu.Unlock()
	if done {
		return
	}

	handler := chain(func(c router.Context) error {
		if !c.Response().Written() {
			c.Response().WriteHeader(http.StatusNoContent)
		}
		return nil
	}, global)
	r.group.Handle(http.MethodOptions, p, func(gc *ginpkg.Context) {
		_ = handler(newContext(gc))
	})
}

// chain wraps h so that mws[0] runs first.
func chain(h router.HandlerFunc, mws []router.MiddlewareFunc) router.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type reqContext struct {
	gc *ginpkg.Context
	w  *responseWriter
}

func newContext(gc *ginpkg.Context) *reqContext {
	return &reqContext{gc: gc, w: &responseWriter{ResponseWriter: gc.Writer}}
}

func (c *reqContext) Request() *http.Request          { return c.gc.Request }
func (c *reqContext) SetRequest(r *http.Request)      { c.gc.Request = r }
func (c *reqContext) Response() router.ResponseWriter { return c.w }

// Bind skips the Content-Type check; the mobile client does not always send one.
func (c *reqContext) Bind(v any) error {
	req := c.gc.Request
	if req.Body == nil || req.Body == http.NoBody || req.ContentLength == 0 {
		return router.ErrEmptyBody
	}
	return c.gc.ShouldBindWith(v, binding.JSON)
}

func (c *reqContext) JSON(code int, v any) error {
	c.gc.JSON(code, v)
	return nil
}

func (c *reqContext) String(code int, s string) error {
	c.gc.String(code, s)
	return nil
}

func (c *reqContext) Get(key string) any {
	v, _ := c.gc.Get(key)
	return v
}

func (c *reqContext) Set(key string, value any) { c.gc.Set(key, value) }

// responseWriter commits the status on the first WriteHeader. gin alone defers it
// until the body is written, and lets a later WriteHeader replace it.
type responseWriter struct {
	ginpkg.ResponseWriter
}

func (w *responseWriter) WriteHeader(code int) {
	if w.Written() {
		return
	}
	w.ResponseWriter.WriteHeader(code)
	w.ResponseWriter.WriteHeaderNow()
}
