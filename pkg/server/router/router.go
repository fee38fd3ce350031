// Package router is the routing contract the controllers and middleware are written
// against. The gin subpackage implements it.
package router

import (
	"errors"
	"net/http"
)

// ErrEmptyBody is returned by Context.Bind when the request carries no body.
var ErrEmptyBody = errors.New("request body is empty")

// Router registers handlers. Middleware added with Use wraps the routes registered
// after the call, and every route also answers CORS preflight requests.
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group returns a router for prefix whose routes also run middleware.
	Group(prefix string, middleware ...MiddlewareFunc) Router
	Use(middleware ...MiddlewareFunc)

	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc handles one request. An error returned before anything was written
// becomes a bare 500.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context is the per-request view handed to handlers and middleware.
type Context interface {
	Request() *http.Request
	// SetRequest replaces the request, typically to carry a derived context.
	SetRequest(r *http.Request)
	Response() ResponseWriter

	// Bind decodes the JSON body into v and validates its binding tags. A missing
	// body yields ErrEmptyBody.
	Bind(v any) error
	JSON(code int, v any) error
	String(code int, s string) error

	// Get and Set hold request-scoped values such as the validated token claims.
	Get(key string) any
	Set(key string, value any)
}

// ResponseWriter reports what has been sent so far.
type ResponseWriter interface {
	http.ResponseWriter
	// Status is the status sent, or 200 before anything was written.
	Status() int
	Written() bool
}
