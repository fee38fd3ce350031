// Package recovery turns handler panics into 500 Error envelopes.
package recovery

import (
	"fmt"
	"runtime/debug"

	"github.com/kaminari-anilist/kaminari/pkg/controller"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// Recovery catches panics, logs them with the stack trace and, when nothing was written
// yet, answers with an internal error envelope.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				log.WithContext(c.Request().Context()).Error("panic recovered",
					"panic", r,
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"stack", string(debug.Stack()),
				)
				if c.Response().Written() {
					err = fmt.Errorf("panic after response was written: %v", r)
					return
				}
				err = controller.Error(c, "Recovery", controller.NewInternalError("an unexpected error occurred", fmt.Errorf("panic: %v", r)))
			}()

			return next(c)
		}
	}
}
