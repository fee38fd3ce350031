package controller

import (
	"net/http"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// OK answers 200 with a Success envelope holding items.
func OK[T any](c router.Context, origin string, items ...T) error {
	message := localize(c.Request().Context(), "response.success", nil, "Operation completed successfully")
	return c.JSON(http.StatusOK, envelope.OK(origin, items, message))
}

// Done answers 200 with an itemless Success envelope describing action.
func Done(c router.Context, origin, action string) error {
	message := localize(c.Request().Context(), "response.done", i18n.Params{"action": action}, action+" completed")
	return c.JSON(http.StatusOK, envelope.Done[any](origin, message))
}

// Error answers with the status and Error envelope MapError derives from err.
func Error(c router.Context, origin string, err error) error {
	statusCode, resp := MapError(c.Request().Context(), origin, err)
	return c.JSON(statusCode, resp)
}
