package controller

import (
	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// APIPrefix is where every controller is mounted.
const APIPrefix = "/api"

// Mountable is implemented by every controller. protected is applied to the actions that
// need an authenticated caller.
type Mountable interface {
	Register(r router.Router, protected ...router.MiddlewareFunc)
}

// Mount registers controllers under APIPrefix.
func Mount(r router.Router, protected []router.MiddlewareFunc, controllers ...Mountable) {
	api := r.Group(APIPrefix)
	for _, c := range controllers {
		c.Register(api, protected...)
	}
}

// callerID prefers the subject of the validated token over the id sent in the body.
func callerID(c router.Context, sent string) string {
	if claims := auth.GetClaims(c.Request().Context()); claims != nil && claims.Subject != "" {
		return claims.Subject
	}
	return sent
}

func callerName(c router.Context, sent string) string {
	if claims := auth.GetClaims(c.Request().Context()); claims != nil && claims.UserName != "" {
		return claims.UserName
	}
	return sent
}

// reply answers with item wrapped in a Success envelope, or with err.
func reply[T any](c router.Context, origin string, item T, err error) error {
	if err != nil {
		return Error(c, origin, err)
	}
	return OK(c, origin, item)
}
