// Package authn guards routes with the bearer tokens issued at login.
package authn

import (
	"strings"

	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/controller"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
)

// ClaimsKey is the router.Context key holding the validated *auth.Claims.
const ClaimsKey = "claims"

// Authenticate validates the Bearer token in the Authorization header and stores its
// claims in both router.Context and the request context. Missing, malformed and
// rejected tokens are answered with a 401 Error envelope.
func Authenticate(validator auth.JWTValidator) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			origin := "Auth.Authenticate"
			token, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return controller.Error(c, origin, controller.NewUnauthorizedError("missing bearer token", auth.ErrInvalidToken))
			}

			claims, err := validator.Validate(c.Request().Context(), token)
			if err != nil {
				return controller.Error(c, origin, controller.NewUnauthorizedError("invalid token", err))
			}

			c.Set(ClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(auth.WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
