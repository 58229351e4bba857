package httpx

import (
	"net/http"

	"github.com/adeilh/go-mfa/token"
)

// AuthMiddleware adapts a token.Middleware to Echo. Verified claims land in
// the request context and are readable through Claims or RequirePermission.
func AuthMiddleware(mw *token.Middleware) MiddlewareFunc {
	if mw == nil {
		return func(next HandlerFunc) HandlerFunc {
			return func(c Context) error {
				return HTTPError(http.StatusUnauthorized, "token middleware missing")
			}
		}
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			var nextErr error
			downstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				nextErr = next(c)
			})
			mw.Handler(downstream).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}
}

// Claims returns the verified claims for the current request, if any.
func Claims(c Context) (token.Claims, bool) {
	return token.ClaimsFromContext(c.Request().Context())
}

// RequirePermission rejects requests whose verified claims lack permission.
// It must run after AuthMiddleware; a request with no claims gets a 401.
func RequirePermission(permission string) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			claims, ok := Claims(c)
			if !ok {
				return HTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !claims.HasPermission(permission) {
				return HTTPError(http.StatusForbidden, "permission denied")
			}
			return next(c)
		}
	}
}

// RequireRole rejects requests whose verified claims carry a different role.
func RequireRole(role string) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			claims, ok := Claims(c)
			if !ok {
				return HTTPError(http.StatusUnauthorized, "authentication required")
			}
			if claims.Role != role {
				return HTTPError(http.StatusForbidden, "role not allowed")
			}
			return next(c)
		}
	}
}
