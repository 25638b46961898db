package middleware

// session.go resolves the opaque session identifier used to own
// capacity leases.  Authenticated callers are identified by the JWT
// subject that JWTAuth stored in the context; anonymous browser
// sessions supply an X-Session-Id header instead.  The core performs
// no validation of either value: the trust boundary is upstream.

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// sessionHeader carries the anonymous session identifier.
const sessionHeader = "X-Session-Id"

// Session returns a middleware that stores the caller's session
// identifier in the context under "session_id".  Requests with
// neither an authenticated identity nor a session header are rejected:
// a lease without an owner could never be validated or converted.
func Session() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s, ok := c.Get("session_id").(string); ok && s != "" {
				return next(c)
			}
			if s := c.Request().Header.Get(sessionHeader); s != "" {
				c.Set("session_id", s)
				return next(c)
			}
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing session identity"})
		}
	}
}

// SessionID extracts the session identifier stored by Session or
// JWTAuth.  Returns the empty string when no identity is present.
func SessionID(c echo.Context) string {
	if s, ok := c.Get("session_id").(string); ok {
		return s
	}
	return ""
}

// ActorID extracts the authenticated actor identifier stored by
// JWTAuth.  Returns the empty string for anonymous callers.
func ActorID(c echo.Context) string {
	if s, ok := c.Get("actor_id").(string); ok {
		return s
	}
	return ""
}
