// Package identity reads the caller's user id, resolved by the gateway in
// front of this service, from a trusted request header.
package identity

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const contextKey = "user_id"

// DefaultHeader is used when no header name is configured.
const DefaultHeader = "X-User-ID"

// Middleware rejects requests without a user id header and stores the id on
// the echo context.
func Middleware(header string) echo.MiddlewareFunc {
	if header == "" {
		header = DefaultHeader
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := strings.TrimSpace(c.Request().Header.Get(header))
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": header + " header is required"})
			}
			c.Set(contextKey, userID)
			return next(c)
		}
	}
}

// UserID returns the id stored by Middleware, or "".
func UserID(c echo.Context) string {
	id, _ := c.Get(contextKey).(string)
	return id
}

// WithUserID stores id on c. Handler tests use it in place of Middleware.
func WithUserID(c echo.Context, id string) {
	c.Set(contextKey, id)
}
