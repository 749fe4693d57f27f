package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// Auth validates the session token and injects claims into context.
// The panel sends the token either bare or with a Bearer prefix.
func Auth(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			claims, err := sessions.Verify(TokenFromHeader(authHeader))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("user_id", claims.UserID)
			c.Set("email", claims.Email)
			c.Set("plan", claims.Plan)

			return next(c)
		}
	}
}

// TokenFromHeader strips an optional Bearer prefix from an Authorization
// header value.
func TokenFromHeader(header string) string {
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return header
}
