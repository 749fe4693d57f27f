package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// ctxClaims extracts the session claims injected by the Auth middleware and
// performs a fast-fail check before any service call: a zero user id means
// the middleware did not run or the token carried no usable subject.
func ctxClaims(c echo.Context) (*ports.SessionClaims, error) {
	userID, _ := c.Get("user_id").(int64)
	if userID == 0 {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	email, _ := c.Get("email").(string)
	plan, _ := c.Get("plan").(string)

	return &ports.SessionClaims{UserID: userID, Email: email, Plan: plan}, nil
}
