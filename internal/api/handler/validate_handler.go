package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// ValidateHandler answers the widget's bootstrap question: may this api key
// be used from this origin?
type ValidateHandler struct {
	authorizer ports.Authorizer
}

func NewValidateHandler(authorizer ports.Authorizer) *ValidateHandler {
	return &ValidateHandler{authorizer: authorizer}
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validate handles GET /api/validate?api_key=<key> with the browser-supplied
// Origin header. The response never says which side of the check failed.
//
// @Summary      Validate an api key against the caller origin
// @Tags         widget
// @Produce      json
// @Param        api_key  query     string  true  "Site api key"
// @Success      200      {object}  validateResponse
// @Failure      400      {object}  validateResponse
// @Router       /api/validate [get]
func (h *ValidateHandler) Validate(c echo.Context) error {
	apiKey := c.QueryParam("api_key")
	origin := c.Request().Header.Get("Origin")

	if apiKey == "" || origin == "" {
		return c.JSON(http.StatusBadRequest, validateResponse{Valid: false, Error: "api_key and Origin are required"})
	}

	valid, err := h.authorizer.Authorize(c.Request().Context(), apiKey, origin)
	if err != nil {
		// fail closed, details stay in the server log
		return c.JSON(http.StatusInternalServerError, validateResponse{Valid: false, Error: "validation failed"})
	}

	return c.JSON(http.StatusOK, validateResponse{Valid: valid})
}
