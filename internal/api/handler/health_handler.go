package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler handles GET /health, the liveness probe.
// Returns 200 immediately; the service holds no local state worth probing
// beyond the process itself. Redis, when configured, is reported as a
// dependency but is advisory (the site cache degrades to upstream lookups).
type HealthHandler struct {
	redis *redis.Client // nil when the cache is disabled
}

func NewHealthHandler(rdb *redis.Client) *HealthHandler {
	return &HealthHandler{redis: rdb}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies,omitempty"`
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	resp := healthResponse{Status: "ok"}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		resp.Dependencies = map[string]dependencyStatus{}
		if _, err := h.redis.Ping(ctx).Result(); err != nil {
			resp.Dependencies["redis"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		} else {
			resp.Dependencies["redis"] = dependencyStatus{Status: "ok"}
		}
	}

	return c.JSON(http.StatusOK, resp)
}
