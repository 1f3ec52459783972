package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Healthz always reports ok while the process serves requests.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports ok only when the store answers a ping.
func (h *HealthHandler) Readyz(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		slog.WarnContext(c.Request().Context(), "readiness check failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	}
	return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
}
