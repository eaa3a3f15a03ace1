// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	service  string
	sessions func() int
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, serviceURL string, sessions func() int) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		service:  serviceURL,
		sessions: sessions,
	}
}

// HandleHealth returns console health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"service": h.service,
	}
	if h.sessions != nil {
		resp["sessions"] = h.sessions()
	}
	return c.JSON(http.StatusOK, resp)
}
