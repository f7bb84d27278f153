package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Health reports liveness plus the state of each registered dependency.
// Only failing required checks turn the response into a 503; optional
// ones (cache, bus) are reported but the instance keeps serving.
type Health struct {
	Required map[string]Check
	Optional map[string]Check
}

// Handle serves GET /healthz.
func (h *Health) Handle(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := echo.Map{}
	for name, check := range h.Required {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = "down"
			continue
		}
		checks[name] = "ok"
	}
	for name, check := range h.Optional {
		if err := check(ctx); err != nil {
			checks[name] = "degraded"
			continue
		}
		checks[name] = "ok"
	}
	return c.JSON(status, echo.Map{"ok": status == http.StatusOK, "checks": checks})
}
