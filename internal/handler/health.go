package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes.  It deliberately touches no dependency:
// the service is "up" even when MySQL or Redis are not.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
