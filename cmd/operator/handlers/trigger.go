package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PostTriggerHandler pokes the reconcile loop. The pass runs
// asynchronously; callers watch GET /api/status for the outcome.
func PostTriggerHandler(wake func()) echo.HandlerFunc {
	return func(c echo.Context) error {
		wake()
		return c.NoContent(http.StatusAccepted)
	}
}
