package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opst/datahub-operator/cmd/operator/status"
	apiops "github.com/opst/datahub-operator/pkg/api/types/operator"
)

// GetStatusHandler serves the single coarse operator status.
func GetStatusHandler(keeper *status.Keeper) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, apiops.ComposeStatus(keeper.Get()))
	}
}
