package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/datahub-operator/pkg/api/types/errors"
	"github.com/opst/datahub-operator/pkg/auth"
)

// BearerAuth guards a route group with JWS bearer tokens signed by key.
func BearerAuth(key []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return apierr.Unauthorized("bearer token is required", nil)
			}
			if _, err := auth.VerifyJWS(key, token); err != nil {
				return apierr.Unauthorized("invalid token", err)
			}
			return next(c)
		}
	}
}
