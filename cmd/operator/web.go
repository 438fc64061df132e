package main

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/opst/datahub-operator/cmd/operator/handlers"
	"github.com/opst/datahub-operator/cmd/operator/status"
	regdb "github.com/opst/datahub-operator/pkg/domain/registry/db"
	"github.com/opst/datahub-operator/pkg/utils/echoutil"
)

var API_ROOT = "/api"

func api(subpath string) string {
	if !strings.HasSuffix(subpath, "/") {
		subpath += "/"
	}
	return fmt.Sprintf("%s/%s", API_ROOT, subpath)
}

// BuildServer assembles the operator's HTTP surface.
//
// Relation events and manual triggers mutate state, so they sit behind the
// bearer-token guard. Status is a read-only probe and stays open so that
// platform tooling can poll it without a token.
func BuildServer(
	loglevel string,
	signKey []byte,
	registry regdb.Interface,
	keeper *status.Keeper,
	wake func(),
) *echo.Echo {
	e := echo.New()

	echoutil.SetLevel(e, loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Pre(middleware.AddTrailingSlash())
	e.Use(echoutil.LogHandlerFunc)

	guarded := handlers.BearerAuth(signKey)

	e.POST(api("relations/:kind"), handlers.PutRelationHandler(registry, wake), guarded)
	e.DELETE(api("relations/:kind"), handlers.DeleteRelationHandler(registry, wake), guarded)
	e.POST(api("reconcile"), handlers.PostTriggerHandler(wake), guarded)
	e.GET(api("status"), handlers.GetStatusHandler(keeper))

	return e
}
