package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/datahub-operator/pkg/api/types/errors"
	apirel "github.com/opst/datahub-operator/pkg/api/types/relations"
	"github.com/opst/datahub-operator/pkg/domain"
	regdb "github.com/opst/datahub-operator/pkg/domain/registry/db"
	"github.com/opst/datahub-operator/pkg/domain/service"
)

// PutRelationHandler ingests a relation change event: it replaces the
// whole connection descriptor (never merges) and pokes the reconcile loop.
//
// The initialized sub-flag is the one thing preserved across replaces;
// a changed endpoint does not undo a completed bootstrap.
func PutRelationHandler(registry regdb.Interface, wake func()) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		kind, ok := domain.AsConnectionKind(c.Param("kind"))
		if !ok {
			return apierr.BadRequest(
				`unknown relation kind: should be one of "db", "kafka" or "opensearch"`, nil,
			)
		}

		var event apirel.Event
		if err := c.Bind(&event); err != nil {
			return apierr.BadRequest("malformed relation event", err)
		}

		state, err := registry.Get(ctx)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		switch kind {
		case domain.DatabaseConnectionKind:
			host, port, err := splitEndpoint(event.Endpoints)
			if err != nil {
				return err
			}
			conn := domain.DatabaseConnection{
				Host: host, Port: port,
				Username: event.Username, Password: event.Password,
				DBName: service.DBName,
			}
			if state.Database != nil {
				conn.Initialized = state.Database.Initialized
			}
			if err := registry.PutDatabase(ctx, conn); err != nil {
				return apierr.InternalServerError(err)
			}

		case domain.KafkaConnectionKind:
			server := firstEntry(event.BootstrapServer)
			if server == "" {
				return apierr.BadRequest(`"bootstrap-server" is required`, nil)
			}
			conn := domain.KafkaConnection{
				BootstrapServer: server,
				Username:        event.Username, Password: event.Password,
			}
			if state.Kafka != nil {
				conn.Initialized = state.Kafka.Initialized
			}
			if err := registry.PutKafka(ctx, conn); err != nil {
				return apierr.InternalServerError(err)
			}

		case domain.OpensearchConnectionKind:
			host, port, err := splitEndpoint(event.Endpoints)
			if err != nil {
				return err
			}
			conn := domain.OpensearchConnection{
				Host: host, Port: port,
				Username: event.Username, Password: event.Password,
				TLSCA: event.TLSCA,
			}
			if state.Opensearch != nil {
				conn.Initialized = state.Opensearch.Initialized
			}
			if err := registry.PutOpensearch(ctx, conn); err != nil {
				return apierr.InternalServerError(err)
			}
		}

		wake()
		return c.NoContent(204)
	}
}

// DeleteRelationHandler ingests a relation removal: the descriptor goes
// away and every durable flag depending on it is cascade-cleared.
func DeleteRelationHandler(registry regdb.Interface, wake func()) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		kind, ok := domain.AsConnectionKind(c.Param("kind"))
		if !ok {
			return apierr.BadRequest(
				`unknown relation kind: should be one of "db", "kafka" or "opensearch"`, nil,
			)
		}

		if err := registry.Remove(ctx, kind); err != nil {
			return apierr.InternalServerError(err)
		}

		wake()
		return c.NoContent(204)
	}
}

// splitEndpoint takes the first comma-separated entry and splits it as
// host:port.
func splitEndpoint(endpoints string) (string, string, *echo.HTTPError) {
	entry := firstEntry(endpoints)
	if entry == "" {
		return "", "", apierr.BadRequest(`"endpoints" is required`, nil)
	}
	host, port, ok := strings.Cut(entry, ":")
	if !ok || host == "" || port == "" {
		return "", "", apierr.BadRequest(
			`"endpoints" entries should be formatted as host:port`, nil,
		)
	}
	return host, port, nil
}

func firstEntry(commaSeparated string) string {
	entry, _, _ := strings.Cut(commaSeparated, ",")
	return strings.TrimSpace(entry)
}
