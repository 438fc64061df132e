package service

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
)

type postgresqlSetup struct{}

// PostgresqlSetup is the one-time schema bootstrap against the related
// PostgreSQL. The workload idles; the actual setup runs as a one-shot.
func PostgresqlSetup() Service { return postgresqlSetup{} }

func (postgresqlSetup) Name() string { return "datahub-postgresql-setup" }

func (postgresqlSetup) Command() string { return "/usr/bin/tail -f /dev/null" }

func (postgresqlSetup) Healthcheck() *domain.Healthcheck { return nil }

func (postgresqlSetup) IsReady(sctx Context) bool {
	return sctx.State.Database != nil
}

func (s postgresqlSetup) IsEnabled(sctx Context) bool {
	return s.IsReady(sctx)
}

func (s postgresqlSetup) Environment(sctx Context) (map[string]string, error) {
	if !s.IsEnabled(sctx) {
		return nil, nil
	}

	conn := sctx.State.Database
	return map[string]string{
		"POSTGRES_USERNAME": conn.Username,
		"POSTGRES_PASSWORD": conn.Password,
		"POSTGRES_HOST":     conn.Host,
		"POSTGRES_PORT":     conn.Port,
		"DATAHUB_DB_NAME":   conn.DBName,
	}, nil
}

func (s postgresqlSetup) Initialize(ctx context.Context, sctx Context, deps Deps) (bool, error) {
	if !s.IsReady(sctx) {
		return false, nil
	}
	if sctx.State.Database.Initialized {
		return false, nil
	}

	env, err := s.Environment(sctx)
	if err != nil {
		return false, err
	}

	if err := stageRunner(ctx, deps, s.Name(), nil); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}
	if err := deps.Supervisor.Exec(ctx, s.Name(), domain.ServicePlan{
		Enabled:     true,
		Command:     stagedPath(runnerScript) + " /init.sh",
		Environment: env,
	}); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}

	// The relation may have been replaced by a webhook while the bootstrap
	// ran; writing back the pass snapshot would lose that update. Record
	// Initialized only against the descriptor the bootstrap actually hit.
	fresh, err := deps.Registry.Get(ctx)
	if err != nil {
		return false, err
	}
	conn := fresh.Database
	if conn == nil || !conn.SameEndpoint(*sctx.State.Database) {
		return true, nil
	}
	updated := *conn
	updated.Initialized = true
	if err := deps.Registry.PutDatabase(ctx, updated); err != nil {
		return false, err
	}
	return true, nil
}
