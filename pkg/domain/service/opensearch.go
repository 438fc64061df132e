package service

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
)

type opensearchSetup struct{}

// OpensearchSetup creates the DataHub indices on the related OpenSearch.
func OpensearchSetup() Service { return opensearchSetup{} }

func (opensearchSetup) Name() string { return "datahub-opensearch-setup" }

func (opensearchSetup) Command() string { return "/usr/bin/tail -f /dev/null" }

func (opensearchSetup) Healthcheck() *domain.Healthcheck { return nil }

func (opensearchSetup) IsReady(sctx Context) bool {
	return sctx.State.Opensearch != nil
}

func (s opensearchSetup) IsEnabled(sctx Context) bool {
	return s.IsReady(sctx)
}

func (s opensearchSetup) Environment(sctx Context) (map[string]string, error) {
	if !s.IsEnabled(sctx) {
		return nil, nil
	}

	conn := sctx.State.Opensearch
	env := map[string]string{
		"ELASTICSEARCH_HOST":        conn.Host,
		"ELASTICSEARCH_PORT":        conn.Port,
		"SKIP_ELASTICSEARCH_CHECK":  "false",
		"ELASTICSEARCH_INSECURE":    "false",
		"ELASTICSEARCH_USE_SSL":     "true",
		"ELASTICSEARCH_USERNAME":    conn.Username,
		"ELASTICSEARCH_PASSWORD":    conn.Password,
		"INDEX_PREFIX":              sctx.OpensearchIndexPrefix,
		"DATAHUB_ANALYTICS_ENABLED": "true",
		"USE_AWS_ELASTICSEARCH":     "true",
	}
	return env, nil
}

func (s opensearchSetup) Initialize(ctx context.Context, sctx Context, deps Deps) (bool, error) {
	if !s.IsReady(sctx) {
		return false, nil
	}
	if sctx.State.Opensearch.Initialized {
		return false, nil
	}

	env, err := s.Environment(sctx)
	if err != nil {
		return false, err
	}
	if env == nil {
		return false, domain.NewErrBadLogic("opensearch is being initialized before it is ready")
	}

	// 'create-indices.sh' reaches opensearch over TLS; curl needs the CA
	// bundle of the relation to verify it.
	env["CURL_CA_BUNDLE"] = stagedPath(opensearchCertsFile)

	if err := stageRunner(ctx, deps, s.Name(), map[string][]byte{
		opensearchCertsFile: []byte(sctx.State.Opensearch.TLSCA),
	}); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}
	if err := deps.Supervisor.Exec(ctx, s.Name(), domain.ServicePlan{
		Enabled:     true,
		Command:     stagedPath(runnerScript) + " /create-indices.sh",
		Environment: env,
	}); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}

	// The relation may have been replaced by a webhook while the indices
	// were created; writing back the pass snapshot would lose that update.
	// Record Initialized only against the descriptor the setup actually hit.
	fresh, err := deps.Registry.Get(ctx)
	if err != nil {
		return false, err
	}
	conn := fresh.Opensearch
	if conn == nil || !conn.SameEndpoint(*sctx.State.Opensearch) {
		return true, nil
	}
	updated := *conn
	updated.Initialized = true
	if err := deps.Registry.PutOpensearch(ctx, updated); err != nil {
		return false, err
	}
	return true, nil
}
