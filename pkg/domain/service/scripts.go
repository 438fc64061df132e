package service

import (
	"context"
	_ "embed"

	"github.com/opst/datahub-operator/pkg/domain"
)

//go:embed scripts/runner.sh
var runnerScriptContent []byte

//go:embed scripts/init-truststore.sh
var truststoreInitScriptContent []byte

// stageRunner pushes the generic setup runner to the workload.
func stageRunner(ctx context.Context, deps Deps, name string, extra map[string][]byte) error {
	files := map[string][]byte{
		runnerScript: runnerScriptContent,
	}
	for file, content := range extra {
		files[file] = content
	}
	return deps.Supervisor.Stage(ctx, name, files)
}

// initTruststore stages the truststore bootstrap and runs it with the root
// CA of the opensearch relation. Used by every workload which talks to
// opensearch over TLS through the JVM.
func initTruststore(ctx context.Context, sctx Context, deps Deps, name string) error {
	rootCA, err := opensearchRootCA(*sctx.State.Opensearch)
	if err != nil {
		return err
	}

	if err := deps.Supervisor.Stage(ctx, name, map[string][]byte{
		runnerScript:         runnerScriptContent,
		truststoreInitScript: truststoreInitScriptContent,
		opensearchRootCAFile: []byte(rootCA),
	}); err != nil {
		return err
	}

	return deps.Supervisor.Exec(ctx, name, domain.ServicePlan{
		Enabled: true,
		Command: stagedPath(truststoreInitScript),
		Environment: map[string]string{
			"CERT_PATH":  stagedPath(opensearchRootCAFile),
			"CERT_ALIAS": opensearchRootCAAlias,
		},
	})
}
