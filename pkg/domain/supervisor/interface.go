package supervisor

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
)

// Interface is the workload supervisor: the runtime which holds the actual
// service configurations and runs the containers.
//
// All methods take the workload name as the supervisor knows it
// (e.g. "datahub-gms").
type Interface interface {
	// CanConnect probes whether the supervisor can be reached for the
	// given workload. A workload which does not exist yet is reachable;
	// only transport-level failures are errors.
	CanConnect(ctx context.Context, name string) error

	// SubmitPlan replaces the supervised configuration of the workload
	// with the given plan. Submitting does not wait for rollout.
	SubmitPlan(ctx context.Context, name string, plan domain.ServicePlan) error

	// ActualPlan reads back the currently supervised configuration.
	// A workload never submitted yields a zero, disabled plan.
	ActualPlan(ctx context.Context, name string) (domain.ServicePlan, error)

	// Health reports the live health of the workload.
	Health(ctx context.Context, name string) (domain.Health, error)

	// Exec runs the plan as a one-shot action and waits for it to finish.
	// A non-zero exit is an error.
	Exec(ctx context.Context, name string, plan domain.ServicePlan) error

	// Stage pushes support files so that they appear under
	// domain.StageDir in the workload's container.
	Stage(ctx context.Context, name string, files map[string][]byte) error
}
