// Package reconcile implements one full reconciliation pass: readiness
// evaluation, the initialization sweep, environment compilation and plan
// submission, in the fixed workload priority order.
package reconcile

import (
	"context"
	"errors"
	"log"

	"github.com/opst/datahub-operator/cmd/operator/pass"
	"github.com/opst/datahub-operator/cmd/operator/recurring"
	"github.com/opst/datahub-operator/cmd/operator/status"
	"github.com/opst/datahub-operator/pkg/domain"
	regdb "github.com/opst/datahub-operator/pkg/domain/registry/db"
	"github.com/opst/datahub-operator/pkg/domain/secrets"
	"github.com/opst/datahub-operator/pkg/domain/service"
	"github.com/opst/datahub-operator/pkg/domain/supervisor"
)

// Task builds the reconcile pass.
//
// The carried value is the status the pass settled on, for the loop monitor.
// The pass is atomic from the registry's point of view: it either runs to a
// terminal status, defers wholesale (supervisor unreachable), or fails with
// an error and is retried from scratch on the next trigger.
func Task(
	logger *log.Logger,
	params pass.Params,
	registry regdb.Interface,
	store secrets.Interface,
	sup supervisor.Interface,
	keeper *status.Keeper,
) recurring.Task[domain.Status] {
	return func(ctx context.Context, last domain.Status) (domain.Status, bool, error) {

		settle := func(st domain.Status) (domain.Status, bool, error) {
			changed := keeper.Set(st)
			if changed {
				logger.Printf("status: %s", st)
			}
			return st, changed, nil
		}

		sctx, err := pass.Resolve(ctx, params, registry, store)
		if err != nil {
			if errors.Is(err, domain.ErrImproperSecret) {
				return settle(domain.Blocked(err.Error()))
			}
			return last, false, err
		}

		deps := service.Deps{Supervisor: sup, Registry: registry}
		for _, svc := range service.All() {
			ran, err := svc.Initialize(ctx, sctx, deps)
			if err != nil {
				if errors.Is(err, domain.ErrImproperSecret) {
					return settle(domain.Blocked(err.Error()))
				}
				// abort the pass; the durable gate is still open, so the
				// next trigger retries from scratch.
				return last, false, err
			}
			if !ran {
				continue
			}
			logger.Printf("initialized: %s", svc.Name())
			state, err := registry.Get(ctx)
			if err != nil {
				return last, false, err
			}
			sctx.State = state
		}

		plans, err := pass.Desired(sctx)
		if err != nil {
			if errors.Is(err, domain.ErrImproperSecret) {
				return settle(domain.Blocked(err.Error()))
			}
			return last, false, err
		}

		// nothing partial: reach every workload first, submit after.
		for _, svc := range service.All() {
			if err := sup.CanConnect(ctx, svc.Name()); err != nil {
				logger.Printf("deferring: cannot reach %s: %s", svc.Name(), err)
				return settle(domain.Waiting("supervisor unreachable: " + svc.Name()))
			}
		}
		for _, svc := range service.All() {
			if err := sup.SubmitPlan(ctx, svc.Name(), plans[svc.Name()]); err != nil {
				return last, false, err
			}
		}

		if reason, missing := pass.MissingRelations(sctx.State); missing {
			return settle(domain.Blocked(reason))
		}
		return settle(domain.Maintenance("replanning"))
	}
}
