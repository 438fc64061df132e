// Package audit implements the periodic drift audit: it compares the
// actual supervised plans against freshly recomputed desired plans and
// reads live health, classifying the result as
// Invalid > NotReady > Down > Active.
//
// Invalid short-circuits: the audit wakes the reconcile loop and lets it
// reapply the correct plan (drift self-healing). Only the audit ever
// resolves the status to Active.
package audit

import (
	"context"
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

// Task builds the audit pass.
//
// wakeReconcile pokes the reconcile loop; it must not block.
func Task(
	logger *log.Logger,
	params pass.Params,
	registry regdb.Interface,
	store secrets.Interface,
	sup supervisor.Interface,
	keeper *status.Keeper,
	wakeReconcile func(),
) recurring.Task[domain.Status] {
	return func(ctx context.Context, last domain.Status) (domain.Status, bool, error) {

		// blocked needs an external actor; there is nothing to audit.
		if current := keeper.Get(); current.Kind == domain.StatusBlocked {
			return current, false, nil
		}

		settle := func(st domain.Status) (domain.Status, bool, error) {
			changed := keeper.Set(st)
			if changed {
				logger.Printf("status: %s", st)
			}
			return st, changed, nil
		}

		sctx, err := pass.Resolve(ctx, params, registry, store)
		if err != nil {
			// the reconcile loop owns blocking on secret problems.
			return last, false, err
		}
		desired, err := pass.Desired(sctx)
		if err != nil {
			return last, false, err
		}

		notReady := ""
		down := ""
		for _, svc := range service.All() {
			name := svc.Name()

			if err := sup.CanConnect(ctx, name); err != nil {
				if notReady == "" {
					notReady = name
				}
				continue
			}

			actual, err := sup.ActualPlan(ctx, name)
			if err != nil {
				return last, false, err
			}
			if !actual.Equal(desired[name]) {
				logger.Printf("drift detected at %s: actual %s != desired %s",
					name, actual, desired[name])
				wakeReconcile()
				return settle(domain.Maintenance("replanning"))
			}

			if svc.Healthcheck() == nil || !desired[name].Enabled {
				continue
			}
			health, err := sup.Health(ctx, name)
			if err != nil {
				return last, false, err
			}
			if health != domain.HealthUp {
				if down == "" {
					down = name
				}
			}
		}

		if notReady != "" {
			return settle(domain.Waiting("supervisor unreachable: " + notReady))
		}
		if down != "" {
			return settle(domain.Maintenance(down + " is not healthy yet"))
		}
		if reason, missing := pass.MissingRelations(sctx.State); missing {
			return settle(domain.Blocked(reason))
		}
		return settle(domain.Active())
	}
}
