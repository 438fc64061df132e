// Package pass assembles the per-pass context both the reconcile loop and
// the drift audit start from: the registry snapshot plus freshly read
// secrets. Secrets are never cached across passes.
package pass

import (
	"context"
	"fmt"

	"github.com/opst/datahub-operator/pkg/domain"
	regdb "github.com/opst/datahub-operator/pkg/domain/registry/db"
	"github.com/opst/datahub-operator/pkg/domain/secrets"
	"github.com/opst/datahub-operator/pkg/domain/service"
)

// Params is the slice of operator configuration a pass needs.
type Params struct {
	// name of the required encryption keys secret
	EncryptionKeysSecret string

	// name of the OIDC secret, "" when SSO is not configured
	OIDCSecret string

	KafkaTopicPrefix         string
	OpensearchIndexPrefix    string
	UsePlayCacheSessionStore bool
	ExternalFrontendHostname string

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    []string
}

// Resolve reads everything a pass depends on.
//
// Secret problems come back wrapping domain.ErrImproperSecret (blocked
// until an external actor fixes them); registry problems come back as-is
// (transient, retried on the next trigger).
func Resolve(
	ctx context.Context,
	params Params,
	registry regdb.Interface,
	store secrets.Interface,
) (service.Context, error) {
	state, err := registry.Get(ctx)
	if err != nil {
		return service.Context{}, err
	}

	keys, err := store.Get(ctx, params.EncryptionKeysSecret)
	if err != nil {
		return service.Context{}, domain.NewErrImproperSecret(
			"encryption keys secret %s: %s", params.EncryptionKeysSecret, err,
		)
	}
	if err := service.ValidateEncryptionKeys(keys); err != nil {
		return service.Context{}, err
	}

	var oidc secrets.Secret
	if params.OIDCSecret != "" {
		oidc, err = store.Get(ctx, params.OIDCSecret)
		if err != nil {
			return service.Context{}, domain.NewErrImproperSecret(
				"oidc secret %s: %s", params.OIDCSecret, err,
			)
		}
	}

	return service.Context{
		State:                    state,
		KafkaTopicPrefix:         params.KafkaTopicPrefix,
		OpensearchIndexPrefix:    params.OpensearchIndexPrefix,
		UsePlayCacheSessionStore: params.UsePlayCacheSessionStore,
		ExternalFrontendHostname: params.ExternalFrontendHostname,
		HTTPProxy:                params.HTTPProxy,
		HTTPSProxy:               params.HTTPSProxy,
		NoProxy:                  params.NoProxy,
		EncryptionKeys:           keys,
		OIDC:                     oidc,
	}, nil
}

// MissingRelations renders the blocked reason for unresolved dependencies,
// in the fixed db, kafka, opensearch order.
func MissingRelations(state domain.State) (string, bool) {
	missing := state.MissingConnections()
	if len(missing) == 0 {
		return "", false
	}
	reason := "missing relation(s): "
	for i, kind := range missing {
		if i > 0 {
			reason += ", "
		}
		reason += string(kind)
	}
	return reason, true
}

// Desired computes the desired plan for every workload.
func Desired(sctx service.Context) (domain.PlanSet, error) {
	plans := domain.PlanSet{}
	for _, svc := range service.All() {
		plan, err := service.Plan(svc, sctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", svc.Name(), err)
		}
		plans[svc.Name()] = plan
	}
	return plans, nil
}
