package service

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
	regdb "github.com/opst/datahub-operator/pkg/domain/registry/db"
	"github.com/opst/datahub-operator/pkg/domain/secrets"
	"github.com/opst/datahub-operator/pkg/domain/supervisor"
)

// Context carries everything a reconciliation pass resolved up front:
// the registry snapshot, the relevant configuration and the secrets read
// fresh for this pass.
type Context struct {
	State domain.State

	// prefix prepended to every kafka topic name, "" for none
	KafkaTopicPrefix string

	// prefix for opensearch index names, "" for none
	OpensearchIndexPrefix string

	// frontend session store workaround for OIDC redirect loops
	UsePlayCacheSessionStore bool

	// externally visible frontend hostname; OIDC mandates TLS, so a
	// non-empty value implies https
	ExternalFrontendHostname string

	// outbound proxy settings, raw URLs ("" for none)
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    []string

	// content of the encryption keys secret (gms-key, frontend-key)
	EncryptionKeys secrets.Secret

	// content of the OIDC secret; nil when SSO is not configured
	OIDC secrets.Secret
}

// Deps are the collaborators initialization steps act on.
type Deps struct {
	Supervisor supervisor.Interface
	Registry   regdb.Interface
}

// Service is one DataHub workload under supervision.
//
// IsReady means: the backing stores this workload depends on are resolved
// and initialized far enough for a one-time setup to run. IsEnabled means:
// ready AND the workload's own completion flags are set, so it should
// actually run. An Environment is only compiled for enabled workloads.
type Service interface {
	Name() string
	Command() string
	Healthcheck() *domain.Healthcheck

	IsReady(sctx Context) bool
	IsEnabled(sctx Context) bool

	// Environment compiles the full environment variable set.
	//
	// Returns nil (and no error) when the workload is not enabled.
	// Fails closed with domain.ErrImproperSecret when a referenced secret
	// has unusable contents; nothing partial is ever returned.
	Environment(sctx Context) (map[string]string, error)

	// Initialize runs the workload's one-time setup when it is ready and
	// the setup has not completed yet. It records completion durably via
	// deps.Registry before returning.
	//
	// Returns true when a setup actually ran (the caller must refresh its
	// State snapshot), false when there was nothing to do.
	Initialize(ctx context.Context, sctx Context, deps Deps) (bool, error)
}

// Plan compiles the desired supervised configuration of s for this pass.
func Plan(s Service, sctx Context) (domain.ServicePlan, error) {
	env, err := s.Environment(sctx)
	if err != nil {
		return domain.ServicePlan{}, err
	}
	return domain.ServicePlan{
		Enabled:     s.IsEnabled(sctx),
		Command:     s.Command(),
		Environment: env,
		Healthcheck: s.Healthcheck(),
	}, nil
}
