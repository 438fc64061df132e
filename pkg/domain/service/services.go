package service

import (
	"github.com/opst/datahub-operator/pkg/domain"
)

// All returns every DataHub workload in dependency order. Initialization
// sweeps and plan submission walk this slice front to back so that a
// workload's prerequisites are always handled before the workload itself.
func All() []Service {
	return []Service{
		PostgresqlSetup(),
		KafkaSetup(),
		OpensearchSetup(),
		Upgrade(),
		GMS(),
		Frontend(),
		Actions(),
	}
}

// ValidateEncryptionKeys checks that the encryption keys secret carries
// usable gms and frontend keys. Reconciliation cannot proceed without
// them, however far the relations have come.
func ValidateEncryptionKeys(keys map[string]string) error {
	for _, item := range []string{GMSKeyItem, FrontendKeyItem} {
		if keys[item] == "" {
			return domain.NewErrImproperSecret(item)
		}
	}
	return nil
}
