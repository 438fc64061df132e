package service

import (
	"path"

	"github.com/opst/datahub-operator/pkg/domain"
)

// DBName is the database DataHub expects in the related PostgreSQL.
const DBName = "datahub_db"

const FrontendPort int32 = 9002
const GMSPort int32 = 8080

// staged file names, visible under domain.StageDir in the containers
const (
	runnerScript         = "runner.sh"
	truststoreInitScript = "init-truststore.sh"
	opensearchCertsFile  = "opensearch_certificates.pem"
	opensearchRootCAFile = "opensearch_root_ca_cert.pem"
)

const opensearchRootCAAlias = "opensearch-root-ca"

func stagedPath(file string) string {
	return path.Join(domain.StageDir, file)
}

// keys of the encryption keys secret
const (
	GMSKeyItem      = "gms-key"
	FrontendKeyItem = "frontend-key"
)

// keys of the OIDC secret
const (
	OIDCClientIDItem     = "client-id"
	OIDCClientSecretItem = "client-secret"
)
