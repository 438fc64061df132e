package service

import (
	"context"
	"fmt"

	"github.com/opst/datahub-operator/pkg/domain"
)

type frontend struct{}

// Frontend is the DataHub web UI, a Play application talking to GMS.
func Frontend() Service { return frontend{} }

func (frontend) Name() string { return "datahub-frontend" }

func (frontend) Command() string { return "/bin/sh -c /start.sh" }

func (frontend) Healthcheck() *domain.Healthcheck {
	return &domain.Healthcheck{Path: "/admin", Port: FrontendPort}
}

func (frontend) IsReady(sctx Context) bool {
	st := sctx.State
	return st.Flag(domain.RanUpgrade).IsDone() &&
		st.Kafka != nil && st.Kafka.Initialized &&
		st.Opensearch != nil && st.Opensearch.Initialized &&
		GMS().IsEnabled(sctx)
}

func (s frontend) IsEnabled(sctx Context) bool {
	return s.IsReady(sctx) &&
		sctx.State.Flag(domain.FrontendTruststoreInitialized).IsDone()
}

func (s frontend) Environment(sctx Context) (map[string]string, error) {
	if !s.IsEnabled(sctx) {
		return nil, nil
	}

	key := sctx.EncryptionKeys[FrontendKeyItem]
	if key == "" {
		return nil, domain.NewErrImproperSecret(FrontendKeyItem)
	}

	kafkaConn := sctx.State.Kafka
	osConn := sctx.State.Opensearch

	env := map[string]string{
		"THEME_V2_DEFAULT":  "true",
		"ENABLE_PROMETHEUS": "false",
		"DATAHUB_GMS_HOST":  "localhost",
		"DATAHUB_GMS_PORT":  "8080",

		"DATAHUB_SECRET":               key,
		"DATAHUB_APP_VERSION":          "1.1.0",
		"DATAHUB_PLAY_MEM_BUFFER_SIZE": "10MB",
		"DATAHUB_ANALYTICS_ENABLED":    "true",
		"ENFORCE_VALID_EMAIL":          "true",

		"KAFKA_BOOTSTRAP_SERVER":                    kafkaConn.BootstrapServer,
		"KAFKA_PRODUCER_COMPRESSION_TYPE":           "none",
		"KAFKA_PRODUCER_MAX_REQUEST_SIZE":           "5242880",
		"KAFKA_CONSUMER_MAX_PARTITION_FETCH_BYTES":  "5242880",
		"SPRING_KAFKA_PROPERTIES_SECURITY_PROTOCOL": "SASL_PLAINTEXT",
		"SPRING_KAFKA_PROPERTIES_SASL_MECHANISM":    "SCRAM-SHA-512",
		"SPRING_KAFKA_PROPERTIES_SASL_JAAS_CONFIG":  saslJAASConfig(kafkaConn.Username, kafkaConn.Password),

		"ELASTIC_CLIENT_HOST":     osConn.Host,
		"ELASTIC_CLIENT_PORT":     osConn.Port,
		"ELASTIC_CLIENT_USE_SSL":  "true",
		"ELASTIC_CLIENT_USERNAME": osConn.Username,
		"ELASTIC_CLIENT_PASSWORD": osConn.Password,

		"AUTH_SESSION_TTL_HOURS":        "24",
		"METADATA_SERVICE_AUTH_ENABLED": "true",
	}
	if sctx.UsePlayCacheSessionStore {
		env["PAC4J_SESSIONSTORE_PROVIDER"] = "PlayCacheSessionStore"
	}
	if sctx.OpensearchIndexPrefix != "" {
		env["ELASTIC_INDEX_PREFIX"] = sctx.OpensearchIndexPrefix
	}

	env = mergeEnv(env, kafkaTopicNames(sctx.KafkaTopicPrefix))
	env = mergeEnv(env, proxyEnv(sctx, "localhost"))

	oidc, err := oidcEnv(sctx)
	if err != nil {
		return nil, err
	}
	return mergeEnv(env, oidc), nil
}

// oidcEnv configures SSO against Google when the OIDC secret is granted.
// An empty client id or secret in the granted secret is a misconfiguration
// and fails the whole environment rather than falling back to local auth.
func oidcEnv(sctx Context) (map[string]string, error) {
	if sctx.OIDC == nil {
		return nil, nil
	}

	clientID := sctx.OIDC[OIDCClientIDItem]
	clientSecret := sctx.OIDC[OIDCClientSecretItem]
	if clientID == "" {
		return nil, domain.NewErrImproperSecret(OIDCClientIDItem)
	}
	if clientSecret == "" {
		return nil, domain.NewErrImproperSecret(OIDCClientSecretItem)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", FrontendPort)
	if sctx.ExternalFrontendHostname != "" {
		baseURL = "https://" + sctx.ExternalFrontendHostname
	}

	return map[string]string{
		"AUTH_OIDC_ENABLED":         "true",
		"AUTH_OIDC_DISCOVERY_URI":   "https://accounts.google.com/.well-known/openid-configuration",
		"AUTH_OIDC_BASE_URL":        baseURL,
		"AUTH_OIDC_SCOPE":           "openid profile email",
		"AUTH_OIDC_CLIENT_ID":       clientID,
		"AUTH_OIDC_CLIENT_SECRET":   clientSecret,
		"AUTH_OIDC_USER_NAME_CLAIM": "email",
	}, nil
}

func (s frontend) Initialize(ctx context.Context, sctx Context, deps Deps) (bool, error) {
	if !s.IsReady(sctx) {
		return false, nil
	}
	if sctx.State.Flag(domain.FrontendTruststoreInitialized).IsDone() {
		return false, nil
	}

	if err := initTruststore(ctx, sctx, deps, s.Name()); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}
	if err := deps.Registry.SetFlag(
		ctx, domain.FrontendTruststoreInitialized, domain.Done,
	); err != nil {
		return false, err
	}
	return true, nil
}
