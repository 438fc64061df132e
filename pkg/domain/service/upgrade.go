package service

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
)

type upgrade struct{}

// Upgrade is the ecosystem migration: a SystemUpdate run which readies the
// backing stores for the DataHub version in use. Every long-running service
// gates on its completion flag.
func Upgrade() Service { return upgrade{} }

func (upgrade) Name() string { return "datahub-upgrade" }

func (upgrade) Command() string { return "/usr/bin/tail -f /dev/null" }

func (upgrade) Healthcheck() *domain.Healthcheck { return nil }

func (upgrade) IsReady(sctx Context) bool {
	return sctx.State.Database != nil &&
		sctx.State.Kafka != nil &&
		sctx.State.Opensearch != nil
}

func (s upgrade) IsEnabled(sctx Context) bool {
	return s.IsReady(sctx)
}

func (s upgrade) Environment(sctx Context) (map[string]string, error) {
	if !s.IsEnabled(sctx) {
		return nil, nil
	}

	dbConn := sctx.State.Database
	kafkaConn := sctx.State.Kafka
	osConn := sctx.State.Opensearch

	env := map[string]string{
		"DATAHUB_ANALYTICS_ENABLED":                            "true",
		"SCHEMA_REGISTRY_SYSTEM_UPDATE":                        "true",
		"SPRING_KAFKA_PROPERTIES_AUTO_REGISTER_SCHEMAS":        "true",
		"SPRING_KAFKA_PROPERTIES_USE_LATEST_VERSION":           "true",
		"SCHEMA_REGISTRY_TYPE":                                 "INTERNAL",
		"ELASTICSEARCH_BUILD_INDICES_CLONE_INDICES":            "false",
		"ELASTICSEARCH_INDEX_BUILDER_MAPPINGS_REINDEX":         "true",
		"ELASTICSEARCH_INDEX_BUILDER_SETTINGS_REINDEX":         "true",
		"ELASTICSEARCH_BUILD_INDICES_ALLOW_DOC_COUNT_MISMATCH": "false",
		"ENTITY_REGISTRY_CONFIG_PATH":                          "/datahub/datahub-gms/resources/entity-registry.yml",
		"DATAHUB_GMS_HOST":                                     "localhost",
		"DATAHUB_GMS_PORT":                                     "8080",
		"EBEAN_DATASOURCE_USERNAME":                            dbConn.Username,
		"EBEAN_DATASOURCE_PASSWORD":                            dbConn.Password,
		"EBEAN_DATASOURCE_HOST":                                dbConn.Host + ":" + dbConn.Port,
		"EBEAN_DATASOURCE_URL":                                 jdbcURL(*dbConn),
		"EBEAN_DATASOURCE_DRIVER":                              "org.postgresql.Driver",
		"KAFKA_BOOTSTRAP_SERVER":                               kafkaConn.BootstrapServer,
		"KAFKA_PRODUCER_COMPRESSION_TYPE":                      "none",
		"KAFKA_PRODUCER_MAX_REQUEST_SIZE":                      "5242880",
		"KAFKA_CONSUMER_MAX_PARTITION_FETCH_BYTES":             "5242880",
		"KAFKA_SCHEMAREGISTRY_URL":                             "http://localhost:8080/schema-registry/api/",
		"ELASTICSEARCH_HOST":                                   osConn.Host,
		"ELASTICSEARCH_PORT":                                   osConn.Port,
		"SKIP_ELASTICSEARCH_CHECK":                             "true",
		"ELASTICSEARCH_INSECURE":                               "false",
		"ELASTICSEARCH_USE_SSL":                                "true",
		"ELASTICSEARCH_USERNAME":                               osConn.Username,
		"ELASTICSEARCH_PASSWORD":                               osConn.Password,
		"GRAPH_SERVICE_IMPL":                                   "elasticsearch",
		"SPRING_KAFKA_PROPERTIES_SECURITY_PROTOCOL":            "SASL_PLAINTEXT",
		"SPRING_KAFKA_PROPERTIES_SASL_MECHANISM":               "SCRAM-SHA-512",
		"SPRING_KAFKA_PROPERTIES_SASL_JAAS_CONFIG":             saslJAASConfig(kafkaConn.Username, kafkaConn.Password),
	}
	if sctx.OpensearchIndexPrefix != "" {
		env["INDEX_PREFIX"] = sctx.OpensearchIndexPrefix
	}
	return mergeEnv(env, kafkaTopicNames(sctx.KafkaTopicPrefix)), nil
}

// Initialize runs the migration. The semantics are loosened to fit the
// service pattern: the "initialization" here upgrades the whole ecosystem.
func (s upgrade) Initialize(ctx context.Context, sctx Context, deps Deps) (bool, error) {
	if sctx.State.Flag(domain.RanUpgrade).IsDone() {
		return false, nil
	}

	// The migration reaches opensearch over TLS; it cannot run before the
	// indices exist and the truststore carries the relation's root CA.
	if sctx.State.Opensearch == nil || !sctx.State.Opensearch.Initialized {
		return false, nil
	}
	if !s.IsReady(sctx) {
		return false, nil
	}

	if !sctx.State.Flag(domain.UpgradeTruststoreInitialized).IsDone() {
		if err := initTruststore(ctx, sctx, deps, s.Name()); err != nil {
			return false, domain.NewErrInitializationFailed(s.Name(), err)
		}
		if err := deps.Registry.SetFlag(
			ctx, domain.UpgradeTruststoreInitialized, domain.Done,
		); err != nil {
			return false, err
		}
	}

	env, err := s.Environment(sctx)
	if err != nil {
		return false, err
	}

	if err := stageRunner(ctx, deps, s.Name(), nil); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}
	if err := deps.Supervisor.Exec(ctx, s.Name(), domain.ServicePlan{
		Enabled: true,
		Command: stagedPath(runnerScript) +
			" java -jar /datahub/datahub-upgrade/bin/datahub-upgrade.jar -u SystemUpdate",
		Environment: env,
	}); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}

	if err := deps.Registry.SetFlag(ctx, domain.RanUpgrade, domain.Done); err != nil {
		return false, err
	}
	return true, nil
}
