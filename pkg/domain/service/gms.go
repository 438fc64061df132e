package service

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
)

type gms struct{}

// GMS is the Generalized Metadata Service, the core backend of DataHub.
func GMS() Service { return gms{} }

func (gms) Name() string { return "datahub-gms" }

func (gms) Command() string { return "/bin/sh -c /datahub/datahub-gms/scripts/start.sh" }

func (gms) Healthcheck() *domain.Healthcheck {
	return &domain.Healthcheck{Path: "/health", Port: GMSPort}
}

func (gms) IsReady(sctx Context) bool {
	st := sctx.State
	return st.Flag(domain.RanUpgrade).IsDone() &&
		st.Database != nil && st.Database.Initialized &&
		st.Kafka != nil && st.Kafka.Initialized &&
		st.Opensearch != nil && st.Opensearch.Initialized
}

func (s gms) IsEnabled(sctx Context) bool {
	return s.IsReady(sctx) &&
		sctx.State.Flag(domain.GMSTruststoreInitialized).IsDone()
}

func (s gms) Environment(sctx Context) (map[string]string, error) {
	if !s.IsEnabled(sctx) {
		return nil, nil
	}

	key := sctx.EncryptionKeys[GMSKeyItem]
	if key == "" {
		return nil, domain.NewErrImproperSecret(GMSKeyItem)
	}

	dbConn := sctx.State.Database
	kafkaConn := sctx.State.Kafka
	osConn := sctx.State.Opensearch

	env := map[string]string{
		"DATAHUB_TELEMETRY_ENABLED":   "false",
		"EBEAN_DATASOURCE_PORT":       dbConn.Port,
		"SHOW_SEARCH_FILTERS_V2":      "true",
		"SHOW_BROWSE_V2":              "true",
		"BACKFILL_BROWSE_PATHS_V2":    "true",
		"ENABLE_PROMETHEUS":           "false",
		"MCE_CONSUMER_ENABLED":        "true",
		"MAE_CONSUMER_ENABLED":        "true",
		"PE_CONSUMER_ENABLED":         "true",
		"ENTITY_REGISTRY_CONFIG_PATH": "/datahub/datahub-gms/resources/entity-registry.yml",
		"DATAHUB_ANALYTICS_ENABLED":   "true",

		"EBEAN_DATASOURCE_USERNAME": dbConn.Username,
		"EBEAN_DATASOURCE_PASSWORD": dbConn.Password,
		"EBEAN_DATASOURCE_HOST":     dbConn.Host + ":" + dbConn.Port,
		"EBEAN_DATASOURCE_URL":      jdbcURL(*dbConn),
		"EBEAN_DATASOURCE_DRIVER":   "org.postgresql.Driver",

		"KAFKA_BOOTSTRAP_SERVER":                       kafkaConn.BootstrapServer,
		"KAFKA_PRODUCER_COMPRESSION_TYPE":              "none",
		"KAFKA_CONSUMER_STOP_ON_DESERIALIZATION_ERROR": "true",
		"KAFKA_PRODUCER_MAX_REQUEST_SIZE":              "5242880",
		"KAFKA_CONSUMER_MAX_PARTITION_FETCH_BYTES":     "5242880",
		"KAFKA_SCHEMAREGISTRY_URL":                     "http://localhost:8080/schema-registry/api/",
		"SCHEMA_REGISTRY_TYPE":                         "INTERNAL",
		"SPRING_KAFKA_PROPERTIES_SECURITY_PROTOCOL":    "SASL_PLAINTEXT",
		"SPRING_KAFKA_PROPERTIES_SASL_MECHANISM":       "SCRAM-SHA-512",
		"SPRING_KAFKA_PROPERTIES_SASL_JAAS_CONFIG":     saslJAASConfig(kafkaConn.Username, kafkaConn.Password),

		"ELASTICSEARCH_HOST":       osConn.Host,
		"ELASTICSEARCH_PORT":       osConn.Port,
		"SKIP_ELASTICSEARCH_CHECK": "true",
		"ELASTICSEARCH_USE_SSL":    "true",
		"ELASTICSEARCH_USERNAME":   osConn.Username,
		"ELASTICSEARCH_PASSWORD":   osConn.Password,
		"GRAPH_SERVICE_IMPL":       "elasticsearch",

		"UI_INGESTION_ENABLED":                              "true",
		"SECRET_SERVICE_ENCRYPTION_KEY":                     key,
		"ENTITY_SERVICE_ENABLE_RETENTION":                   "false",
		"ELASTICSEARCH_QUERY_MAX_TERM_BUCKET_SIZE":          "20",
		"ELASTICSEARCH_QUERY_EXACT_MATCH_EXCLUSIVE":         "false",
		"ELASTICSEARCH_QUERY_EXACT_MATCH_WITH_PREFIX":       "true",
		"ELASTICSEARCH_QUERY_EXACT_MATCH_FACTOR":            "2",
		"ELASTICSEARCH_QUERY_EXACT_MATCH_PREFIX_FACTOR":     "1.6",
		"ELASTICSEARCH_QUERY_EXACT_MATCH_CASE_FACTOR":       "0.7",
		"ELASTICSEARCH_QUERY_EXACT_MATCH_ENABLE_STRUCTURED": "true",
		"ELASTICSEARCH_SEARCH_GRAPH_TIMEOUT_SECONDS":        "50",
		"ELASTICSEARCH_SEARCH_GRAPH_BATCH_SIZE":             "1000",
		"ELASTICSEARCH_SEARCH_GRAPH_MAX_RESULT":             "10000",
		"SEARCH_SERVICE_ENABLE_CACHE":                       "false",
		"LINEAGE_SEARCH_CACHE_ENABLED":                      "false",
		"ELASTICSEARCH_INDEX_BUILDER_MAPPINGS_REINDEX":      "true",
		"ELASTICSEARCH_INDEX_BUILDER_SETTINGS_REINDEX":      "true",
		"ALWAYS_EMIT_CHANGE_LOG":                            "false",
		"GRAPH_SERVICE_DIFF_MODE_ENABLED":                   "true",
		"GRAPHQL_QUERY_INTROSPECTION_ENABLED":               "true",
		"METADATA_SERVICE_AUTH_ENABLED":                     "true",
	}
	if sctx.OpensearchIndexPrefix != "" {
		env["INDEX_PREFIX"] = sctx.OpensearchIndexPrefix
	}
	return mergeEnv(env, kafkaTopicNames(sctx.KafkaTopicPrefix)), nil
}

func (s gms) Initialize(ctx context.Context, sctx Context, deps Deps) (bool, error) {
	if !s.IsReady(sctx) {
		return false, nil
	}
	if sctx.State.Flag(domain.GMSTruststoreInitialized).IsDone() {
		return false, nil
	}

	if err := initTruststore(ctx, sctx, deps, s.Name()); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}
	if err := deps.Registry.SetFlag(
		ctx, domain.GMSTruststoreInitialized, domain.Done,
	); err != nil {
		return false, err
	}
	return true, nil
}
