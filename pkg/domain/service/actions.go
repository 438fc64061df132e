package service

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
)

type actions struct{}

// Actions is the DataHub Actions framework, consuming platform events
// from Kafka and dispatching ingestion pipelines.
func Actions() Service { return actions{} }

func (actions) Name() string { return "datahub-actions" }

func (actions) Command() string { return "/bin/sh -c /start_datahub_actions.sh" }

func (actions) Healthcheck() *domain.Healthcheck { return nil }

func (actions) IsReady(sctx Context) bool {
	st := sctx.State
	return st.Flag(domain.RanUpgrade).IsDone() &&
		st.Kafka != nil && st.Kafka.Initialized &&
		GMS().IsEnabled(sctx)
}

func (s actions) IsEnabled(sctx Context) bool {
	return s.IsReady(sctx)
}

func (s actions) Environment(sctx Context) (map[string]string, error) {
	if !s.IsEnabled(sctx) {
		return nil, nil
	}

	kafkaConn := sctx.State.Kafka
	env := map[string]string{
		"DATAHUB_TELEMETRY_ENABLED": "false",
		"DATAHUB_GMS_PROTOCOL":      "http",
		"DATAHUB_GMS_HOST":          "localhost",
		"DATAHUB_GMS_PORT":          "8080",

		"KAFKA_BOOTSTRAP_SERVER":             kafkaConn.BootstrapServer,
		"SCHEMA_REGISTRY_URL":                "http://localhost:8080/schema-registry/api/",
		"KAFKA_AUTO_OFFSET_POLICY":           "latest",
		"KAFKA_PROPERTIES_SECURITY_PROTOCOL": "SASL_PLAINTEXT",
		"KAFKA_PROPERTIES_SASL_MECHANISM":    "SCRAM-SHA-512",
		"KAFKA_PROPERTIES_SASL_USERNAME":     kafkaConn.Username,
		"KAFKA_PROPERTIES_SASL_PASSWORD":     kafkaConn.Password,
	}
	return mergeEnv(env, kafkaTopicNames(sctx.KafkaTopicPrefix)), nil
}

func (actions) Initialize(context.Context, Context, Deps) (bool, error) {
	return false, nil
}
