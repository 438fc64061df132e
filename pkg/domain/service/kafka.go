package service

import (
	"context"

	"github.com/opst/datahub-operator/pkg/domain"
)

type kafkaSetup struct{}

// KafkaSetup creates the DataHub topics on the related Kafka.
func KafkaSetup() Service { return kafkaSetup{} }

func (kafkaSetup) Name() string { return "datahub-kafka-setup" }

func (kafkaSetup) Command() string { return "/usr/bin/tail -f /dev/null" }

func (kafkaSetup) Healthcheck() *domain.Healthcheck { return nil }

func (kafkaSetup) IsReady(sctx Context) bool {
	return sctx.State.Kafka != nil
}

func (s kafkaSetup) IsEnabled(sctx Context) bool {
	return s.IsReady(sctx)
}

func (s kafkaSetup) Environment(sctx Context) (map[string]string, error) {
	if !s.IsEnabled(sctx) {
		return nil, nil
	}

	conn := sctx.State.Kafka
	env := map[string]string{
		"KAFKA_BOOTSTRAP_SERVER": conn.BootstrapServer,
		// The value for this is not actually used in the container.
		"KAFKA_ZOOKEEPER_CONNECT":            "",
		"MAX_MESSAGE_BYTES":                  "5242880",
		"USE_CONFLUENT_SCHEMA_REGISTRY":      "false",
		"KAFKA_PROPERTIES_SECURITY_PROTOCOL": "SASL_PLAINTEXT",
		"KAFKA_PROPERTIES_SASL_MECHANISM":    "SCRAM-SHA-512",
		"KAFKA_PROPERTIES_SASL_JAAS_CONFIG":  saslJAASConfig(conn.Username, conn.Password),
	}
	return mergeEnv(env, kafkaTopicNames(sctx.KafkaTopicPrefix)), nil
}

func (s kafkaSetup) Initialize(ctx context.Context, sctx Context, deps Deps) (bool, error) {
	if !s.IsReady(sctx) {
		return false, nil
	}
	if sctx.State.Kafka.Initialized {
		return false, nil
	}

	env, err := s.Environment(sctx)
	if err != nil {
		return false, err
	}

	if err := stageRunner(ctx, deps, s.Name(), nil); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}
	if err := deps.Supervisor.Exec(ctx, s.Name(), domain.ServicePlan{
		Enabled:     true,
		Command:     stagedPath(runnerScript) + " /opt/kafka/kafka-setup.sh",
		Environment: env,
	}); err != nil {
		return false, domain.NewErrInitializationFailed(s.Name(), err)
	}

	// The relation may have been replaced by a webhook while the setup ran;
	// writing back the pass snapshot would lose that update. Record
	// Initialized only against the descriptor the setup actually hit.
	fresh, err := deps.Registry.Get(ctx)
	if err != nil {
		return false, err
	}
	conn := fresh.Kafka
	if conn == nil || !conn.SameEndpoint(*sctx.State.Kafka) {
		return true, nil
	}
	updated := *conn
	updated.Initialized = true
	if err := deps.Registry.PutKafka(ctx, updated); err != nil {
		return false, err
	}
	return true, nil
}
