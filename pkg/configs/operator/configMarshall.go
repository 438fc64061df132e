package operator

import (
	"fmt"
	"time"

	"github.com/google/go-containerregistry/pkg/name"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/operator.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type OperatorConfigMarshall struct {
	Cluster *ClusterConfigMarshall `yaml:"cluster"`
	DataHub *DataHubConfigMarshall `yaml:"datahub,omitempty"`
	Secrets *SecretsConfigMarshall `yaml:"secrets"`
	Loops   *LoopsConfigMarshall   `yaml:"loops,omitempty"`
	Web     *WebConfigMarshall     `yaml:"web"`
}

var _ Marshalled[*OperatorConfig] = &OperatorConfigMarshall{}

func (m *OperatorConfigMarshall) trySeal(path string) *OperatorConfig {
	datahub := m.DataHub
	if datahub == nil {
		datahub = &DataHubConfigMarshall{}
	}
	loops := m.Loops
	if loops == nil {
		loops = &LoopsConfigMarshall{}
	}
	return &OperatorConfig{
		cluster: nonnil(m.Cluster, path+".cluster").trySeal(path + ".cluster"),
		datahub: datahub.trySeal(path + ".datahub"),
		secrets: nonnil(m.Secrets, path+".secrets").trySeal(path + ".secrets"),
		loops:   loops.trySeal(path + ".loops"),
		web:     nonnil(m.Web, path+".web").trySeal(path + ".web"),
	}
}

// every workload an image must be configured for
var workloadNames = []string{
	"datahub-postgresql-setup",
	"datahub-kafka-setup",
	"datahub-opensearch-setup",
	"datahub-upgrade",
	"datahub-gms",
	"datahub-frontend",
	"datahub-actions",
}

type ClusterConfigMarshall struct {
	Namespace string            `yaml:"namespace"`
	Database  string            `yaml:"database"`
	Images    map[string]string `yaml:"images"`
}

func (m *ClusterConfigMarshall) trySeal(path string) *ClusterConfig {
	images := map[string]string{}
	for _, workload := range workloadNames {
		ref := required(m.Images[workload], fmt.Sprintf("%s.images[%s]", path, workload))
		if _, err := name.ParseReference(ref); err != nil {
			panic(fmt.Errorf("%s.images[%s] is not an image reference: %w", path, workload, err))
		}
		images[workload] = ref
	}
	for workload := range m.Images {
		if _, ok := images[workload]; !ok {
			panic(fmt.Sprintf("%s.images[%s] names an unknown workload", path, workload))
		}
	}

	return &ClusterConfig{
		namespace: required(m.Namespace, path+".namespace"),
		database:  required(m.Database, path+".database"),
		images:    images,
	}
}

type DataHubConfigMarshall struct {
	KafkaTopicPrefix         string   `yaml:"kafkaTopicPrefix,omitempty"`
	OpensearchIndexPrefix    string   `yaml:"opensearchIndexPrefix,omitempty"`
	UsePlayCacheSessionStore bool     `yaml:"usePlayCacheSessionStore,omitempty"`
	ExternalFrontendHostname string   `yaml:"externalFrontendHostname,omitempty"`
	HTTPProxy                string   `yaml:"httpProxy,omitempty"`
	HTTPSProxy               string   `yaml:"httpsProxy,omitempty"`
	NoProxy                  []string `yaml:"noProxy,omitempty"`
}

func (m *DataHubConfigMarshall) trySeal(string) *DataHubConfig {
	return &DataHubConfig{
		kafkaTopicPrefix:         m.KafkaTopicPrefix,
		opensearchIndexPrefix:    m.OpensearchIndexPrefix,
		usePlayCacheSessionStore: m.UsePlayCacheSessionStore,
		externalFrontendHostname: m.ExternalFrontendHostname,
		httpProxy:                m.HTTPProxy,
		httpsProxy:               m.HTTPSProxy,
		noProxy:                  append([]string{}, m.NoProxy...),
	}
}

type SecretsConfigMarshall struct {
	EncryptionKeys string `yaml:"encryptionKeys"`
	OIDC           string `yaml:"oidc,omitempty"`
	SignKey        string `yaml:"signKey"`
}

func (m *SecretsConfigMarshall) trySeal(path string) *SecretsConfig {
	return &SecretsConfig{
		encryptionKeys: required(m.EncryptionKeys, path+".encryptionKeys"),
		oidc:           m.OIDC,
		signKey:        required(m.SignKey, path+".signKey"),
	}
}

type LoopsConfigMarshall struct {
	ReconcileInterval string `yaml:"reconcileInterval,omitempty"`
	AuditInterval     string `yaml:"auditInterval,omitempty"`
	ExecDeadline      string `yaml:"execDeadline,omitempty"`
}

func (m *LoopsConfigMarshall) trySeal(path string) *LoopsConfig {
	return &LoopsConfig{
		reconcileInterval: duration(m.ReconcileInterval, 1*time.Minute, path+".reconcileInterval"),
		auditInterval:     duration(m.AuditInterval, 5*time.Minute, path+".auditInterval"),
		execDeadline:      duration(m.ExecDeadline, 30*time.Minute, path+".execDeadline"),
	}
}

type WebConfigMarshall struct {
	Port int32 `yaml:"port"`
}

func (m *WebConfigMarshall) trySeal(path string) *WebConfig {
	return &WebConfig{
		port: required(m.Port, path+".port"),
	}
}

func duration(v string, fallback time.Duration, path string) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed as duration: %w", path, err))
	}
	if d <= 0 {
		panic(path + " should be positive")
	}
	return d
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
