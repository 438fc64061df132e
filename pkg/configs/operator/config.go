package operator

import "time"

// Configuration of the DataHub operator.
//
// to get `OperatorConfig` instance, use `OperatorConfigMarshall.TrySeal()` .
type OperatorConfig struct {
	cluster *ClusterConfig
	datahub *DataHubConfig
	secrets *SecretsConfig
	loops   *LoopsConfig
	web     *WebConfig
}

func (c *OperatorConfig) Cluster() *ClusterConfig {
	return c.cluster
}

func (c *OperatorConfig) DataHub() *DataHubConfig {
	return c.datahub
}

func (c *OperatorConfig) Secrets() *SecretsConfig {
	return c.secrets
}

func (c *OperatorConfig) Loops() *LoopsConfig {
	return c.loops
}

func (c *OperatorConfig) Web() *WebConfig {
	return c.web
}

type ClusterConfig struct {
	namespace string
	database  string
	images    map[string]string
}

// k8s namespace where the DataHub workloads are deployed.
func (c *ClusterConfig) Namespace() string {
	return c.namespace
}

// Connection string for the operator's own PostgreSQL registry.
func (c *ClusterConfig) Database() string {
	return c.database
}

// Container image reference per workload name. Sealed with every known
// workload present and every reference parsed.
func (c *ClusterConfig) Images() map[string]string {
	images := map[string]string{}
	for name, ref := range c.images {
		images[name] = ref
	}
	return images
}

// DataHub-level policy knobs, all optional.
type DataHubConfig struct {
	kafkaTopicPrefix         string
	opensearchIndexPrefix    string
	usePlayCacheSessionStore bool
	externalFrontendHostname string
	httpProxy                string
	httpsProxy               string
	noProxy                  []string
}

func (c *DataHubConfig) KafkaTopicPrefix() string {
	return c.kafkaTopicPrefix
}

func (c *DataHubConfig) OpensearchIndexPrefix() string {
	return c.opensearchIndexPrefix
}

func (c *DataHubConfig) UsePlayCacheSessionStore() bool {
	return c.usePlayCacheSessionStore
}

func (c *DataHubConfig) ExternalFrontendHostname() string {
	return c.externalFrontendHostname
}

func (c *DataHubConfig) HTTPProxy() string {
	return c.httpProxy
}

func (c *DataHubConfig) HTTPSProxy() string {
	return c.httpsProxy
}

func (c *DataHubConfig) NoProxy() []string {
	return append([]string{}, c.noProxy...)
}

type SecretsConfig struct {
	encryptionKeys string
	oidc           string
	signKey        string
}

// name of the k8s secret holding gms-key and frontend-key. required.
func (c *SecretsConfig) EncryptionKeys() string {
	return c.encryptionKeys
}

// name of the k8s secret holding client-id and client-secret for SSO.
// "" when SSO is not configured.
func (c *SecretsConfig) OIDC() string {
	return c.oidc
}

// name of the k8s secret holding the HS256 key signing web API tokens.
func (c *SecretsConfig) SignKey() string {
	return c.signKey
}

type LoopsConfig struct {
	reconcileInterval time.Duration
	auditInterval     time.Duration
	execDeadline      time.Duration
}

// cooldown of the reconcile loop between idle passes.
func (c *LoopsConfig) ReconcileInterval() time.Duration {
	return c.reconcileInterval
}

// period of the drift audit.
func (c *LoopsConfig) AuditInterval() time.Duration {
	return c.auditInterval
}

// bound on one-shot setup actions.
func (c *LoopsConfig) ExecDeadline() time.Duration {
	return c.execDeadline
}

type WebConfig struct {
	port int32
}

func (c *WebConfig) Port() int32 {
	return c.port
}
