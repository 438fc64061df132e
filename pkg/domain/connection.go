package domain

// ConnectionKind identifies one external dependency of DataHub.
type ConnectionKind string

const (
	DatabaseConnectionKind   ConnectionKind = "db"
	KafkaConnectionKind      ConnectionKind = "kafka"
	OpensearchConnectionKind ConnectionKind = "opensearch"
)

func AsConnectionKind(s string) (ConnectionKind, bool) {
	switch ConnectionKind(s) {
	case DatabaseConnectionKind, KafkaConnectionKind, OpensearchConnectionKind:
		return ConnectionKind(s), true
	}
	return "", false
}

// Resolved connection to PostgreSQL.
//
// Initialized flips to true exactly once, when the one-time schema bootstrap
// has succeeded, and never reverts while the descriptor exists.
type DatabaseConnection struct {
	Host        string `json:"host"`
	Port        string `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DBName      string `json:"dbname"`
	Initialized bool   `json:"initialized"`
}

func (c DatabaseConnection) Equal(o DatabaseConnection) bool {
	return c == o
}

// SameEndpoint reports whether both descriptors resolve the same relation,
// ignoring the bootstrap progress bit.
func (c DatabaseConnection) SameEndpoint(o DatabaseConnection) bool {
	c.Initialized = false
	o.Initialized = false
	return c == o
}

// Resolved connection to Kafka.
type KafkaConnection struct {
	BootstrapServer string `json:"bootstrap_server"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Initialized     bool   `json:"initialized"`
}

func (c KafkaConnection) Equal(o KafkaConnection) bool {
	return c == o
}

// SameEndpoint reports whether both descriptors resolve the same relation,
// ignoring the bootstrap progress bit.
func (c KafkaConnection) SameEndpoint(o KafkaConnection) bool {
	c.Initialized = false
	o.Initialized = false
	return c == o
}

// Resolved connection to OpenSearch.
//
// TLSCA is a PEM bundle; its root certificate seeds the truststores of
// gms, frontend and the upgrade job.
type OpensearchConnection struct {
	Host        string `json:"host"`
	Port        string `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TLSCA       string `json:"tls-ca"`
	Initialized bool   `json:"initialized"`
}

func (c OpensearchConnection) Equal(o OpensearchConnection) bool {
	return c == o
}

// SameEndpoint reports whether both descriptors resolve the same relation,
// ignoring the bootstrap progress bit.
func (c OpensearchConnection) SameEndpoint(o OpensearchConnection) bool {
	c.Initialized = false
	o.Initialized = false
	return c == o
}

// State is a snapshot of the persisted registry: every resolved connection
// descriptor plus the durable flags.
//
// A nil connection means the relation has never been resolved (or was
// removed). State is read at the top of a reconciliation pass and refreshed
// after every successful initialization; it is never mutated in place to
// convey updates back to the store.
type State struct {
	Database   *DatabaseConnection
	Kafka      *KafkaConnection
	Opensearch *OpensearchConnection

	Flags map[FlagName]Flag
}

// Flag returns the durable flag, Unknown when never set.
func (s State) Flag(name FlagName) Flag {
	if s.Flags == nil {
		return Unknown
	}
	return s.Flags[name]
}

// MissingConnections lists not-yet-resolved dependencies, in the fixed
// db, kafka, opensearch order.
func (s State) MissingConnections() []ConnectionKind {
	missing := []ConnectionKind{}
	if s.Database == nil {
		missing = append(missing, DatabaseConnectionKind)
	}
	if s.Kafka == nil {
		missing = append(missing, KafkaConnectionKind)
	}
	if s.Opensearch == nil {
		missing = append(missing, OpensearchConnectionKind)
	}
	return missing
}

func (s State) Equal(o State) bool {
	if !eqPtr(s.Database, o.Database) ||
		!eqPtr(s.Kafka, o.Kafka) ||
		!eqPtr(s.Opensearch, o.Opensearch) {
		return false
	}
	if len(s.Flags) != len(o.Flags) {
		return false
	}
	for name, f := range s.Flags {
		if o.Flags[name] != f {
			return false
		}
	}
	return true
}

func eqPtr[T interface{ Equal(T) bool }](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return (*a).Equal(*b)
}
