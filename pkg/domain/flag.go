package domain

// Flag is a durable tri-state completion marker.
//
// The distinction between Unknown and Pending matters: an idempotence gate
// is open for both, but Pending means an attempt has already been recorded.
// Gates must check IsDone(), never mere "non-zero value".
type Flag string

const (
	// never attempted
	Unknown Flag = ""

	// attempted, completion not yet confirmed
	Pending Flag = "pending"

	// confirmed complete; monotonic until an explicit relation removal
	Done Flag = "done"
)

func (f Flag) IsDone() bool {
	return f == Done
}

func AsFlag(s string) (Flag, bool) {
	switch Flag(s) {
	case Unknown, Pending, Done:
		return Flag(s), true
	}
	return Unknown, false
}

// FlagName names a durable flag in the registry.
type FlagName string

const (
	RanUpgrade FlagName = "ran-upgrade"

	UpgradeTruststoreInitialized  FlagName = "upgrade-truststore-initialized"
	GMSTruststoreInitialized      FlagName = "gms-truststore-initialized"
	FrontendTruststoreInitialized FlagName = "frontend-truststore-initialized"
)

// FlagsClearedByRemoval lists the flags a relation removal cascades to.
//
// The upgrade spans all three stores, so removing any of them invalidates
// ran-upgrade. Truststores are derived from the opensearch CA bundle, so
// removing opensearch invalidates every truststore flag too.
func FlagsClearedByRemoval(kind ConnectionKind) []FlagName {
	switch kind {
	case DatabaseConnectionKind, KafkaConnectionKind:
		return []FlagName{RanUpgrade}
	case OpensearchConnectionKind:
		return []FlagName{
			RanUpgrade,
			UpgradeTruststoreInitialized,
			GMSTruststoreInitialized,
			FrontendTruststoreInitialized,
		}
	}
	return nil
}
