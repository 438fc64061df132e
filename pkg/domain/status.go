package domain

import "fmt"

// StatusKind is the coarse, externally visible condition of the operator.
type StatusKind string

const (
	// missing configuration, relation or malformed secret. waits for an
	// external actor.
	StatusBlocked StatusKind = "blocked"

	// waiting for something expected to resolve on its own
	// (supervisor connectivity, workload startup).
	StatusWaiting StatusKind = "waiting"

	// a plan has been submitted and the supervisor is replanning,
	// or a health check reports DOWN.
	StatusMaintenance StatusKind = "maintenance"

	// every enabled workload is healthy and actual == desired.
	StatusActive StatusKind = "active"
)

// Status is the single status value exposed to the outside; no per-workload
// mixed status is ever reported.
type Status struct {
	Kind   StatusKind
	Reason string
}

func (s Status) String() string {
	if s.Reason == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s (%s)", s.Kind, s.Reason)
}

func Blocked(reason string) Status {
	return Status{Kind: StatusBlocked, Reason: reason}
}

func Waiting(reason string) Status {
	return Status{Kind: StatusWaiting, Reason: reason}
}

func Maintenance(reason string) Status {
	return Status{Kind: StatusMaintenance, Reason: reason}
}

func Active() Status {
	return Status{Kind: StatusActive}
}
