package domain

import (
	"errors"
	"fmt"
)

// recoverable: required configuration or relation is not there yet.
// The operator blocks and waits for an external actor.
var ErrUnreadyState = errors.New("unready state")

// recoverable: a referenced secret exists but its contents are unusable.
// Compilation fails closed; nothing partial is ever emitted.
var ErrImproperSecret = errors.New("improper secret contents")

// recoverable at pass level: a one-time setup action failed. The pass is
// aborted and retried wholesale on the next trigger, since the durable
// completion flag stays open.
var ErrInitializationFailed = errors.New("initialization failed")

// a state deemed impossible was reached. Treated as a defect, not retried.
var ErrBadLogic = errors.New("bad logic")

func NewErrUnreadyState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnreadyState, fmt.Sprintf(format, args...))
}

func NewErrImproperSecret(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrImproperSecret, fmt.Sprintf(format, args...))
}

func NewErrInitializationFailed(workload string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrInitializationFailed, workload, cause)
}

func NewErrBadLogic(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadLogic, fmt.Sprintf(format, args...))
}
