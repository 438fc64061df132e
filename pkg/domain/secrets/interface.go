package secrets

import (
	"context"
	"errors"
)

// the named secret does not exist (yet).
var ErrNotFound = errors.New("secret not found")

// Secret is a snapshot of one secret's content, values decoded to strings.
type Secret map[string]string

// Interface reads operator secrets.
//
// Lookups are fresh on every call: secret contents may rotate at any time
// and must never be cached across reconciliation passes.
type Interface interface {
	// Get returns the content of the named secret.
	//
	// When the secret does not exist, the error wraps ErrNotFound.
	Get(ctx context.Context, name string) (Secret, error)
}
