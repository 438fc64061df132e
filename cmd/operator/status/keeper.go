// Package status keeps the single externally visible operator status.
//
// Reconcile and audit passes write it, the web surface reads it. It is the
// only value shared between the loops and the HTTP server, so it carries
// its own lock instead of leaning on the loops' single-threadedness.
package status

import (
	"sync"

	"github.com/opst/datahub-operator/pkg/domain"
)

type Keeper struct {
	mu      sync.Mutex
	current domain.Status
}

func NewKeeper() *Keeper {
	return &Keeper{current: domain.Waiting("starting up")}
}

func (k *Keeper) Get() domain.Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// Set replaces the status. Returns true when the value actually changed.
func (k *Keeper) Set(s domain.Status) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current == s {
		return false
	}
	k.current = s
	return true
}
