// Package operator carries the wire types of the operator's own surface.
package operator

import "github.com/opst/datahub-operator/pkg/domain"

// Status is the single coarse status served over HTTP.
type Status struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func ComposeStatus(s domain.Status) Status {
	return Status{
		Status: string(s.Kind),
		Reason: s.Reason,
	}
}
