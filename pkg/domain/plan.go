package domain

import (
	"fmt"

	"github.com/opst/datahub-operator/pkg/utils/cmp"
)

// Healthcheck declares the HTTP readiness endpoint of a service.
type Healthcheck struct {
	Path string
	Port int32
}

func (h *Healthcheck) Equal(o *Healthcheck) bool {
	if h == nil || o == nil {
		return h == nil && o == nil
	}
	return *h == *o
}

// ServicePlan is the desired (or actual) supervised configuration of one
// workload.
//
// It is a deterministic function of State + config: same inputs, same plan.
// When Enabled is false, Environment is nil.
type ServicePlan struct {
	Enabled     bool
	Command     string
	Environment map[string]string
	Healthcheck *Healthcheck
}

func (p ServicePlan) Equal(o ServicePlan) bool {
	return p.Enabled == o.Enabled &&
		p.Command == o.Command &&
		cmp.MapEq(p.Environment, o.Environment) &&
		p.Healthcheck.Equal(o.Healthcheck)
}

func (p ServicePlan) String() string {
	return fmt.Sprintf(
		"ServicePlan{Enabled: %v, Command: %q, env: %d vars}",
		p.Enabled, p.Command, len(p.Environment),
	)
}

// PlanSet maps workload name to its desired plan for one pass.
type PlanSet map[string]ServicePlan

func (ps PlanSet) Equal(o PlanSet) bool {
	return cmp.MapEqWith(ps, o, ServicePlan.Equal)
}

// StageDir is where staged support files (scripts, truststore seeds) are
// made visible inside every workload container.
const StageDir = "/opt/datahub/staged"

// Health is the supervisor-reported health of a workload.
type Health string

const (
	HealthUp   Health = "UP"
	HealthDown Health = "DOWN"
)
