// this package provide "mock" implementation of the supervisor for testing.
package mock

import (
	"context"
	"errors"

	"github.com/opst/datahub-operator/pkg/domain"
)

type MockSupervisor struct {
	Impl struct {
		CanConnect func(context.Context, string) error
		SubmitPlan func(context.Context, string, domain.ServicePlan) error
		ActualPlan func(context.Context, string) (domain.ServicePlan, error)
		Health     func(context.Context, string) (domain.Health, error)
		Exec       func(context.Context, string, domain.ServicePlan) error
		Stage      func(context.Context, string, map[string][]byte) error
	}
}

func NewMockSupervisor() *MockSupervisor {
	return &MockSupervisor{}
}

func (m *MockSupervisor) CanConnect(ctx context.Context, name string) error {
	if m.Impl.CanConnect == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.CanConnect(ctx, name)
}

func (m *MockSupervisor) SubmitPlan(ctx context.Context, name string, plan domain.ServicePlan) error {
	if m.Impl.SubmitPlan == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.SubmitPlan(ctx, name, plan)
}

func (m *MockSupervisor) ActualPlan(ctx context.Context, name string) (domain.ServicePlan, error) {
	if m.Impl.ActualPlan == nil {
		return domain.ServicePlan{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.ActualPlan(ctx, name)
}

func (m *MockSupervisor) Health(ctx context.Context, name string) (domain.Health, error) {
	if m.Impl.Health == nil {
		return domain.HealthDown, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Health(ctx, name)
}

func (m *MockSupervisor) Exec(ctx context.Context, name string, plan domain.ServicePlan) error {
	if m.Impl.Exec == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Exec(ctx, name, plan)
}

func (m *MockSupervisor) Stage(ctx context.Context, name string, files map[string][]byte) error {
	if m.Impl.Stage == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Stage(ctx, name, files)
}
