// this package provide "mock" implementation of the registry for testing.
package mock

import (
	"context"
	"errors"

	"github.com/opst/datahub-operator/pkg/domain"
)

type MockRegistry struct {
	Impl struct {
		Get           func(context.Context) (domain.State, error)
		PutDatabase   func(context.Context, domain.DatabaseConnection) error
		PutKafka      func(context.Context, domain.KafkaConnection) error
		PutOpensearch func(context.Context, domain.OpensearchConnection) error
		Remove        func(context.Context, domain.ConnectionKind) error
		SetFlag       func(context.Context, domain.FlagName, domain.Flag) error
	}
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{}
}

func (m *MockRegistry) Get(ctx context.Context) (domain.State, error) {
	if m.Impl.Get == nil {
		return domain.State{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Get(ctx)
}

func (m *MockRegistry) PutDatabase(ctx context.Context, conn domain.DatabaseConnection) error {
	if m.Impl.PutDatabase == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.PutDatabase(ctx, conn)
}

func (m *MockRegistry) PutKafka(ctx context.Context, conn domain.KafkaConnection) error {
	if m.Impl.PutKafka == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.PutKafka(ctx, conn)
}

func (m *MockRegistry) PutOpensearch(ctx context.Context, conn domain.OpensearchConnection) error {
	if m.Impl.PutOpensearch == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.PutOpensearch(ctx, conn)
}

func (m *MockRegistry) Remove(ctx context.Context, kind domain.ConnectionKind) error {
	if m.Impl.Remove == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Remove(ctx, kind)
}

func (m *MockRegistry) SetFlag(ctx context.Context, name domain.FlagName, flag domain.Flag) error {
	if m.Impl.SetFlag == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.SetFlag(ctx, name, flag)
}
