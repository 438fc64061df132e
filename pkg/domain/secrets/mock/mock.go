// this package provide "mock" implementation of the secret store for testing.
package mock

import (
	"context"
	"errors"
	"fmt"

	"github.com/opst/datahub-operator/pkg/domain/secrets"
)

type MockSecrets struct {
	Impl struct {
		Get func(context.Context, string) (secrets.Secret, error)
	}
}

func NewMockSecrets() *MockSecrets {
	return &MockSecrets{}
}

func (m *MockSecrets) Get(ctx context.Context, name string) (secrets.Secret, error) {
	if m.Impl.Get == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Get(ctx, name)
}

// Fixed returns a store backed by a fixed in-memory map.
//
// Names absent from the map yield secrets.ErrNotFound, like the real store.
func Fixed(contents map[string]secrets.Secret) *MockSecrets {
	m := NewMockSecrets()
	m.Impl.Get = func(_ context.Context, name string) (secrets.Secret, error) {
		secret, ok := contents[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", secrets.ErrNotFound, name)
		}
		return secret, nil
	}
	return m
}
