package mock

import (
	"context"
	"errors"

	k8s "github.com/opst/datahub-operator/pkg/domain/supervisor/k8s"
	kubeapps "k8s.io/api/apps/v1"
	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	applycore "k8s.io/client-go/applyconfigurations/core/v1"
)

type MockClient struct {
	Impl struct {
		GetDeployment    func(ctx context.Context, namespace string, deplname string) (*kubeapps.Deployment, error)
		CreateDeployment func(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
		UpdateDeployment func(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
		DeleteDeployment func(ctx context.Context, namespace string, deplname string) error

		GetJob    func(ctx context.Context, namespace string, name string) (*kubebatch.Job, error)
		CreateJob func(ctx context.Context, namespace string, job *kubebatch.Job) (*kubebatch.Job, error)
		DeleteJob func(ctx context.Context, namespace string, name string) error

		FindPods func(ctx context.Context, namespace string, ls k8s.LabelSelector) ([]kubecore.Pod, error)

		UpsertSecret func(ctx context.Context, namespace string, spec *applycore.SecretApplyConfiguration) (*kubecore.Secret, error)
		GetSecret    func(ctx context.Context, namespace string, name string) (*kubecore.Secret, error)
	}
	Called struct {
		GetDeployment    uint64
		CreateDeployment uint64
		UpdateDeployment uint64
		DeleteDeployment uint64

		GetJob    uint64
		CreateJob uint64
		DeleteJob uint64

		FindPods uint64

		UpsertSecret uint64
		GetSecret    uint64
	}
}

// MockClient implements k8s.K8sClient
var _ k8s.K8sClient = &MockClient{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GetDeployment(ctx context.Context, namespace string, deplname string) (*kubeapps.Deployment, error) {
	m.Called.GetDeployment += 1
	if m.Impl.GetDeployment == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetDeployment(ctx, namespace, deplname)
}

func (m *MockClient) CreateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	m.Called.CreateDeployment += 1
	if m.Impl.CreateDeployment == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreateDeployment(ctx, namespace, depl)
}

func (m *MockClient) UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	m.Called.UpdateDeployment += 1
	if m.Impl.UpdateDeployment == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.UpdateDeployment(ctx, namespace, depl)
}

func (m *MockClient) DeleteDeployment(ctx context.Context, namespace string, deplname string) error {
	m.Called.DeleteDeployment += 1
	if m.Impl.DeleteDeployment == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteDeployment(ctx, namespace, deplname)
}

func (m *MockClient) GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error) {
	m.Called.GetJob += 1
	if m.Impl.GetJob == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetJob(ctx, namespace, name)
}

func (m *MockClient) CreateJob(ctx context.Context, namespace string, job *kubebatch.Job) (*kubebatch.Job, error) {
	m.Called.CreateJob += 1
	if m.Impl.CreateJob == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreateJob(ctx, namespace, job)
}

func (m *MockClient) DeleteJob(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteJob += 1
	if m.Impl.DeleteJob == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteJob(ctx, namespace, name)
}

func (m *MockClient) FindPods(ctx context.Context, namespace string, ls k8s.LabelSelector) ([]kubecore.Pod, error) {
	m.Called.FindPods += 1
	if m.Impl.FindPods == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FindPods(ctx, namespace, ls)
}

func (m *MockClient) UpsertSecret(ctx context.Context, namespace string, spec *applycore.SecretApplyConfiguration) (*kubecore.Secret, error) {
	m.Called.UpsertSecret += 1
	if m.Impl.UpsertSecret == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.UpsertSecret(ctx, namespace, spec)
}

func (m *MockClient) GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error) {
	m.Called.GetSecret += 1
	if m.Impl.GetSecret == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetSecret(ctx, namespace, name)
}
