package k8s

import (
	"context"
	"fmt"

	"github.com/opst/datahub-operator/pkg/domain/secrets"
	xe "github.com/opst/datahub-operator/pkg/errors"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
)

// subset of k8s.Clientset
type K8sClient interface {
	GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error)
}

type k8sClient struct {
	client *k8s.Clientset
}

var _ K8sClient = &k8sClient{}

func (k *k8sClient) GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error) {
	return k.client.CoreV1().Secrets(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func WrapK8sClient(c *k8s.Clientset) K8sClient {
	return &k8sClient{client: c}
}

type k8sSecrets struct {
	client    K8sClient
	namespace string
}

var _ secrets.Interface = &k8sSecrets{}

func New(client K8sClient, namespace string) secrets.Interface {
	return &k8sSecrets{client: client, namespace: namespace}
}

func (s *k8sSecrets) Get(ctx context.Context, name string) (secrets.Secret, error) {
	secret, err := s.client.GetSecret(ctx, s.namespace, name)
	if kubeerr.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", secrets.ErrNotFound, name)
	} else if err != nil {
		return nil, xe.Wrap(err)
	}

	content := secrets.Secret{}
	for key, value := range secret.Data {
		content[key] = string(value)
	}
	for key, value := range secret.StringData {
		content[key] = value
	}
	return content, nil
}
