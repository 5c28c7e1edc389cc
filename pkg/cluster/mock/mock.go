package mock

import (
	"context"
	"testing"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/poddle/poddle/pkg/cluster"
)

type MockClient struct {
	t    *testing.T
	Impl struct {
		EnsureNamespace  func(ctx context.Context, name string, labels map[string]string) error
		ApplySecret      func(ctx context.Context, namespace string, secret *kubecore.Secret) error
		DeleteSecret     func(ctx context.Context, namespace string, name string) error
		GetDeployment    func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
		ApplyDeployment  func(ctx context.Context, namespace string, depl *kubeapps.Deployment) error
		ScaleDeployment  func(ctx context.Context, namespace string, name string, replicas int32) error
		DeleteDeployment func(ctx context.Context, namespace string, name string) error
		FindPods         func(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error)
		ApplyService     func(ctx context.Context, namespace string, svc *kubecore.Service) error
		DeleteService    func(ctx context.Context, namespace string, name string) error

		ApplyDynamic            func(ctx context.Context, gvr schema.GroupVersionResource, namespace string, obj *unstructured.Unstructured) error
		GetDynamic              func(ctx context.Context, gvr schema.GroupVersionResource, namespace string, name string) (*unstructured.Unstructured, error)
		GetClusterScopedDynamic func(ctx context.Context, gvr schema.GroupVersionResource, name string) (*unstructured.Unstructured, error)
		DeleteDynamic           func(ctx context.Context, gvr schema.GroupVersionResource, namespace string, name string) error
	}
}

var _ cluster.Client = &MockClient{}

func New(t *testing.T) *MockClient {
	return &MockClient{t: t}
}

func (m *MockClient) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	if m.Impl.EnsureNamespace == nil {
		m.t.Fatal("EnsureNamespace is not implemented")
	}
	return m.Impl.EnsureNamespace(ctx, name, labels)
}

func (m *MockClient) ApplySecret(ctx context.Context, namespace string, secret *kubecore.Secret) error {
	if m.Impl.ApplySecret == nil {
		m.t.Fatal("ApplySecret is not implemented")
	}
	return m.Impl.ApplySecret(ctx, namespace, secret)
}

func (m *MockClient) DeleteSecret(ctx context.Context, namespace string, name string) error {
	if m.Impl.DeleteSecret == nil {
		m.t.Fatal("DeleteSecret is not implemented")
	}
	return m.Impl.DeleteSecret(ctx, namespace, name)
}

func (m *MockClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	if m.Impl.GetDeployment == nil {
		m.t.Fatal("GetDeployment is not implemented")
	}
	return m.Impl.GetDeployment(ctx, namespace, name)
}

func (m *MockClient) ApplyDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) error {
	if m.Impl.ApplyDeployment == nil {
		m.t.Fatal("ApplyDeployment is not implemented")
	}
	return m.Impl.ApplyDeployment(ctx, namespace, depl)
}

func (m *MockClient) ScaleDeployment(ctx context.Context, namespace string, name string, replicas int32) error {
	if m.Impl.ScaleDeployment == nil {
		m.t.Fatal("ScaleDeployment is not implemented")
	}
	return m.Impl.ScaleDeployment(ctx, namespace, name, replicas)
}

func (m *MockClient) DeleteDeployment(ctx context.Context, namespace string, name string) error {
	if m.Impl.DeleteDeployment == nil {
		m.t.Fatal("DeleteDeployment is not implemented")
	}
	return m.Impl.DeleteDeployment(ctx, namespace, name)
}

func (m *MockClient) FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	if m.Impl.FindPods == nil {
		m.t.Fatal("FindPods is not implemented")
	}
	return m.Impl.FindPods(ctx, namespace, labelSelector)
}

func (m *MockClient) ApplyService(ctx context.Context, namespace string, svc *kubecore.Service) error {
	if m.Impl.ApplyService == nil {
		m.t.Fatal("ApplyService is not implemented")
	}
	return m.Impl.ApplyService(ctx, namespace, svc)
}

func (m *MockClient) DeleteService(ctx context.Context, namespace string, name string) error {
	if m.Impl.DeleteService == nil {
		m.t.Fatal("DeleteService is not implemented")
	}
	return m.Impl.DeleteService(ctx, namespace, name)
}

func (m *MockClient) ApplyDynamic(ctx context.Context, gvr schema.GroupVersionResource, namespace string, obj *unstructured.Unstructured) error {
	if m.Impl.ApplyDynamic == nil {
		m.t.Fatal("ApplyDynamic is not implemented")
	}
	return m.Impl.ApplyDynamic(ctx, gvr, namespace, obj)
}

func (m *MockClient) GetDynamic(ctx context.Context, gvr schema.GroupVersionResource, namespace string, name string) (*unstructured.Unstructured, error) {
	if m.Impl.GetDynamic == nil {
		m.t.Fatal("GetDynamic is not implemented")
	}
	return m.Impl.GetDynamic(ctx, gvr, namespace, name)
}

func (m *MockClient) GetClusterScopedDynamic(ctx context.Context, gvr schema.GroupVersionResource, name string) (*unstructured.Unstructured, error) {
	if m.Impl.GetClusterScopedDynamic == nil {
		m.t.Fatal("GetClusterScopedDynamic is not implemented")
	}
	return m.Impl.GetClusterScopedDynamic(ctx, gvr, name)
}

func (m *MockClient) DeleteDynamic(ctx context.Context, gvr schema.GroupVersionResource, namespace string, name string) error {
	if m.Impl.DeleteDynamic == nil {
		m.t.Fatal("DeleteDynamic is not implemented")
	}
	return m.Impl.DeleteDynamic(ctx, gvr, namespace, name)
}
