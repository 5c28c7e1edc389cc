package mock

import (
	"context"
	"testing"

	"github.com/poddle/poddle/pkg/secrets"
)

type MockStore struct {
	t    *testing.T
	Impl struct {
		Write  func(ctx context.Context, namespace string, deploymentId string, data map[string]string) error
		Read   func(ctx context.Context, namespace string, deploymentId string) (map[string]string, error)
		Delete func(ctx context.Context, namespace string, deploymentId string) error
	}
}

var _ secrets.Store = &MockStore{}

func New(t *testing.T) *MockStore {
	return &MockStore{t: t}
}

func (m *MockStore) Write(ctx context.Context, namespace string, deploymentId string, data map[string]string) error {
	if m.Impl.Write == nil {
		m.t.Fatal("Write is not implemented")
	}
	return m.Impl.Write(ctx, namespace, deploymentId, data)
}

func (m *MockStore) Read(ctx context.Context, namespace string, deploymentId string) (map[string]string, error) {
	if m.Impl.Read == nil {
		m.t.Fatal("Read is not implemented")
	}
	return m.Impl.Read(ctx, namespace, deploymentId)
}

func (m *MockStore) Delete(ctx context.Context, namespace string, deploymentId string) error {
	if m.Impl.Delete == nil {
		m.t.Fatal("Delete is not implemented")
	}
	return m.Impl.Delete(ctx, namespace, deploymentId)
}
