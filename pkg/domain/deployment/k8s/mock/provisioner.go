package mock

import (
	"context"
	"testing"

	"github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/domain/deployment/k8s"
)

type MockProvisioner struct {
	t    *testing.T
	Impl struct {
		Apply     func(ctx context.Context, depl domain.Deployment, secretValues map[string]string) error
		Remove    func(ctx context.Context, depl domain.Deployment) error
		Scale     func(ctx context.Context, depl domain.Deployment, replicas int32) error
		Observe     func(ctx context.Context, depl domain.Deployment) (domain.ReplicaObservation, error)
		ObservePods func(ctx context.Context, depl domain.Deployment) ([]domain.PodObservation, error)
		Preflight   func(ctx context.Context) error
	}
}

var _ k8s.Interface = &MockProvisioner{}

func New(t *testing.T) *MockProvisioner {
	return &MockProvisioner{t: t}
}

func (m *MockProvisioner) Apply(ctx context.Context, depl domain.Deployment, secretValues map[string]string) error {
	if m.Impl.Apply == nil {
		m.t.Fatal("Apply is not implemented")
	}
	return m.Impl.Apply(ctx, depl, secretValues)
}

func (m *MockProvisioner) Remove(ctx context.Context, depl domain.Deployment) error {
	if m.Impl.Remove == nil {
		m.t.Fatal("Remove is not implemented")
	}
	return m.Impl.Remove(ctx, depl)
}

func (m *MockProvisioner) Scale(ctx context.Context, depl domain.Deployment, replicas int32) error {
	if m.Impl.Scale == nil {
		m.t.Fatal("Scale is not implemented")
	}
	return m.Impl.Scale(ctx, depl, replicas)
}

func (m *MockProvisioner) Observe(ctx context.Context, depl domain.Deployment) (domain.ReplicaObservation, error) {
	if m.Impl.Observe == nil {
		m.t.Fatal("Observe is not implemented")
	}
	return m.Impl.Observe(ctx, depl)
}

func (m *MockProvisioner) ObservePods(ctx context.Context, depl domain.Deployment) ([]domain.PodObservation, error) {
	if m.Impl.ObservePods == nil {
		m.t.Fatal("ObservePods is not implemented")
	}
	return m.Impl.ObservePods(ctx, depl)
}

func (m *MockProvisioner) Preflight(ctx context.Context) error {
	if m.Impl.Preflight == nil {
		m.t.Fatal("Preflight is not implemented")
	}
	return m.Impl.Preflight(ctx)
}
