package mock

import (
	"context"
	"testing"

	"github.com/poddle/poddle/pkg/domain"
	depdb "github.com/poddle/poddle/pkg/domain/deployment/db"
)

type MockDeploymentInterface struct {
	t    *testing.T
	Impl struct {
		Create             func(ctx context.Context, d domain.Deployment) error
		Get                func(ctx context.Context, id string) (domain.Deployment, error)
		UpdateSpec         func(ctx context.Context, d domain.Deployment) error
		Delete             func(ctx context.Context, id string) error
		SetDesiredReplicas func(ctx context.Context, id string, replicas int32) error
		Suspend            func(ctx context.Context, id string) error
		Resume             func(ctx context.Context, id string) (int32, error)
		RecordObservation  func(ctx context.Context, id string, obs domain.ReplicaObservation, status domain.DeploymentStatus) (bool, error)
		ListActive         func(ctx context.Context, cursorId string, limit int) ([]domain.Deployment, error)
	}
}

var _ depdb.Interface = &MockDeploymentInterface{}

func New(t *testing.T) *MockDeploymentInterface {
	return &MockDeploymentInterface{t: t}
}

func (m *MockDeploymentInterface) Create(ctx context.Context, d domain.Deployment) error {
	if m.Impl.Create == nil {
		m.t.Fatal("Create is not implemented")
	}
	return m.Impl.Create(ctx, d)
}

func (m *MockDeploymentInterface) Get(ctx context.Context, id string) (domain.Deployment, error) {
	if m.Impl.Get == nil {
		m.t.Fatal("Get is not implemented")
	}
	return m.Impl.Get(ctx, id)
}

func (m *MockDeploymentInterface) UpdateSpec(ctx context.Context, d domain.Deployment) error {
	if m.Impl.UpdateSpec == nil {
		m.t.Fatal("UpdateSpec is not implemented")
	}
	return m.Impl.UpdateSpec(ctx, d)
}

func (m *MockDeploymentInterface) Delete(ctx context.Context, id string) error {
	if m.Impl.Delete == nil {
		m.t.Fatal("Delete is not implemented")
	}
	return m.Impl.Delete(ctx, id)
}

func (m *MockDeploymentInterface) SetDesiredReplicas(ctx context.Context, id string, replicas int32) error {
	if m.Impl.SetDesiredReplicas == nil {
		m.t.Fatal("SetDesiredReplicas is not implemented")
	}
	return m.Impl.SetDesiredReplicas(ctx, id, replicas)
}

func (m *MockDeploymentInterface) Suspend(ctx context.Context, id string) error {
	if m.Impl.Suspend == nil {
		m.t.Fatal("Suspend is not implemented")
	}
	return m.Impl.Suspend(ctx, id)
}

func (m *MockDeploymentInterface) Resume(ctx context.Context, id string) (int32, error) {
	if m.Impl.Resume == nil {
		m.t.Fatal("Resume is not implemented")
	}
	return m.Impl.Resume(ctx, id)
}

func (m *MockDeploymentInterface) RecordObservation(ctx context.Context, id string, obs domain.ReplicaObservation, status domain.DeploymentStatus) (bool, error) {
	if m.Impl.RecordObservation == nil {
		m.t.Fatal("RecordObservation is not implemented")
	}
	return m.Impl.RecordObservation(ctx, id, obs, status)
}

func (m *MockDeploymentInterface) ListActive(ctx context.Context, cursorId string, limit int) ([]domain.Deployment, error) {
	if m.Impl.ListActive == nil {
		m.t.Fatal("ListActive is not implemented")
	}
	return m.Impl.ListActive(ctx, cursorId, limit)
}
