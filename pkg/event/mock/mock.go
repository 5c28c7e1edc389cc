package mock

import (
	"context"
	"testing"
	"time"

	"github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/event"
)

type MockPublisher struct {
	t    *testing.T
	Impl struct {
		Publish func(ctx context.Context, channel string, ev event.Event) error
	}

	// Published records every call, in order, for assertion.
	Published []PublishedEvent
}

type PublishedEvent struct {
	Channel string
	Event   event.Event
}

var _ event.Publisher = &MockPublisher{}

func NewPublisher(t *testing.T) *MockPublisher {
	return &MockPublisher{t: t}
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, ev event.Event) error {
	m.Published = append(m.Published, PublishedEvent{Channel: channel, Event: ev})
	if m.Impl.Publish == nil {
		return nil
	}
	return m.Impl.Publish(ctx, channel, ev)
}

type MockCache struct {
	t    *testing.T
	Impl struct {
		SetStatus  func(ctx context.Context, deploymentId string, status domain.DeploymentStatus) error
		PushMetric func(ctx context.Context, key string, snapshot domain.MetricSnapshot, retention int64, ttl time.Duration) error
	}
}

var _ event.Cache = &MockCache{}

func NewCache(t *testing.T) *MockCache {
	return &MockCache{t: t}
}

func (m *MockCache) SetStatus(ctx context.Context, deploymentId string, status domain.DeploymentStatus) error {
	if m.Impl.SetStatus == nil {
		m.t.Fatal("SetStatus is not implemented")
	}
	return m.Impl.SetStatus(ctx, deploymentId, status)
}

func (m *MockCache) PushMetric(ctx context.Context, key string, snapshot domain.MetricSnapshot, retention int64, ttl time.Duration) error {
	if m.Impl.PushMetric == nil {
		m.t.Fatal("PushMetric is not implemented")
	}
	return m.Impl.PushMetric(ctx, key, snapshot, retention, ttl)
}
