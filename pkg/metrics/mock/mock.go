package mock

import (
	"context"
	"testing"
	"time"

	"github.com/poddle/poddle/pkg/metrics"
)

type MockSource struct {
	t    *testing.T
	Impl struct {
		Scrape func(ctx context.Context, at time.Time) (metrics.Scrape, error)
	}
}

var _ metrics.Source = &MockSource{}

func New(t *testing.T) *MockSource {
	return &MockSource{t: t}
}

func (m *MockSource) Scrape(ctx context.Context, at time.Time) (metrics.Scrape, error) {
	if m.Impl.Scrape == nil {
		m.t.Fatal("Scrape is not implemented")
	}
	return m.Impl.Scrape(ctx, at)
}
