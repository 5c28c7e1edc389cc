package mock

import (
	"context"
	"testing"

	"github.com/poddle/poddle/pkg/domain"
	bildb "github.com/poddle/poddle/pkg/domain/billing/db"
)

type MockBillingInterface struct {
	t    *testing.T
	Impl struct {
		Charge               func(ctx context.Context, userId string, t domain.Transaction) error
		Balance              func(ctx context.Context, userId string) (domain.Balance, error)
		NegativeBalanceUsers func(ctx context.Context) ([]string, error)
	}
}

var _ bildb.Interface = &MockBillingInterface{}

func New(t *testing.T) *MockBillingInterface {
	return &MockBillingInterface{t: t}
}

func (m *MockBillingInterface) Charge(ctx context.Context, userId string, t domain.Transaction) error {
	if m.Impl.Charge == nil {
		m.t.Fatal("Charge is not implemented")
	}
	return m.Impl.Charge(ctx, userId, t)
}

func (m *MockBillingInterface) Balance(ctx context.Context, userId string) (domain.Balance, error) {
	if m.Impl.Balance == nil {
		m.t.Fatal("Balance is not implemented")
	}
	return m.Impl.Balance(ctx, userId)
}

func (m *MockBillingInterface) NegativeBalanceUsers(ctx context.Context) ([]string, error) {
	if m.Impl.NegativeBalanceUsers == nil {
		m.t.Fatal("NegativeBalanceUsers is not implemented")
	}
	return m.Impl.NegativeBalanceUsers(ctx)
}
