package db

import (
	"context"

	"github.com/poddle/poddle/pkg/domain"
)

// Interface is the billing ledger: immutable transactions and one
// running balance per user.
type Interface interface {
	// Charge inserts t and applies its amount to the owner's balance in
	// one transaction, creating the balance row when absent. A charge
	// for an already-charged (deployment, window start) pair rolls back
	// and returns ErrDuplicateAccrualWindow.
	Charge(ctx context.Context, userId string, t domain.Transaction) error

	Balance(ctx context.Context, userId string) (domain.Balance, error)

	// NegativeBalanceUsers returns the ids of users whose balance has
	// fallen below zero.
	NegativeBalanceUsers(ctx context.Context) ([]string, error)
}
