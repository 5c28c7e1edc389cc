// Package accrual charges running deployments for the last completed
// wall-clock hour and suspends the workloads of debtors.
package accrual

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/poddle/poddle/cmd/loops/loop/recurring"
	"github.com/poddle/poddle/pkg/conn/amqp"
	"github.com/poddle/poddle/pkg/domain"
	bildb "github.com/poddle/poddle/pkg/domain/billing/db"
	depdb "github.com/poddle/poddle/pkg/domain/deployment/db"
)

// Ledger carries nothing between passes. The charged window is derived
// from the clock and the (deployment, window start) uniqueness makes
// replays of the same hour no-ops.
type Ledger struct{}

func (Ledger) Equal(Ledger) bool { return true }

func Seed() Ledger {
	return Ledger{}
}

// Task runs one accrual pass: every non-suspended deployment is charged
// for the last completed hour, then every deployment of a user whose
// balance went negative is sent a suspend command.
//
// A deployment already charged for the window is skipped silently, so
// the pass can run at any cadence and survive restarts mid-hour.
func Task(
	logger *log.Logger,
	deployments depdb.Interface,
	billing bildb.Interface,
	sender amqp.Sender,
	rate domain.BillingRate,
	pageSize int,
) recurring.Task[Ledger] {
	return func(ctx context.Context, l Ledger) (Ledger, bool, error) {
		windowStart, windowEnd := domain.AccrualWindow(time.Now().Add(-time.Hour))

		byUser := map[string][]string{}

		cursor := ""
		for {
			page, err := deployments.ListActive(ctx, cursor, pageSize)
			if err != nil {
				return l, false, err
			}
			if len(page) == 0 {
				break
			}
			for _, depl := range page {
				byUser[depl.UserId] = append(byUser[depl.UserId], depl.Id)
				if err := chargeOne(ctx, billing, rate, depl, windowStart, windowEnd); err != nil {
					// leave the window open; the next pass replays it.
					logger.Printf("charging deployment %s for window %s: %v",
						depl.Id, windowStart.Format(time.RFC3339), err)
				}
			}
			cursor = page[len(page)-1].Id
		}

		debtors, err := billing.NegativeBalanceUsers(ctx)
		if err != nil {
			return l, false, err
		}
		for _, userId := range debtors {
			for _, deploymentId := range byUser[userId] {
				err := sender.SendCommand(ctx, domain.CommandEnvelope{
					Type:         domain.CommandSuspend,
					DeploymentId: deploymentId,
				})
				if err != nil {
					logger.Printf("requesting suspension of deployment %s (user %s): %v",
						deploymentId, userId, err)
				}
			}
		}

		return l, false, nil
	}
}

func chargeOne(
	ctx context.Context,
	billing bildb.Interface,
	rate domain.BillingRate,
	depl domain.Deployment,
	windowStart, windowEnd time.Time,
) error {
	if !depl.CreatedAt.Before(windowEnd) {
		// born after the window closed; nothing to charge yet.
		return nil
	}

	from := windowStart
	if depl.CreatedAt.After(from) {
		from = depl.CreatedAt
	}

	cost := rate.Cost(depl.Resources, from, windowEnd)
	if cost == 0 {
		return nil
	}

	err := billing.Charge(ctx, depl.UserId, domain.Transaction{
		Id:           uuid.NewString(),
		DeploymentId: depl.Id,
		Amount:       -cost,
		Kind:         domain.TransactionKindUsageCharge,
		Detail: fmt.Sprintf("usage of %s for [%s, %s)",
			depl.Name, windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339)),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	})
	if errors.Is(err, domain.ErrDuplicateAccrualWindow) {
		return nil
	}
	return err
}
