package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	kpool "github.com/poddle/poddle/pkg/conn/db/postgres/pool"
	"github.com/poddle/poddle/pkg/domain"
	bildb "github.com/poddle/poddle/pkg/domain/billing/db"
	xe "github.com/poddle/poddle/pkg/errors"
)

type pgBilling struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) bildb.Interface {
	return &pgBilling{pool: pool}
}

func numeric(amount float64) (pgtype.Numeric, error) {
	n := pgtype.Numeric{}
	if err := n.Set(amount); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func (b *pgBilling) Charge(ctx context.Context, userId string, t domain.Transaction) error {
	amount, err := numeric(t.Amount)
	if err != nil {
		return xe.Wrap(err)
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(
		ctx,
		`
		insert into "balance" ("id", "user_id", "amount", "updated_at")
		values ($1, $2, 0, now())
		on conflict ("user_id") do nothing
		`,
		uuid.NewString(), userId,
	)
	if err != nil {
		return xe.Wrap(err)
	}

	var balanceId string
	err = tx.QueryRow(
		ctx,
		`select "id" from "balance" where "user_id" = $1 for update`,
		userId,
	).Scan(&balanceId)
	if err != nil {
		return xe.Wrap(err)
	}

	_, err = tx.Exec(
		ctx,
		`
		insert into "transaction" (
			"id", "balance_id", "deployment_id",
			"amount", "kind", "detail",
			"window_start", "window_end", "created_at"
		) values ($1, $2, $3, $4, $5, $6, $7, $8, now())
		`,
		t.Id, balanceId, t.DeploymentId,
		amount, t.Kind, t.Detail,
		t.WindowStart, t.WindowEnd,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrDuplicateAccrualWindow
		}
		return xe.Wrap(err)
	}

	_, err = tx.Exec(
		ctx,
		`update "balance" set "amount" = "amount" + $2, "updated_at" = now() where "id" = $1`,
		balanceId, amount,
	)
	if err != nil {
		return xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (b *pgBilling) Balance(ctx context.Context, userId string) (domain.Balance, error) {
	row := b.pool.QueryRow(
		ctx,
		`
		select "id", "user_id", "amount", "updated_at"
		from "balance" where "user_id" = $1
		`,
		userId,
	)

	balance := domain.Balance{}
	amount := pgtype.Numeric{}
	err := row.Scan(&balance.Id, &balance.UserId, &amount, &balance.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// no charges yet: report an empty balance.
		return domain.Balance{UserId: userId}, nil
	}
	if err != nil {
		return domain.Balance{}, xe.Wrap(err)
	}
	if err := amount.AssignTo(&balance.Amount); err != nil {
		return domain.Balance{}, xe.Wrap(err)
	}
	return balance, nil
}

func (b *pgBilling) NegativeBalanceUsers(ctx context.Context) ([]string, error) {
	rows, err := b.pool.Query(
		ctx,
		`select "user_id" from "balance" where "amount" < 0 order by "user_id"`,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var userId string
		if err := rows.Scan(&userId); err != nil {
			return nil, xe.Wrap(err)
		}
		users = append(users, userId)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return users, nil
}
