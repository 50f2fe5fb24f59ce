package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

// LedgerRepo keeps account balances in the same database as the tickets, so
// debits and credits commit or roll back with the purchase that caused them.
type LedgerRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LedgerRepo) With(db DB) *LedgerRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LedgerRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *LedgerRepo) CreateAccount(ctx context.Context, balanceCents int64, blocked bool) (int64, error) {
	const op = "postgres.LedgerRepo.CreateAccount"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO accounts(balance_cents, blocked) VALUES ($1, $2) RETURNING id`,
		balanceCents, blocked,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *LedgerRepo) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	const op = "postgres.LedgerRepo.GetAccount"

	return r.get(ctx, op, `SELECT id, balance_cents, blocked, created_at FROM accounts WHERE id = $1`, id)
}

func (r *LedgerRepo) GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	const op = "postgres.LedgerRepo.GetAccountForUpdate"

	return r.get(ctx, op, `SELECT id, balance_cents, blocked, created_at FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *LedgerRepo) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	const op = "postgres.LedgerRepo.SetBlocked"

	tag, err := r.handle().Exec(ctx, `UPDATE accounts SET blocked = $2 WHERE id = $1`, id, blocked)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Debit subtracts amountCents from the balance when the balance covers it.
//
// Returns:
//   - error: repository.ErrConditionFailed if the balance is too low.
//   - error: repository.ErrNotFound if the account does not exist.
func (r *LedgerRepo) Debit(ctx context.Context, id int64, amountCents int64) error {
	const op = "postgres.LedgerRepo.Debit"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE accounts SET balance_cents = balance_cents - $2
		 WHERE id = $1 AND balance_cents >= $2`,
		id, amountCents,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	if err := r.exists(ctx, id); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
}

func (r *LedgerRepo) Credit(ctx context.Context, id int64, amountCents int64) error {
	const op = "postgres.LedgerRepo.Credit"

	tag, err := r.handle().Exec(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + $2 WHERE id = $1`,
		id, amountCents,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *LedgerRepo) get(ctx context.Context, op, sql string, id int64) (*domain.Account, error) {
	var a domain.Account
	if err := r.handle().QueryRow(ctx, sql, id).Scan(
		&a.ID,
		&a.BalanceCents,
		&a.Blocked,
		&a.CreatedAt,
	); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &a, nil
}

func (r *LedgerRepo) exists(ctx context.Context, id int64) error {
	var ok bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`,
		id,
	).Scan(&ok); err != nil {
		return translateDBErr(err)
	}

	if !ok {
		return repository.ErrNotFound
	}

	return nil
}
