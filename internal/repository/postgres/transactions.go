package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

const transactionColumns = `ref, account_id, amount_cents, type, status, parent_ref, created_at, updated_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TransactionRepo) With(db DB) *TransactionRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TransactionRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *TransactionRepo) Create(ctx context.Context, t domain.Transaction) error {
	const op = "postgres.TransactionRepo.Create"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO transactions(ref, account_id, amount_cents, type, status, parent_ref, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		t.Ref, t.AccountID, t.AmountCents, t.Type, t.Status, t.ParentRef, t.CreatedAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *TransactionRepo) Get(ctx context.Context, ref uuid.UUID) (*domain.Transaction, error) {
	const op = "postgres.TransactionRepo.Get"

	t, err := scanTransaction(r.handle().QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE ref = $1`,
		ref,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

func (r *TransactionRepo) GetForUpdate(ctx context.Context, ref uuid.UUID) (*domain.Transaction, error) {
	const op = "postgres.TransactionRepo.GetForUpdate"

	t, err := scanTransaction(r.handle().QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE ref = $1 FOR UPDATE`,
		ref,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

func (r *TransactionRepo) SetStatus(
	ctx context.Context,
	ref uuid.UUID,
	from, to domain.TransactionStatus,
) error {
	const op = "postgres.TransactionRepo.SetStatus"

	if err := domain.CheckTransactionTransition(from, to); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	tag, err := r.handle().Exec(ctx,
		`UPDATE transactions SET status = $3, updated_at = NOW()
		 WHERE ref = $1 AND status = $2`,
		ref, from, to,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	return nil
}

func (r *TransactionRepo) CancelIfSettled(ctx context.Context, ref uuid.UUID) (bool, error) {
	const op = "postgres.TransactionRepo.CancelIfSettled"

	tag, err := r.handle().Exec(ctx,
		`UPDATE transactions t SET status = 'CANCELLED', updated_at = NOW()
		 WHERE t.ref = $1
		   AND t.status = 'SUCCESS'
		   AND NOT EXISTS (
		 	SELECT 1 FROM purchases p
		 	WHERE p.transaction_ref = t.ref AND p.status IN ('PENDING', 'ACTIVE', 'USED')
		   )`,
		ref,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(
		&t.Ref,
		&t.AccountID,
		&t.AmountCents,
		&t.Type,
		&t.Status,
		&t.ParentRef,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &t, nil
}
