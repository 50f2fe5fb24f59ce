package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

const purchaseColumns = `id, transaction_ref, offering_id, account_id, credential, proof,
	COALESCE(seat_label, ''), unit_price_cents, status, used_at, COALESCE(used_by, ''),
	created_at, updated_at`

type PurchaseRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PurchaseRepo) With(db DB) *PurchaseRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PurchaseRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CreateBatch inserts all purchases in one round trip. A live purchase
// already holding one of the seats makes the whole batch fail with
// repository.ErrConflict.
func (r *PurchaseRepo) CreateBatch(ctx context.Context, ps []domain.Purchase) error {
	const op = "postgres.PurchaseRepo.CreateBatch"

	batch := &pgx.Batch{}
	for _, p := range ps {
		batch.Queue(
			`INSERT INTO purchases(id, transaction_ref, offering_id, account_id, credential,
				proof, seat_label, unit_price_cents, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $10)`,
			p.ID, p.TransactionRef, p.OfferingID, p.AccountID, p.Credential,
			p.Proof, p.Seat, p.UnitPriceCents, p.Status, p.CreatedAt,
		)
	}
	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *PurchaseRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.Get"

	p, err := scanPurchase(r.handle().QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

func (r *PurchaseRepo) GetByCredentialForUpdate(ctx context.Context, credential string) (*domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.GetByCredentialForUpdate"

	p, err := scanPurchase(r.handle().QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE credential = $1 FOR UPDATE`,
		credential,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

func (r *PurchaseRepo) ListByTransaction(ctx context.Context, ref uuid.UUID) ([]domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.ListByTransaction"

	return r.list(ctx, op,
		`SELECT `+purchaseColumns+` FROM purchases WHERE transaction_ref = $1 ORDER BY created_at, id`,
		ref,
	)
}

func (r *PurchaseRepo) ListByTransactionForUpdate(ctx context.Context, ref uuid.UUID) ([]domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.ListByTransactionForUpdate"

	return r.list(ctx, op,
		`SELECT `+purchaseColumns+` FROM purchases WHERE transaction_ref = $1 ORDER BY created_at, id FOR UPDATE`,
		ref,
	)
}

func (r *PurchaseRepo) ListByOffering(
	ctx context.Context,
	offeringID int64,
	status domain.PurchaseStatus,
) ([]domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.ListByOffering"

	return r.list(ctx, op,
		`SELECT `+purchaseColumns+` FROM purchases WHERE offering_id = $1 AND status = $2 ORDER BY id`,
		offeringID, status,
	)
}

func (r *PurchaseRepo) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.ListByAccount"

	return r.list(ctx, op,
		`SELECT `+purchaseColumns+` FROM purchases
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
}

func (r *PurchaseRepo) CountHeld(ctx context.Context, accountID, offeringID int64) (int, error) {
	const op = "postgres.PurchaseRepo.CountHeld"

	var n int
	if err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*) FROM purchases
		 WHERE account_id = $1 AND offering_id = $2 AND status IN ('ACTIVE', 'USED')`,
		accountID, offeringID,
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *PurchaseRepo) SeatHeld(ctx context.Context, offeringID int64, seat string) (bool, error) {
	const op = "postgres.PurchaseRepo.SeatHeld"

	var held bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE offering_id = $1 AND seat_label = $2 AND status IN ('PENDING', 'ACTIVE', 'USED')
		 )`,
		offeringID, seat,
	).Scan(&held); err != nil {
		return false, wrapDBErr(op, err)
	}

	return held, nil
}

func (r *PurchaseRepo) Transition(
	ctx context.Context,
	ids []uuid.UUID,
	from, to domain.PurchaseStatus,
) error {
	const op = "postgres.PurchaseRepo.Transition"

	if err := domain.CheckPurchaseTransition(from, to); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	// One statement, so a partial match updates nothing even outside a transaction.
	tag, err := r.handle().Exec(ctx,
		`WITH target AS (
		   SELECT id FROM purchases WHERE id = ANY($1) AND status = $2 FOR UPDATE
		 )
		 UPDATE purchases SET status = $3, updated_at = NOW()
		 WHERE id IN (SELECT id FROM target)
		   AND (SELECT COUNT(*) FROM target) = $4`,
		ids, from, to, len(ids),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if int(tag.RowsAffected()) != len(ids) {
		return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	return nil
}

func (r *PurchaseRepo) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	const op = "postgres.PurchaseRepo.MarkUsed"

	tag, err := r.handle().Exec(ctx,
		`UPDATE purchases
		 SET status = 'USED', used_at = $2, used_by = NULLIF($3, ''), updated_at = NOW()
		 WHERE id = $1 AND status = 'ACTIVE'`,
		id, at, by,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	return nil
}

func (r *PurchaseRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Purchase, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	var p domain.Purchase
	if err := row.Scan(
		&p.ID,
		&p.TransactionRef,
		&p.OfferingID,
		&p.AccountID,
		&p.Credential,
		&p.Proof,
		&p.Seat,
		&p.UnitPriceCents,
		&p.Status,
		&p.UsedAt,
		&p.UsedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &p, nil
}
