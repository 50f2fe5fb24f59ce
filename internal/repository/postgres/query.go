package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

type QueryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (s *Store) Query() *QueryRepo { return &QueryRepo{pool: s.pool} }

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// ListOfferings lists offerings ordered by start time.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - limit, offset: pagination parameters.
//
// Returns:
//   - []domain.Offering: list of offerings, possibly empty.
//   - error: any database error.
func (r *QueryRepo) ListOfferings(ctx context.Context, limit, offset int) ([]domain.Offering, error) {
	const op = "postgres.QueryRepo.ListOfferings"

	rows, err := r.handle().Query(ctx,
		`SELECT `+offeringColumns+`
		 FROM offerings
		 ORDER BY starts_at, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Offering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// OfferingCounts counts purchases by status for an offering, next to its
// capacity figures.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - offeringID: unique identifier of the offering.
//
// Returns:
//   - *domain.OfferingCounts: the counts when the offering exists.
//   - error: repository.ErrNotFound if the offering is not found.
func (r *QueryRepo) OfferingCounts(ctx context.Context, offeringID int64) (*domain.OfferingCounts, error) {
	const op = "postgres.QueryRepo.OfferingCounts"

	var c domain.OfferingCounts
	err := r.handle().QueryRow(ctx,
		`SELECT
			o.total_capacity,
			o.remaining_capacity,
			COALESCE(SUM(CASE WHEN p.status = 'ACTIVE' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN p.status = 'USED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN p.status = 'CANCELLED' THEN 1 ELSE 0 END), 0)
		 FROM offerings o
		 LEFT JOIN purchases p ON p.offering_id = o.id
		 WHERE o.id = $1
		 GROUP BY o.id`,
		offeringID,
	).Scan(&c.Total, &c.Remaining, &c.Active, &c.Used, &c.Cancelled)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

// GetTransactionWithPurchases retrieves a transaction with its purchases.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - ref: reference of the transaction.
//
// Returns:
//   - *domain.TransactionWithPurchases: the transaction and its purchases.
//   - error: repository.ErrNotFound if the transaction is not found.
func (r *QueryRepo) GetTransactionWithPurchases(
	ctx context.Context,
	ref uuid.UUID,
) (*domain.TransactionWithPurchases, error) {
	const op = "postgres.QueryRepo.GetTransactionWithPurchases"

	t, err := scanTransaction(r.handle().QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE ref = $1`,
		ref,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	ps, err := (&PurchaseRepo{pool: r.pool, db: r.db}).ListByTransaction(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.TransactionWithPurchases{Transaction: *t, Purchases: ps}, nil
}

var _ repository.Queries = (*QueryRepo)(nil)
var _ repository.Store = (*Store)(nil)
