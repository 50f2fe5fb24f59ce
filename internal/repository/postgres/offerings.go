package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

const offeringColumns = `id, title, category, subtype, unit_price_cents, total_capacity,
	remaining_capacity, starts_at, ends_at, sales_start, sales_end, per_account_cap,
	status, created_at, updated_at`

type OfferingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OfferingRepo) With(db DB) *OfferingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OfferingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts an offering with remaining capacity equal to its total.
//
// Returns:
//   - int64: the new offering ID.
//   - error: repository.ErrConditionFailed if a CHECK constraint rejects the row.
func (r *OfferingRepo) Create(ctx context.Context, o domain.Offering) (int64, error) {
	const op = "postgres.OfferingRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO offerings(title, category, subtype, unit_price_cents, total_capacity,
			remaining_capacity, starts_at, ends_at, sales_start, sales_end, per_account_cap,
			status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		 RETURNING id`,
		o.Title, o.Category, o.Subtype, o.UnitPriceCents, o.TotalCapacity,
		o.StartsAt, o.EndsAt, o.SalesStart, o.SalesEnd, o.PerAccountCap,
		domain.OfferingActive, o.CreatedAt,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves an offering by its ID.
//
// Returns:
//   - *domain.Offering: the offering when found.
//   - error: repository.ErrNotFound if the offering does not exist.
func (r *OfferingRepo) Get(ctx context.Context, id int64) (*domain.Offering, error) {
	const op = "postgres.OfferingRepo.Get"

	o, err := scanOffering(r.handle().QueryRow(ctx,
		`SELECT `+offeringColumns+` FROM offerings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *OfferingRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Offering, error) {
	const op = "postgres.OfferingRepo.GetForUpdate"

	o, err := scanOffering(r.handle().QueryRow(ctx,
		`SELECT `+offeringColumns+` FROM offerings WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

// Reserve takes qty units out of the offering in one conditional statement.
// Concurrent reservations queue on the row lock and re-check the guard, so
// remaining capacity can never go below zero.
//
// Returns:
//   - int: remaining capacity after the decrement.
//   - error: repository.ErrConditionFailed if fewer than qty units are left
//     or the offering is not active.
func (r *OfferingRepo) Reserve(ctx context.Context, id int64, qty int) (int, error) {
	const op = "postgres.OfferingRepo.Reserve"

	var remaining int
	err := r.handle().QueryRow(ctx,
		`UPDATE offerings
		 SET remaining_capacity = remaining_capacity - $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'ACTIVE' AND remaining_capacity >= $2
		 RETURNING remaining_capacity`,
		id, qty,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
		}
		return 0, wrapDBErr(op, err)
	}

	return remaining, nil
}

// Release puts qty units back, never above total capacity and never into a
// cancelled offering.
func (r *OfferingRepo) Release(ctx context.Context, id int64, qty int) (int, error) {
	const op = "postgres.OfferingRepo.Release"

	var remaining int
	err := r.handle().QueryRow(ctx,
		`UPDATE offerings
		 SET remaining_capacity = remaining_capacity + $2, updated_at = NOW()
		 WHERE id = $1 AND remaining_capacity + $2 <= total_capacity AND status <> 'CANCELLED'
		 RETURNING remaining_capacity`,
		id, qty,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
		}
		return 0, wrapDBErr(op, err)
	}

	return remaining, nil
}

func (r *OfferingRepo) Restock(ctx context.Context, id int64, qty int) (*domain.Offering, error) {
	const op = "postgres.OfferingRepo.Restock"

	o, err := scanOffering(r.handle().QueryRow(ctx,
		`UPDATE offerings
		 SET total_capacity = total_capacity + $2,
		     remaining_capacity = remaining_capacity + $2,
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'ACTIVE'
		 RETURNING `+offeringColumns,
		id, qty,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
		}
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

func (r *OfferingRepo) MarkCancelled(ctx context.Context, id int64) error {
	const op = "postgres.OfferingRepo.MarkCancelled"

	tag, err := r.handle().Exec(ctx,
		`UPDATE offerings
		 SET status = 'CANCELLED', remaining_capacity = 0, updated_at = NOW()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func scanOffering(row pgx.Row) (*domain.Offering, error) {
	var o domain.Offering
	if err := row.Scan(
		&o.ID,
		&o.Title,
		&o.Category,
		&o.Subtype,
		&o.UnitPriceCents,
		&o.TotalCapacity,
		&o.RemainingCapacity,
		&o.StartsAt,
		&o.EndsAt,
		&o.SalesStart,
		&o.SalesEnd,
		&o.PerAccountCap,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &o, nil
}
