// Package inventory guards offering capacity. Every capacity change is a
// single conditional statement in the store; the checks done here only
// produce precise errors.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

// Reservation is capacity taken out of an offering inside an open
// transaction. Rolling the transaction back returns it.
type Reservation struct {
	Offering  *domain.Offering
	Quantity  int
	Remaining int
}

// Reserve takes qty units of the offering on the transaction's repositories.
//
// Parameters:
//   - ctx: request-scoped context.
//   - tx: repositories bound to the caller's transaction.
//   - offeringID: offering to reserve from.
//   - qty: units to take, at least 1.
//   - now: time used for the sales window checks.
//
// Returns:
//   - *Reservation: the reservation with the offering as read before the decrement.
//   - error: domain.ErrOfferingNotFound, domain.ErrOfferingCancelled, domain.ErrExpired,
//     domain.ErrSalesNotOpen, domain.ErrSalesClosed or domain.ErrSoldOut.
func Reserve(
	ctx context.Context,
	tx repository.Repos,
	offeringID int64,
	qty int,
	now time.Time,
) (*Reservation, error) {
	const op = "inventory.Reserve"

	if qty <= 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrInvalidQuantity)
	}

	o, err := tx.Offerings().Get(ctx, offeringID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.ErrOfferingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := o.CheckSalesWindow(now); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	remaining, err := tx.Offerings().Reserve(ctx, offeringID, qty)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, fmt.Errorf("%s:%w", op, soldOutOrCancelled(ctx, tx, offeringID))
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Reservation{Offering: o, Quantity: qty, Remaining: remaining}, nil
}

// Release returns qty units to the offering. Releasing above total capacity
// is refused and reported as domain.ErrInvalidQuantity.
func Release(ctx context.Context, tx repository.Repos, offeringID int64, qty int) error {
	const op = "inventory.Release"

	if qty <= 0 {
		return fmt.Errorf("%s:%w", op, domain.ErrInvalidQuantity)
	}

	if _, err := tx.Offerings().Release(ctx, offeringID, qty); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			if o, gerr := tx.Offerings().Get(ctx, offeringID); gerr == nil && o.IsCancelled() {
				return fmt.Errorf("%s:%w", op, domain.ErrOfferingCancelled)
			}
			return fmt.Errorf("%s:%w: release above capacity", op, domain.ErrInvalidQuantity)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// soldOutOrCancelled explains a failed decrement. The offering may have been
// cancelled between the pre-check and the decrement.
func soldOutOrCancelled(ctx context.Context, tx repository.Repos, offeringID int64) error {
	o, err := tx.Offerings().Get(ctx, offeringID)
	if err == nil && o.IsCancelled() {
		return domain.ErrOfferingCancelled
	}
	return domain.ErrSoldOut
}
