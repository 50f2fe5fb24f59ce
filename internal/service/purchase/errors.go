package purchase

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

// expectedErrs are business outcomes. Spans record them as outcomes, not failures.
var expectedErrs = []error{
	domain.ErrNotFound,
	domain.ErrSoldOut,
	domain.ErrCapExceeded,
	domain.ErrSeatTaken,
	domain.ErrSeatRequired,
	domain.ErrSeatNotAllowed,
	domain.ErrExpired,
	domain.ErrSalesNotOpen,
	domain.ErrSalesClosed,
	domain.ErrOfferingCancelled,
	domain.ErrInsufficientFunds,
	domain.ErrRateLimited,
	domain.ErrAccountBlocked,
	domain.ErrRefundDeadlinePassed,
	domain.ErrAlreadyUsed,
	domain.ErrAlreadyCancelled,
	domain.ErrInvalidTransition,
	domain.ErrInvalidQuantity,
	domain.ErrInvalidRefundPercent,
	domain.ErrInvalidAmount,
}

// storageErr wraps an unexpected repository error, marking serialization
// failures and deadlocks as domain.ErrRetryable.
func storageErr(op string, err error) error {
	if errors.Is(err, repository.ErrRetryable) {
		return fmt.Errorf("%s:%w: %w", op, domain.ErrRetryable, err)
	}
	return fmt.Errorf("%s:%w", op, err)
}
