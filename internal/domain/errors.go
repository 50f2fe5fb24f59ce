package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

var (
	ErrOfferingNotFound    = fmt.Errorf("offering %w", ErrNotFound)
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrPurchaseNotFound    = fmt.Errorf("purchase %w", ErrNotFound)
)

// resource exhaustion
var (
	ErrSoldOut     = errors.New("sold out")
	ErrCapExceeded = errors.New("per-account purchase cap exceeded")
	ErrSeatTaken   = errors.New("seat already taken")
)

// window violations
var (
	ErrExpired           = errors.New("offering already started")
	ErrSalesNotOpen      = errors.New("sales not open yet")
	ErrSalesClosed       = errors.New("sales closed")
	ErrBoardingClosed    = errors.New("boarding closed")
	ErrOfferingCancelled = errors.New("offering cancelled")
)

// financial
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPaymentFailed     = errors.New("payment failed")
)

// policy
var (
	ErrRateLimited          = errors.New("rate limited")
	ErrAccountBlocked       = errors.New("account blocked")
	ErrRefundDeadlinePassed = errors.New("refund deadline passed")
)

// state
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyUsed       = errors.New("ticket already used")
	ErrAlreadyCancelled  = errors.New("ticket already cancelled")
)

// validation
var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrSeatRequired         = errors.New("seat required")
	ErrSeatNotAllowed       = errors.New("offering does not take seat selections")
	ErrInvalidOffering      = errors.New("invalid offering")
	ErrInvalidRefundPercent = errors.New("refund percent must be between 0 and 100")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidProof         = errors.New("invalid credential proof")
)

// ErrRetryable marks storage conflicts (serialization failures, deadlocks)
// that the caller may retry as a whole.
var ErrRetryable = errors.New("storage conflict, retry")

// RefundDeniedError is returned when a cancellation falls outside every
// refund window.
type RefundDeniedError struct {
	HoursRemaining float64
	Reason         string
}

func (e *RefundDeniedError) Error() string {
	return fmt.Sprintf("refund denied: %s (%.1fh remaining)", e.Reason, e.HoursRemaining)
}

func (e *RefundDeniedError) Unwrap() error {
	return ErrRefundDeadlinePassed
}

// RateLimitedError carries the time until the next purchase is allowed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

func invalidOffering(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOffering, fmt.Sprintf(format, args...))
}
