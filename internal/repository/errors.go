package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrConditionFailed is returned when a guarded write touched no rows:
	// the guard (stock left, expected status, balance) did not hold.
	ErrConditionFailed = errors.New("condition not met")
	ErrRetryable       = errors.New("retryable storage conflict")
)
