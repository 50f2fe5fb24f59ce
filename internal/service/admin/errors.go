package admin

import (
	"errors"
)

var (
	ErrNegativeBalance = errors.New("opening balance must not be negative")
	ErrRestockQuantity = errors.New("restock quantity must be positive")
)
