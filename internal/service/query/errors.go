package query

import (
	"errors"
)

var ErrNotOwner = errors.New("transaction belongs to another account")
