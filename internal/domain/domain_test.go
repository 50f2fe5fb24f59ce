package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseTransitions(t *testing.T) {
	allowed := map[[2]PurchaseStatus]bool{
		{PurchasePending, PurchaseActive}:    true,
		{PurchasePending, PurchaseCancelled}: true,
		{PurchaseActive, PurchaseUsed}:       true,
		{PurchaseActive, PurchaseCancelled}:  true,
	}

	all := []PurchaseStatus{PurchasePending, PurchaseActive, PurchaseUsed, PurchaseCancelled}
	for _, from := range all {
		for _, to := range all {
			err := CheckPurchaseTransition(from, to)
			if allowed[[2]PurchaseStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, PurchaseUsed.IsTerminal())
	assert.True(t, PurchaseCancelled.IsTerminal())
	assert.False(t, PurchaseActive.IsTerminal())
	assert.False(t, PurchasePending.IsTerminal())

	assert.ErrorIs(t, PurchaseUsed.TerminalError(), ErrAlreadyUsed)
	assert.ErrorIs(t, PurchaseCancelled.TerminalError(), ErrAlreadyCancelled)
	assert.NoError(t, PurchaseActive.TerminalError())
}

func TestTransactionTransitions(t *testing.T) {
	assert.NoError(t, CheckTransactionTransition(TxPending, TxSuccess))
	assert.NoError(t, CheckTransactionTransition(TxPending, TxFailed))
	assert.NoError(t, CheckTransactionTransition(TxSuccess, TxCancelled))
	assert.ErrorIs(t, CheckTransactionTransition(TxFailed, TxSuccess), ErrInvalidTransition)
	assert.ErrorIs(t, CheckTransactionTransition(TxCancelled, TxSuccess), ErrInvalidTransition)
}

func TestCheckSalesWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name string
		o    Offering
		want error
	}{
		{"open", Offering{StartsAt: now.Add(48 * time.Hour)}, nil},
		{"started", Offering{StartsAt: now}, ErrExpired},
		{"cancelled", Offering{StartsAt: after, Status: OfferingCancelled}, ErrOfferingCancelled},
		{"sales not open", Offering{StartsAt: now.Add(48 * time.Hour), SalesStart: &after}, ErrSalesNotOpen},
		{"sales closed", Offering{StartsAt: now.Add(48 * time.Hour), SalesEnd: &before}, ErrSalesClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.o.CheckSalesWindow(now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOfferingValidate(t *testing.T) {
	starts := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	earlier := starts.Add(-time.Hour)

	valid := Offering{
		Title:          "Finals",
		Category:       CategoryGame,
		Subtype:        SubtypeReservedSeating,
		UnitPriceCents: 5000,
		TotalCapacity:  100,
		StartsAt:       starts,
	}
	require.NoError(t, valid.Validate())

	mutate := []struct {
		name string
		fn   func(o *Offering)
	}{
		{"no title", func(o *Offering) { o.Title = "" }},
		{"transport subtype on game", func(o *Offering) { o.Subtype = SubtypeOneWay }},
		{"negative price", func(o *Offering) { o.UnitPriceCents = -1 }},
		{"zero capacity", func(o *Offering) { o.TotalCapacity = 0 }},
		{"no start", func(o *Offering) { o.StartsAt = time.Time{} }},
		{"ends before start", func(o *Offering) { o.EndsAt = &earlier }},
		{"negative cap", func(o *Offering) { o.PerAccountCap = -1 }},
	}

	for _, m := range mutate {
		t.Run(m.name, func(t *testing.T) {
			o := valid
			m.fn(&o)
			assert.ErrorIs(t, o.Validate(), ErrInvalidOffering)
		})
	}
}

func TestNotFoundErrorsShareSentinel(t *testing.T) {
	for _, err := range []error{ErrOfferingNotFound, ErrAccountNotFound, ErrTransactionNotFound, ErrPurchaseNotFound} {
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	var denied error = &RefundDeniedError{HoursRemaining: 3.5, Reason: "late"}
	assert.True(t, errors.Is(denied, ErrRefundDeadlinePassed))
	assert.Contains(t, denied.Error(), "3.5h")

	var limited error = &RateLimitedError{RetryAfter: time.Minute}
	assert.True(t, errors.Is(limited, ErrRateLimited))
}
