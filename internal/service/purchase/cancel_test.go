package purchase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelWithinDeadline(t *testing.T) {
	f := newFixture(t)
	oid := f.offering(t, 10)
	acct := f.account(t, 20000)

	bought := f.buy(t, acct, oid, 1)
	require.Equal(t, int64(0), f.balance(t, acct))

	// 30h before the start
	f.clock.Set(t0.Add(42 * time.Hour))

	res, err := f.svc.Cancel(context.Background(), acct, bought.TransactionRef)
	require.NoError(t, err)

	assert.Equal(t, int64(16000), res.RefundAmountCents)
	assert.Equal(t, int64(16000), f.balance(t, acct))
	assert.Equal(t, 10, f.remaining(t, oid))
	assert.Equal(t, domain.PurchaseCancelled, f.purchase(t, bought.Purchases[0].ID).Status)
	assert.Equal(t, domain.TxCancelled, f.transaction(t, bought.TransactionRef).Status)

	refundTx := f.transaction(t, res.RefundTransactionRef)
	assert.Equal(t, domain.TxTicketRefund, refundTx.Type)
	assert.Equal(t, domain.TxSuccess, refundTx.Status)
	require.NotNil(t, refundTx.ParentRef)
	assert.Equal(t, bought.TransactionRef, *refundTx.ParentRef)

	require.Len(t, f.events.OfType(events.PurchaseRefunded), 1)
}

func TestCancelPastDeadline(t *testing.T) {
	f := newFixture(t)
	oid := f.offering(t, 10)
	acct := f.account(t, 20000)

	bought := f.buy(t, acct, oid, 1)

	f.clock.Set(t0.Add(71 * time.Hour))

	_, err := f.svc.Cancel(context.Background(), acct, bought.TransactionRef)
	require.ErrorIs(t, err, domain.ErrRefundDeadlinePassed)

	var denied *domain.RefundDeniedError
	require.True(t, errors.As(err, &denied))
	assert.InDelta(t, 1.0, denied.HoursRemaining, 0.01)

	assert.Equal(t, int64(0), f.balance(t, acct))
	assert.Equal(t, 9, f.remaining(t, oid))
	assert.Equal(t, domain.PurchaseActive, f.purchase(t, bought.Purchases[0].ID).Status)
}

func TestCancelTransportLateWindow(t *testing.T) {
	f := newFixture(t)
	oid := f.offering(t, 10, transport)
	acct := f.account(t, 20000)

	bought := f.buy(t, acct, oid, 1)

	// 3h before departure only the transport late window is open
	f.clock.Set(t0.Add(69 * time.Hour))

	res, err := f.svc.Cancel(context.Background(), acct, bought.TransactionRef)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), res.RefundAmountCents)
}

func TestCancelTwiceCreditsOnce(t *testing.T) {
	f := newFixture(t)
	oid := f.offering(t, 10)
	acct := f.account(t, 40000)

	bought := f.buy(t, acct, oid, 2)

	_, err := f.svc.Cancel(context.Background(), acct, bought.TransactionRef)
	require.NoError(t, err)
	after := f.balance(t, acct)

	_, err = f.svc.Cancel(context.Background(), acct, bought.TransactionRef)
	require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Equal(t, after, f.balance(t, acct))
	assert.Equal(t, 10, f.remaining(t, oid))
}

func TestCancelUsedTicket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	oid := f.offering(t, 10)
	acct := f.account(t, 20000)

	bought := f.buy(t, acct, oid, 1)
	require.NoError(t, f.store.Repos().Purchases().MarkUsed(ctx, bought.Purchases[0].ID, t0, "gate-1"))

	_, err := f.svc.Cancel(ctx, acct, bought.TransactionRef)
	assert.ErrorIs(t, err, domain.ErrAlreadyUsed)
	assert.Equal(t, int64(0), f.balance(t, acct))
}

func TestCancelPartiallyUsedTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	oid := f.offering(t, 10)
	acct := f.account(t, 60000)

	bought := f.buy(t, acct, oid, 3)
	used := bought.Purchases[0].ID
	require.NoError(t, f.store.Repos().Purchases().MarkUsed(ctx, used, t0, "gate-1"))

	res, err := f.svc.Cancel(ctx, acct, bought.TransactionRef)
	require.NoError(t, err)

	assert.Len(t, res.CancelledPurchases, 2)
	assert.NotContains(t, res.CancelledPurchases, used)
	assert.Equal(t, int64(32000), res.RefundAmountCents)
	assert.Equal(t, 9, f.remaining(t, oid))
	assert.Equal(t, domain.PurchaseUsed, f.purchase(t, used).Status)
	// a used ticket keeps the purchase transaction settled
	assert.Equal(t, domain.TxSuccess, f.transaction(t, bought.TransactionRef).Status)
}

func TestCancelNotOwner(t *testing.T) {
	f := newFixture(t)
	oid := f.offering(t, 10)
	owner := f.account(t, 20000)
	other := f.account(t, 0)

	bought := f.buy(t, owner, oid, 1)

	_, err := f.svc.Cancel(context.Background(), other, bought.TransactionRef)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	assert.Equal(t, domain.PurchaseActive, f.purchase(t, bought.Purchases[0].ID).Status)
}

func TestCancelCreditFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	oid := f.offering(t, 10)
	acct := f.account(t, 20000)

	bought := f.buy(t, acct, oid, 1)

	boom := errors.New("injected")
	f.store.SetFault(func(op string, _ ...any) error {
		if op == "Ledger.Credit" {
			return boom
		}
		return nil
	})

	_, err := f.svc.Cancel(context.Background(), acct, bought.TransactionRef)
	require.ErrorIs(t, err, domain.ErrPaymentFailed)

	assert.Equal(t, int64(0), f.balance(t, acct))
	assert.Equal(t, 9, f.remaining(t, oid))
	assert.Equal(t, domain.PurchaseActive, f.purchase(t, bought.Purchases[0].ID).Status)
	assert.Empty(t, f.events.OfType(events.PurchaseRefunded))
}

// A holder left ACTIVE by a failed bulk refund is refunded by the bulk retry
// at the organizer's percentage, not by the time-based policy.
func TestCancelOnCancelledOffering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	oid := f.offering(t, 10)
	acct := f.account(t, 20000)

	bought := f.buy(t, acct, oid, 1)

	f.store.SetFault(func(op string, _ ...any) error {
		if op == "Ledger.Credit" {
			return errors.New("ledger unavailable")
		}
		return nil
	})

	bulk, err := f.svc.CancelOffering(ctx, oid, 100)
	require.NoError(t, err)
	require.Len(t, bulk.Failures, 1)

	f.store.SetFault(nil)

	_, err = f.svc.Cancel(ctx, acct, bought.TransactionRef)
	require.ErrorIs(t, err, domain.ErrOfferingCancelled)
	assert.Equal(t, int64(0), f.balance(t, acct))
	assert.Equal(t, domain.PurchaseActive, f.purchase(t, bought.Purchases[0].ID).Status)

	bulk, err = f.svc.CancelOffering(ctx, oid, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, bulk.RefundsProcessed)
	assert.Equal(t, int64(20000), f.balance(t, acct))
}
