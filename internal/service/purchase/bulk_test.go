package purchase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelOfferingPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	oid := f.offering(t, 50)

	accounts := make([]int64, 50)
	for i := range accounts {
		accounts[i] = f.account(t, 20000)
		f.buy(t, accounts[i], oid, 1)
	}

	failing := map[int64]bool{accounts[3]: true, accounts[17]: true, accounts[42]: true}
	f.store.SetFault(func(op string, args ...any) error {
		if op != "Ledger.Credit" {
			return nil
		}
		if id, ok := args[0].(int64); ok && failing[id] {
			return errors.New("ledger unavailable")
		}
		return nil
	})

	res, err := f.svc.CancelOffering(ctx, oid, 100)
	require.NoError(t, err)

	assert.Equal(t, 47, res.RefundsProcessed)
	assert.Equal(t, int64(47*20000), res.TotalRefundedCents)
	require.Len(t, res.Failures, 3)
	for _, fl := range res.Failures {
		assert.True(t, failing[fl.AccountID])
		assert.Equal(t, domain.PurchaseActive, f.purchase(t, fl.PurchaseID).Status)
	}

	o, err := f.store.Repos().Offerings().Get(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferingCancelled, o.Status)
	assert.Equal(t, 0, o.RemainingCapacity)

	for _, acct := range accounts {
		want := int64(20000)
		if failing[acct] {
			want = 0
		}
		assert.Equal(t, want, f.balance(t, acct))
	}

	f.store.SetFault(nil)

	again, err := f.svc.CancelOffering(ctx, oid, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, again.RefundsProcessed)
	assert.Empty(t, again.Failures)

	for _, acct := range accounts {
		assert.Equal(t, int64(20000), f.balance(t, acct))
	}

	c, err := f.store.Query().OfferingCounts(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Active)
	assert.Equal(t, 50, c.Cancelled)

	assert.Len(t, f.events.OfType(events.OfferingCancelled), 2)
}

func TestCancelOfferingRefundPercent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	oid := f.offering(t, 5, func(o *domain.Offering) { o.UnitPriceCents = 999 })
	acct := f.account(t, 999)

	bought := f.buy(t, acct, oid, 1)

	res, err := f.svc.CancelOffering(ctx, oid, 50)
	require.NoError(t, err)

	// rounded down
	assert.Equal(t, int64(499), res.TotalRefundedCents)
	assert.Equal(t, int64(499), f.balance(t, acct))
	assert.Equal(t, domain.TxCancelled, f.transaction(t, bought.TransactionRef).Status)

	_, err = f.svc.Buy(ctx, BuyRequest{AccountID: acct, OfferingID: oid, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrOfferingCancelled)
}

func TestCancelOfferingSkipsUsedAndCancelled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	oid := f.offering(t, 5)
	a := f.account(t, 20000)
	b := f.account(t, 20000)
	c := f.account(t, 20000)

	used := f.buy(t, a, oid, 1)
	cancelled := f.buy(t, b, oid, 1)
	f.buy(t, c, oid, 1)

	require.NoError(t, f.store.Repos().Purchases().MarkUsed(ctx, used.Purchases[0].ID, t0, "gate"))
	_, err := f.svc.Cancel(ctx, b, cancelled.TransactionRef)
	require.NoError(t, err)

	res, err := f.svc.CancelOffering(ctx, oid, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RefundsProcessed)
	assert.Equal(t, int64(0), f.balance(t, a))
	assert.Equal(t, int64(16000), f.balance(t, b))
	assert.Equal(t, int64(20000), f.balance(t, c))
}

func TestCancelOfferingErrors(t *testing.T) {
	f := newFixture(t)
	oid := f.offering(t, 5)

	_, err := f.svc.CancelOffering(context.Background(), oid, 101)
	assert.ErrorIs(t, err, domain.ErrInvalidRefundPercent)

	_, err = f.svc.CancelOffering(context.Background(), oid+1, 100)
	assert.ErrorIs(t, err, domain.ErrOfferingNotFound)
}
