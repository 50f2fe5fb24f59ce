package purchase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	oid := f.offering(t, 5)
	acct := f.account(t, 20000)

	bought := f.buy(t, acct, oid, 1)

	ref, err := f.svc.ManualRefund(ctx, acct, 5000, &bought.TransactionRef)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), f.balance(t, acct))

	tx := f.transaction(t, ref)
	assert.Equal(t, domain.TxManualRefund, tx.Type)
	require.NotNil(t, tx.ParentRef)
	assert.Equal(t, bought.TransactionRef, *tx.ParentRef)
	assert.Len(t, f.events.OfType(events.RefundManual), 1)

	// the purchase itself is untouched
	assert.Equal(t, domain.PurchaseActive, f.purchase(t, bought.Purchases[0].ID).Status)
}

func TestManualRefundErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acct := f.account(t, 0)
	missing := uuid.New()

	tests := []struct {
		name    string
		account int64
		amount  int64
		parent  *uuid.UUID
		want    error
	}{
		{name: "zero amount", account: acct, amount: 0, want: domain.ErrInvalidAmount},
		{name: "unknown account", account: acct + 1, amount: 100, want: domain.ErrAccountNotFound},
		{name: "unknown parent", account: acct, amount: 100, parent: &missing, want: domain.ErrTransactionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ManualRefund(ctx, tt.account, tt.amount, tt.parent)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int64(0), f.balance(t, acct))
		})
	}
}
