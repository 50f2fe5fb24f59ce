package redemption_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/credential"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository/memory"
	"github.com/kirinyoku/tix-engine/internal/service/purchase"
	"github.com/kirinyoku/tix-engine/internal/service/redemption"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	store    *memory.Store
	clock    *clock.Manual
	buyer    *purchase.Service
	redeemer *redemption.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()

	clk := clock.NewManual(t0)
	store := memory.NewStore(clk)
	issuer, err := credential.NewIssuer("gate-secret")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &env{
		store: store,
		clock: clk,
		buyer: purchase.New(purchase.Deps{
			Store:  store,
			Clock:  clk,
			Issuer: issuer,
			Logger: log,
		}, purchase.Config{}),
		redeemer: redemption.New(store, clk, issuer, nil, log),
	}
}

// sell creates an offering and sells one unit of it to a fresh account.
func (e *env) sell(t *testing.T, o domain.Offering) (*purchase.BuyResult, int64) {
	t.Helper()
	ctx := context.Background()

	if o.Title == "" {
		o.Title = "Show"
	}
	if o.Category == "" {
		o.Category, o.Subtype = domain.CategoryEvent, domain.SubtypeGeneralAdmission
	}
	if o.StartsAt.IsZero() {
		o.StartsAt = t0.Add(48 * time.Hour)
	}
	o.UnitPriceCents, o.TotalCapacity = 5000, 10

	oid, err := e.store.Repos().Offerings().Create(ctx, o)
	require.NoError(t, err)

	acct, err := e.store.Repos().Ledger().CreateAccount(ctx, 100000, false)
	require.NoError(t, err)

	res, err := e.buyer.Buy(ctx, purchase.BuyRequest{AccountID: acct, OfferingID: oid, Quantity: 1})
	require.NoError(t, err)

	return res, acct
}

func TestRedeem(t *testing.T) {
	e := newEnv(t)
	bought, _ := e.sell(t, domain.Offering{})
	p := bought.Purchases[0]

	res, err := e.redeemer.Redeem(context.Background(), p.Credential, "gate-3", p.Proof)
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Equal(t, p.ID, res.PurchaseID)
	assert.Equal(t, t0, res.ValidatedAt)

	stored, err := e.store.Repos().Purchases().Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseUsed, stored.Status)
	assert.Equal(t, "gate-3", stored.UsedBy)
	require.NotNil(t, stored.UsedAt)
	assert.Equal(t, t0, *stored.UsedAt)
}

func TestRedeemTwice(t *testing.T) {
	e := newEnv(t)
	bought, _ := e.sell(t, domain.Offering{})
	cred := bought.Purchases[0].Credential

	_, err := e.redeemer.Redeem(context.Background(), cred, "gate", "")
	require.NoError(t, err)

	_, err = e.redeemer.Redeem(context.Background(), cred, "gate", "")
	assert.ErrorIs(t, err, domain.ErrAlreadyUsed)
}

func TestRedeemCancelled(t *testing.T) {
	e := newEnv(t)
	bought, acct := e.sell(t, domain.Offering{})

	_, err := e.buyer.Cancel(context.Background(), acct, bought.TransactionRef)
	require.NoError(t, err)

	_, err = e.redeemer.Redeem(context.Background(), bought.Purchases[0].Credential, "gate", "")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

// A ticket whose bulk refund failed stays ACTIVE under the cancelled
// offering. It must not be admitted, so a retried cancellation can still
// refund it.
func TestRedeemCancelledOffering(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	bought, acct := e.sell(t, domain.Offering{})
	p := bought.Purchases[0]

	e.store.SetFault(func(op string, _ ...any) error {
		if op == "Ledger.Credit" {
			return errors.New("ledger unavailable")
		}
		return nil
	})

	res, err := e.buyer.CancelOffering(ctx, p.OfferingID, 100)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)

	e.store.SetFault(nil)

	_, err = e.redeemer.Redeem(ctx, p.Credential, "gate", p.Proof)
	require.ErrorIs(t, err, domain.ErrOfferingCancelled)

	stored, err := e.store.Repos().Purchases().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseActive, stored.Status)

	res, err = e.buyer.CancelOffering(ctx, p.OfferingID, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RefundsProcessed)

	a, err := e.store.Repos().Ledger().GetAccount(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), a.BalanceCents)
}

func TestRedeemUnknownCredential(t *testing.T) {
	e := newEnv(t)

	_, err := e.redeemer.Redeem(context.Background(), "NOPE", "gate", "")
	assert.ErrorIs(t, err, domain.ErrPurchaseNotFound)
}

func TestRedeemBadProof(t *testing.T) {
	e := newEnv(t)
	bought, _ := e.sell(t, domain.Offering{})
	p := bought.Purchases[0]

	_, err := e.redeemer.Redeem(context.Background(), p.Credential, "gate", "forged")
	require.ErrorIs(t, err, domain.ErrInvalidProof)

	stored, err := e.store.Repos().Purchases().Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseActive, stored.Status)
}

func TestRedeemTimeRules(t *testing.T) {
	ends := t0.Add(50 * time.Hour)

	tests := []struct {
		name     string
		offering domain.Offering
		at       time.Time
		want     error
	}{
		{
			name:     "transport after departure",
			offering: domain.Offering{Category: domain.CategoryTransport, Subtype: domain.SubtypeOneWay, StartsAt: t0.Add(2 * time.Hour)},
			at:       t0.Add(3 * time.Hour),
			want:     domain.ErrBoardingClosed,
		},
		{
			name:     "transport before departure",
			offering: domain.Offering{Category: domain.CategoryTransport, Subtype: domain.SubtypeReturn, StartsAt: t0.Add(2 * time.Hour)},
			at:       t0.Add(time.Hour),
		},
		{
			name:     "event after end",
			offering: domain.Offering{EndsAt: &ends},
			at:       ends.Add(time.Minute),
			want:     domain.ErrExpired,
		},
		{
			name:     "event already running",
			offering: domain.Offering{EndsAt: &ends},
			at:       t0.Add(49 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			bought, _ := e.sell(t, tt.offering)

			e.clock.Set(tt.at)

			_, err := e.redeemer.Redeem(context.Background(), bought.Purchases[0].Credential, "gate", "")
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

// Exactly one of a concurrent cancel and redeem wins.
func TestRedeemCancelRace(t *testing.T) {
	for range 20 {
		e := newEnv(t)
		bought, acct := e.sell(t, domain.Offering{})

		var (
			wg                   sync.WaitGroup
			cancelErr, redeemErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancelErr = e.buyer.Cancel(context.Background(), acct, bought.TransactionRef)
		}()
		go func() {
			defer wg.Done()
			_, redeemErr = e.redeemer.Redeem(context.Background(), bought.Purchases[0].Credential, "gate", "")
		}()
		wg.Wait()

		switch {
		case cancelErr == nil:
			require.ErrorIs(t, redeemErr, domain.ErrAlreadyCancelled)
		case redeemErr == nil:
			require.True(t, errors.Is(cancelErr, domain.ErrAlreadyUsed), "cancel error: %v", cancelErr)
		default:
			t.Fatalf("both failed: cancel=%v redeem=%v", cancelErr, redeemErr)
		}
	}
}
