package purchase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/credential"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/kirinyoku/tix-engine/internal/repository/memory"
	"github.com/kirinyoku/tix-engine/internal/service/ratelimit"
	"github.com/kirinyoku/tix-engine/internal/service/refund"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	clock  *clock.Manual
	svc    *Service
	events *events.Recorder
	issuer *credential.Issuer
}

type fixtureOpts struct {
	rateLimit int
	cap       int
}

func newFixture(t *testing.T, opts ...func(*fixtureOpts)) *fixture {
	t.Helper()

	o := fixtureOpts{rateLimit: 1000}
	for _, fn := range opts {
		fn(&o)
	}

	clk := clock.NewManual(t0)
	store := memory.NewStore(clk)
	rec := &events.Recorder{}

	issuer, err := credential.NewIssuer("test-secret")
	require.NoError(t, err)

	svc := New(Deps{
		Store:  store,
		Clock:  clk,
		Policy: refund.NewPolicy(refund.DefaultConfig()),
		Guard:  ratelimit.NewLocal(ratelimit.Config{Limit: o.rateLimit, Window: time.Hour}, clk),
		Issuer: issuer,
		Events: rec,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, Config{DefaultPerAccountCap: o.cap, BulkCancelWorkers: 4})

	return &fixture{store: store, clock: clk, svc: svc, events: rec, issuer: issuer}
}

func withRateLimit(n int) func(*fixtureOpts) {
	return func(o *fixtureOpts) { o.rateLimit = n }
}

func withDefaultCap(n int) func(*fixtureOpts) {
	return func(o *fixtureOpts) { o.cap = n }
}

// offering creates an event offering starting 72h from t0 unless mutated.
func (f *fixture) offering(t *testing.T, capacity int, mutate ...func(*domain.Offering)) int64 {
	t.Helper()

	o := domain.Offering{
		Title:          "Concert",
		Category:       domain.CategoryEvent,
		Subtype:        domain.SubtypeGeneralAdmission,
		UnitPriceCents: 20000,
		TotalCapacity:  capacity,
		StartsAt:       t0.Add(72 * time.Hour),
	}
	for _, fn := range mutate {
		fn(&o)
	}
	require.NoError(t, o.Validate())

	id, err := f.store.Repos().Offerings().Create(context.Background(), o)
	require.NoError(t, err)
	return id
}

func (f *fixture) account(t *testing.T, balance int64) int64 {
	t.Helper()

	id, err := f.store.Repos().Ledger().CreateAccount(context.Background(), balance, false)
	require.NoError(t, err)
	return id
}

func (f *fixture) balance(t *testing.T, accountID int64) int64 {
	t.Helper()

	a, err := f.store.Repos().Ledger().GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return a.BalanceCents
}

func (f *fixture) remaining(t *testing.T, offeringID int64) int {
	t.Helper()

	o, err := f.store.Repos().Offerings().Get(context.Background(), offeringID)
	require.NoError(t, err)
	return o.RemainingCapacity
}

func (f *fixture) purchase(t *testing.T, id uuid.UUID) *domain.Purchase {
	t.Helper()

	p, err := f.store.Repos().Purchases().Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) transaction(t *testing.T, ref uuid.UUID) *domain.Transaction {
	t.Helper()

	tx, err := f.store.Repos().Transactions().Get(context.Background(), ref)
	require.NoError(t, err)
	return tx
}

func (f *fixture) buy(t *testing.T, accountID, offeringID int64, qty int) *BuyResult {
	t.Helper()

	res, err := f.svc.Buy(context.Background(), BuyRequest{AccountID: accountID, OfferingID: offeringID, Quantity: qty})
	require.NoError(t, err)
	return res
}

func seated(o *domain.Offering) {
	o.Subtype = domain.SubtypeReservedSeating
}

func transport(o *domain.Offering) {
	o.Category = domain.CategoryTransport
	o.Subtype = domain.SubtypeOneWay
}
