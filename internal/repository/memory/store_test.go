package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(clock.NewFixed(now))
}

func createOffering(t *testing.T, s *Store, capacity int) int64 {
	t.Helper()

	id, err := s.Repos().Offerings().Create(context.Background(), domain.Offering{
		Title:          "Concert",
		Category:       domain.CategoryEvent,
		Subtype:        domain.SubtypeReservedSeating,
		UnitPriceCents: 1000,
		TotalCapacity:  capacity,
		StartsAt:       now.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return id
}

func TestRunTxRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createOffering(t, s, 10)

	boom := errors.New("boom")
	err := s.RunTx(ctx, nil, func(ctx context.Context, tx repository.Repos) error {
		_, err := tx.Offerings().Reserve(ctx, id, 4)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	o, err := s.Repos().Offerings().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, o.RemainingCapacity)
}

func TestRunTxCommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createOffering(t, s, 10)

	err := s.RunTx(ctx, nil, func(ctx context.Context, tx repository.Repos) error {
		_, err := tx.Offerings().Reserve(ctx, id, 4)
		return err
	})
	require.NoError(t, err)

	o, err := s.Repos().Offerings().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 6, o.RemainingCapacity)
}

func TestReserveGuards(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createOffering(t, s, 2)
	offs := s.Repos().Offerings()

	left, err := offs.Reserve(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	_, err = offs.Reserve(ctx, id, 1)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	_, err = offs.Release(ctx, id, 3)
	assert.ErrorIs(t, err, repository.ErrConditionFailed, "release must not exceed total capacity")

	_, err = offs.Release(ctx, id, 2)
	require.NoError(t, err)

	require.NoError(t, offs.MarkCancelled(ctx, id))
	_, err = offs.Reserve(ctx, id, 1)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	_, err = offs.Restock(ctx, id, 5)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	_, err = offs.Release(ctx, id, 1)
	assert.ErrorIs(t, err, repository.ErrConditionFailed, "cancelled offerings take no capacity back")
}

func purchase(offeringID int64, seat string, status domain.PurchaseStatus) domain.Purchase {
	id := uuid.New()
	return domain.Purchase{
		ID:             id,
		TransactionRef: uuid.New(),
		OfferingID:     offeringID,
		AccountID:      1,
		Credential:     id.String(),
		Seat:           seat,
		Status:         status,
		CreatedAt:      now,
	}
}

func TestCreateBatchSeatConflict(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createOffering(t, s, 10)
	ps := s.Repos().Purchases()

	require.NoError(t, ps.CreateBatch(ctx, []domain.Purchase{purchase(id, "A1", domain.PurchaseActive)}))

	err := ps.CreateBatch(ctx, []domain.Purchase{purchase(id, "A1", domain.PurchasePending)})
	assert.ErrorIs(t, err, repository.ErrConflict)

	held, err := ps.SeatHeld(ctx, id, "A1")
	require.NoError(t, err)
	assert.True(t, held)

	// a cancelled holder frees the seat
	require.NoError(t, ps.CreateBatch(ctx, []domain.Purchase{purchase(id, "B1", domain.PurchaseCancelled)}))
	require.NoError(t, ps.CreateBatch(ctx, []domain.Purchase{purchase(id, "B1", domain.PurchasePending)}))
}

func TestTransitionIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createOffering(t, s, 10)
	ps := s.Repos().Purchases()

	a := purchase(id, "", domain.PurchaseActive)
	b := purchase(id, "", domain.PurchaseUsed)
	require.NoError(t, ps.CreateBatch(ctx, []domain.Purchase{a, b}))

	err := ps.Transition(ctx, []uuid.UUID{a.ID, b.ID}, domain.PurchaseActive, domain.PurchaseCancelled)
	require.ErrorIs(t, err, repository.ErrConditionFailed)

	got, err := ps.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseActive, got.Status)

	err = ps.Transition(ctx, []uuid.UUID{b.ID}, domain.PurchaseUsed, domain.PurchaseActive)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMarkUsedOnlyFromActive(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createOffering(t, s, 10)
	ps := s.Repos().Purchases()

	p := purchase(id, "", domain.PurchaseActive)
	require.NoError(t, ps.CreateBatch(ctx, []domain.Purchase{p}))

	require.NoError(t, ps.MarkUsed(ctx, p.ID, now, "gate-1"))
	assert.ErrorIs(t, ps.MarkUsed(ctx, p.ID, now, "gate-2"), repository.ErrConditionFailed)

	got, err := ps.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseUsed, got.Status)
	assert.Equal(t, "gate-1", got.UsedBy)
}

func TestLedgerDebitGuard(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := s.Repos().Ledger()

	id, err := l.CreateAccount(ctx, 500, false)
	require.NoError(t, err)

	require.NoError(t, l.Debit(ctx, id, 300))
	assert.ErrorIs(t, l.Debit(ctx, id, 300), repository.ErrConditionFailed)
	require.NoError(t, l.Credit(ctx, id, 100))

	a, err := l.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(300), a.BalanceCents)

	assert.ErrorIs(t, l.SetBlocked(ctx, 999, true), repository.ErrNotFound)
}

func TestFaultHook(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := s.Repos().Ledger()

	id, err := l.CreateAccount(ctx, 500, false)
	require.NoError(t, err)

	boom := errors.New("ledger down")
	s.SetFault(func(op string, args ...any) error {
		if op == "Ledger.Credit" && args[0] == id {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, l.Credit(ctx, id, 1), boom)
	require.NoError(t, l.Debit(ctx, id, 1))

	s.SetFault(nil)
	require.NoError(t, l.Credit(ctx, id, 1))
}

func TestCancelIfSettled(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createOffering(t, s, 10)
	repos := s.Repos()

	ref := uuid.New()
	require.NoError(t, repos.Transactions().Create(ctx, domain.Transaction{
		Ref: ref, AccountID: 1, Type: domain.TxTicketPurchase, Status: domain.TxSuccess, CreatedAt: now,
	}))

	a := purchase(id, "", domain.PurchaseActive)
	a.TransactionRef = ref
	b := purchase(id, "", domain.PurchaseCancelled)
	b.TransactionRef = ref
	require.NoError(t, repos.Purchases().CreateBatch(ctx, []domain.Purchase{a, b}))

	done, err := repos.Transactions().CancelIfSettled(ctx, ref)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, repos.Purchases().Transition(ctx, []uuid.UUID{a.ID}, domain.PurchaseActive, domain.PurchaseCancelled))

	done, err = repos.Transactions().CancelIfSettled(ctx, ref)
	require.NoError(t, err)
	assert.True(t, done)

	tx, err := repos.Transactions().Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, domain.TxCancelled, tx.Status)
}

func TestQueriesOfferingCounts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createOffering(t, s, 10)

	require.NoError(t, s.Repos().Purchases().CreateBatch(ctx, []domain.Purchase{
		purchase(id, "", domain.PurchaseActive),
		purchase(id, "", domain.PurchaseActive),
		purchase(id, "", domain.PurchaseUsed),
		purchase(id, "", domain.PurchaseCancelled),
	}))

	c, err := s.Query().OfferingCounts(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferingCounts{Total: 10, Remaining: 10, Active: 2, Used: 1, Cancelled: 1}, *c)

	_, err = s.Query().OfferingCounts(ctx, id+1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
