package admin

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()

	store := memory.NewStore(clock.NewFixed(t0))
	return New(store, nil, nil, clock.NewFixed(t0), nil), store
}

func validOffering() domain.Offering {
	return domain.Offering{
		Title:          "Night train",
		Category:       domain.CategoryTransport,
		Subtype:        domain.SubtypeOneWay,
		UnitPriceCents: 4500,
		TotalCapacity:  120,
		StartsAt:       t0.Add(10 * time.Hour),
	}
}

func TestCreateOffering(t *testing.T) {
	s, store := newService(t)

	id, err := s.CreateOffering(context.Background(), validOffering())
	require.NoError(t, err)

	o, err := store.Repos().Offerings().Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 120, o.RemainingCapacity)
	assert.Equal(t, domain.OfferingActive, o.Status)
	assert.Equal(t, t0, o.CreatedAt)

	bad := validOffering()
	bad.Subtype = domain.SubtypeReservedSeating
	_, err = s.CreateOffering(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrInvalidOffering)
}

func TestRestock(t *testing.T) {
	ctx := context.Background()
	s, store := newService(t)

	id, err := s.CreateOffering(ctx, validOffering())
	require.NoError(t, err)

	_, err = store.Repos().Offerings().Reserve(ctx, id, 20)
	require.NoError(t, err)

	o, err := s.Restock(ctx, id, 30)
	require.NoError(t, err)
	assert.Equal(t, 150, o.TotalCapacity)
	assert.Equal(t, 130, o.RemainingCapacity)

	_, err = s.Restock(ctx, id, 0)
	assert.ErrorIs(t, err, ErrRestockQuantity)

	_, err = s.Restock(ctx, id+1, 5)
	assert.ErrorIs(t, err, domain.ErrOfferingNotFound)

	require.NoError(t, store.Repos().Offerings().MarkCancelled(ctx, id))
	_, err = s.Restock(ctx, id, 5)
	assert.ErrorIs(t, err, domain.ErrOfferingCancelled)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	_, err := s.CreateAccount(ctx, -1, false)
	assert.ErrorIs(t, err, ErrNegativeBalance)

	id, err := s.CreateAccount(ctx, 2500, false)
	require.NoError(t, err)

	require.NoError(t, s.SetBlocked(ctx, id, true))

	a, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), a.BalanceCents)
	assert.True(t, a.Blocked)

	assert.ErrorIs(t, s.SetBlocked(ctx, id+1, true), domain.ErrAccountNotFound)

	_, err = s.GetAccount(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
