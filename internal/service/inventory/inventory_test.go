package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
	"github.com/kirinyoku/tix-engine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, capacity int) (*memory.Store, int64) {
	t.Helper()

	s := memory.NewStore(clock.NewFixed(now))
	id, err := s.Repos().Offerings().Create(context.Background(), domain.Offering{
		Title:          "Match",
		Category:       domain.CategoryGame,
		Subtype:        domain.SubtypeGeneralAdmission,
		UnitPriceCents: 2500,
		TotalCapacity:  capacity,
		StartsAt:       now.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return s, id
}

func reserve(s *memory.Store, id int64, qty int, at time.Time) error {
	return s.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Repos) error {
		_, err := Reserve(ctx, tx, id, qty, at)
		return err
	})
}

func TestReserveErrors(t *testing.T) {
	s, id := setup(t, 3)

	require.NoError(t, reserve(s, id, 3, now))
	assert.ErrorIs(t, reserve(s, id, 1, now), domain.ErrSoldOut)
	assert.ErrorIs(t, reserve(s, id, 0, now), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, reserve(s, id+1, 1, now), domain.ErrOfferingNotFound)
	assert.ErrorIs(t, reserve(s, id, 1, now.Add(48*time.Hour)), domain.ErrExpired)
}

func TestReserveOnCancelledOffering(t *testing.T) {
	s, id := setup(t, 3)
	require.NoError(t, s.Repos().Offerings().MarkCancelled(context.Background(), id))

	assert.ErrorIs(t, reserve(s, id, 1, now), domain.ErrOfferingCancelled)
}

func TestReserveNeverOversells(t *testing.T) {
	const capacity = 25
	s, id := setup(t, capacity)

	var g errgroup.Group
	results := make(chan error, 100)
	for range 100 {
		g.Go(func() error {
			results <- reserve(s, id, 1, now)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	ok, soldOut := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, domain.ErrSoldOut):
			soldOut++
		}
	}

	assert.Equal(t, capacity, ok)
	assert.Equal(t, 100-capacity, soldOut)

	o, err := s.Repos().Offerings().Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, o.RemainingCapacity)
}

func TestReleaseCappedAtTotal(t *testing.T) {
	s, id := setup(t, 3)
	require.NoError(t, reserve(s, id, 2, now))

	err := s.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Repos) error {
		return Release(ctx, tx, id, 3)
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	err = s.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Repos) error {
		return Release(ctx, tx, id, 2)
	})
	require.NoError(t, err)
}

func TestReleaseIntoCancelledOffering(t *testing.T) {
	s, id := setup(t, 3)
	require.NoError(t, reserve(s, id, 2, now))
	require.NoError(t, s.Repos().Offerings().MarkCancelled(context.Background(), id))

	err := s.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Repos) error {
		return Release(ctx, tx, id, 1)
	})
	require.ErrorIs(t, err, domain.ErrOfferingCancelled)

	o, err := s.Repos().Offerings().Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, o.RemainingCapacity)
}
