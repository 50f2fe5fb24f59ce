package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGuard(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	g := NewLocal(Config{Limit: 3, Window: time.Hour}, clk)

	for i := 0; i < 3; i++ {
		require.NoError(t, g.Check(ctx, 1))
		require.NoError(t, g.Record(ctx, 1))
		clk.Advance(10 * time.Minute)
	}

	err := g.Check(ctx, 1)
	require.ErrorIs(t, err, domain.ErrRateLimited)

	var rl *domain.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Minute, rl.RetryAfter)

	t.Run("other accounts unaffected", func(t *testing.T) {
		assert.NoError(t, g.Check(ctx, 2))
	})

	t.Run("window slides", func(t *testing.T) {
		clk.Advance(30 * time.Minute)
		assert.NoError(t, g.Check(ctx, 1))
	})
}

func TestLocalGuardCheckDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Now())
	g := NewLocal(Config{Limit: 1, Window: time.Hour}, clk)

	for i := 0; i < 10; i++ {
		require.NoError(t, g.Check(ctx, 7))
	}
	require.NoError(t, g.Record(ctx, 7))
	require.ErrorIs(t, g.Check(ctx, 7), domain.ErrRateLimited)
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, 5, c.Limit)
	assert.Equal(t, time.Hour, c.Window)
}
