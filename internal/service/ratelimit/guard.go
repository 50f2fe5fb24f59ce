// Package ratelimit caps how many purchases one account completes per window.
//
// Check runs before a purchase and Record after it commits, so failed
// attempts never consume quota. The pair is not atomic: concurrent buys of
// one account may overshoot the limit by the number in flight.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/domain"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
)

type Guard interface {
	// Check returns a *domain.RateLimitedError when the account is at its limit.
	Check(ctx context.Context, accountID int64) error
	Record(ctx context.Context, accountID int64) error
}

type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = 5
	}
	if c.Window <= 0 {
		c.Window = time.Hour
	}
	return c
}

// Redis is a Guard shared by every node through a sorted-set window.
type Redis struct {
	limiter *redisrepo.SlidingWindowLimiter
	clock   clock.Clock
}

func NewRedis(l *redisrepo.SlidingWindowLimiter, clk clock.Clock) *Redis {
	return &Redis{limiter: l, clock: clk}
}

func (g *Redis) Check(ctx context.Context, accountID int64) error {
	const op = "ratelimit.Redis.Check"

	ok, _, retry, err := g.limiter.Peek(ctx, strconv.FormatInt(accountID, 10), g.clock.Now())
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return &domain.RateLimitedError{RetryAfter: retry}
	}
	return nil
}

func (g *Redis) Record(ctx context.Context, accountID int64) error {
	const op = "ratelimit.Redis.Record"

	if _, err := g.limiter.Hit(ctx, strconv.FormatInt(accountID, 10), g.clock.Now()); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

// Local is an in-process Guard for single-node runs without Redis.
type Local struct {
	cfg   Config
	clock clock.Clock

	mu   sync.Mutex
	hits map[int64][]time.Time
}

func NewLocal(cfg Config, clk clock.Clock) *Local {
	return &Local{
		cfg:   cfg.withDefaults(),
		clock: clk,
		hits:  make(map[int64][]time.Time),
	}
}

func (g *Local) Check(_ context.Context, accountID int64) error {
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	hits := g.prune(accountID, now)
	if len(hits) < g.cfg.Limit {
		return nil
	}

	retry := g.cfg.Window - now.Sub(hits[0])
	if retry < 0 {
		retry = 0
	}
	return &domain.RateLimitedError{RetryAfter: retry}
}

func (g *Local) Record(_ context.Context, accountID int64) error {
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.hits[accountID] = append(g.prune(accountID, now), now)
	return nil
}

// prune drops hits that left the window. Callers hold g.mu.
func (g *Local) prune(accountID int64, now time.Time) []time.Time {
	hits := g.hits[accountID]
	cutoff := now.Add(-g.cfg.Window)

	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) == 0 {
		delete(g.hits, accountID)
		return nil
	}
	g.hits[accountID] = hits
	return hits
}
