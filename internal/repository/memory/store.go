// Package memory is an in-process implementation of repository.Store.
//
// Transactions are serialized on one mutex and work on a copy of the state
// that replaces the live state on commit, so a failed transaction leaves no
// trace. It backs unit tests and single-node deployments without Postgres.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

// Fault is consulted before every mutating call with the operation name and
// its leading arguments. A non-nil return fails that call, which lets tests
// break a transaction at a chosen step.
type Fault func(op string, args ...any) error

type state struct {
	nextOffering int64
	nextAccount  int64
	offerings    map[int64]domain.Offering
	accounts     map[int64]domain.Account
	transactions map[uuid.UUID]domain.Transaction
	purchases    map[uuid.UUID]domain.Purchase
	credentials  map[string]uuid.UUID
}

func newState() *state {
	return &state{
		offerings:    make(map[int64]domain.Offering),
		accounts:     make(map[int64]domain.Account),
		transactions: make(map[uuid.UUID]domain.Transaction),
		purchases:    make(map[uuid.UUID]domain.Purchase),
		credentials:  make(map[string]uuid.UUID),
	}
}

func (s *state) clone() *state {
	cp := &state{
		nextOffering: s.nextOffering,
		nextAccount:  s.nextAccount,
		offerings:    make(map[int64]domain.Offering, len(s.offerings)),
		accounts:     make(map[int64]domain.Account, len(s.accounts)),
		transactions: make(map[uuid.UUID]domain.Transaction, len(s.transactions)),
		purchases:    make(map[uuid.UUID]domain.Purchase, len(s.purchases)),
		credentials:  make(map[string]uuid.UUID, len(s.credentials)),
	}
	for k, v := range s.offerings {
		cp.offerings[k] = v
	}
	for k, v := range s.accounts {
		cp.accounts[k] = v
	}
	for k, v := range s.transactions {
		cp.transactions[k] = v
	}
	for k, v := range s.purchases {
		cp.purchases[k] = v
	}
	for k, v := range s.credentials {
		cp.credentials[k] = v
	}
	return cp
}

type Store struct {
	mu    sync.Mutex
	st    *state
	clock clock.Clock

	faultMu sync.RWMutex
	fault   Fault
}

func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Store{
		st:    newState(),
		clock: clk,
	}
}

// SetFault installs f as the failure hook. Pass nil to clear it.
func (s *Store) SetFault(f Fault) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.fault = f
}

func (s *Store) checkFault(op string, args ...any) error {
	s.faultMu.RLock()
	f := s.fault
	s.faultMu.RUnlock()

	if f == nil {
		return nil
	}
	if err := f(op, args...); err != nil {
		return fmt.Errorf("memory.%s:%w", op, err)
	}
	return nil
}

// RunTx runs fn against a private copy of the state. Isolation options are
// accepted for interface compatibility; every transaction here is serial.
func (s *Store) RunTx(
	ctx context.Context,
	_ *repository.TxOptions,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &repos{store: s, st: work, inTx: true}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.st = work
	return nil
}

func (s *Store) Repos() repository.Repos {
	return &repos{store: s}
}

func (s *Store) Query() repository.Queries {
	return &queries{store: s}
}

type repos struct {
	store *Store
	st    *state
	inTx  bool
}

// view returns the state to operate on and the function that ends the access.
// Outside a transaction every call takes the store lock for its own duration.
func (r *repos) view() (*state, func()) {
	if r.inTx {
		return r.st, func() {}
	}
	r.store.mu.Lock()
	return r.store.st, r.store.mu.Unlock
}

func (r *repos) Offerings() repository.Offerings       { return &offerings{r} }
func (r *repos) Purchases() repository.Purchases       { return &purchases{r} }
func (r *repos) Transactions() repository.Transactions { return &transactions{r} }
func (r *repos) Ledger() repository.Ledger             { return &ledger{r} }

var _ repository.Store = (*Store)(nil)
