package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

type transactions struct{ *repos }

func (r *transactions) Create(_ context.Context, t domain.Transaction) error {
	const op = "memory.Transactions.Create"

	if err := r.store.checkFault("Transactions.Create", t.Type, t.AccountID); err != nil {
		return err
	}

	st, done := r.view()
	defer done()

	if _, ok := st.transactions[t.Ref]; ok {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}
	if t.ParentRef != nil {
		if _, ok := st.transactions[*t.ParentRef]; !ok {
			return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
		}
	}

	t.UpdatedAt = t.CreatedAt
	st.transactions[t.Ref] = t
	return nil
}

func (r *transactions) Get(_ context.Context, ref uuid.UUID) (*domain.Transaction, error) {
	const op = "memory.Transactions.Get"

	st, done := r.view()
	defer done()

	t, ok := st.transactions[ref]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	return &t, nil
}

func (r *transactions) GetForUpdate(ctx context.Context, ref uuid.UUID) (*domain.Transaction, error) {
	return r.Get(ctx, ref)
}

func (r *transactions) SetStatus(_ context.Context, ref uuid.UUID, from, to domain.TransactionStatus) error {
	const op = "memory.Transactions.SetStatus"

	if err := domain.CheckTransactionTransition(from, to); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if err := r.store.checkFault("Transactions.SetStatus", ref); err != nil {
		return err
	}

	st, done := r.view()
	defer done()

	t, ok := st.transactions[ref]
	if !ok || t.Status != from {
		return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	t.Status = to
	t.UpdatedAt = r.store.clock.Now()
	st.transactions[ref] = t
	return nil
}

func (r *transactions) CancelIfSettled(_ context.Context, ref uuid.UUID) (bool, error) {
	st, done := r.view()
	defer done()

	t, ok := st.transactions[ref]
	if !ok || t.Status != domain.TxSuccess {
		return false, nil
	}
	for _, p := range st.purchases {
		if p.TransactionRef == ref && p.Status != domain.PurchaseCancelled {
			return false, nil
		}
	}

	t.Status = domain.TxCancelled
	t.UpdatedAt = r.store.clock.Now()
	st.transactions[ref] = t
	return true, nil
}

type ledger struct{ *repos }

func (r *ledger) CreateAccount(_ context.Context, balanceCents int64, blocked bool) (int64, error) {
	const op = "memory.Ledger.CreateAccount"

	if balanceCents < 0 {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	st, done := r.view()
	defer done()

	st.nextAccount++
	a := domain.Account{
		ID:           st.nextAccount,
		BalanceCents: balanceCents,
		Blocked:      blocked,
		CreatedAt:    r.store.clock.Now(),
	}
	st.accounts[a.ID] = a
	return a.ID, nil
}

func (r *ledger) GetAccount(_ context.Context, id int64) (*domain.Account, error) {
	const op = "memory.Ledger.GetAccount"

	st, done := r.view()
	defer done()

	a, ok := st.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	return &a, nil
}

func (r *ledger) GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	return r.GetAccount(ctx, id)
}

func (r *ledger) SetBlocked(_ context.Context, id int64, blocked bool) error {
	const op = "memory.Ledger.SetBlocked"

	st, done := r.view()
	defer done()

	a, ok := st.accounts[id]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	a.Blocked = blocked
	st.accounts[id] = a
	return nil
}

func (r *ledger) Debit(_ context.Context, id int64, amountCents int64) error {
	const op = "memory.Ledger.Debit"

	if err := r.store.checkFault("Ledger.Debit", id, amountCents); err != nil {
		return err
	}

	st, done := r.view()
	defer done()

	a, ok := st.accounts[id]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	if a.BalanceCents < amountCents {
		return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}
	a.BalanceCents -= amountCents
	st.accounts[id] = a
	return nil
}

func (r *ledger) Credit(_ context.Context, id int64, amountCents int64) error {
	const op = "memory.Ledger.Credit"

	if err := r.store.checkFault("Ledger.Credit", id, amountCents); err != nil {
		return err
	}

	st, done := r.view()
	defer done()

	a, ok := st.accounts[id]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	a.BalanceCents += amountCents
	st.accounts[id] = a
	return nil
}
