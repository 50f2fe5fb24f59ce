package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

type purchases struct{ *repos }

func seatLive(s domain.PurchaseStatus) bool {
	return s == domain.PurchasePending || s == domain.PurchaseActive || s == domain.PurchaseUsed
}

func (r *purchases) CreateBatch(_ context.Context, ps []domain.Purchase) error {
	const op = "memory.Purchases.CreateBatch"

	if err := r.store.checkFault("Purchases.CreateBatch"); err != nil {
		return err
	}

	st, done := r.view()
	defer done()

	seats := make(map[string]struct{})
	for _, p := range st.purchases {
		if p.Seat != "" && seatLive(p.Status) {
			seats[fmt.Sprintf("%d/%s", p.OfferingID, p.Seat)] = struct{}{}
		}
	}

	creds := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		if _, ok := st.credentials[p.Credential]; ok {
			return fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
		if _, ok := creds[p.Credential]; ok {
			return fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
		if _, ok := st.purchases[p.ID]; ok {
			return fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
		creds[p.Credential] = struct{}{}

		if p.Seat != "" && seatLive(p.Status) {
			key := fmt.Sprintf("%d/%s", p.OfferingID, p.Seat)
			if _, ok := seats[key]; ok {
				return fmt.Errorf("%s:%w", op, repository.ErrConflict)
			}
			seats[key] = struct{}{}
		}
	}

	for _, p := range ps {
		p.UpdatedAt = p.CreatedAt
		st.purchases[p.ID] = p
		st.credentials[p.Credential] = p.ID
	}

	return nil
}

func (r *purchases) Get(_ context.Context, id uuid.UUID) (*domain.Purchase, error) {
	const op = "memory.Purchases.Get"

	st, done := r.view()
	defer done()

	p, ok := st.purchases[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	return &p, nil
}

func (r *purchases) GetByCredentialForUpdate(_ context.Context, credential string) (*domain.Purchase, error) {
	const op = "memory.Purchases.GetByCredentialForUpdate"

	st, done := r.view()
	defer done()

	id, ok := st.credentials[credential]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	p := st.purchases[id]
	return &p, nil
}

func (r *purchases) ListByTransaction(_ context.Context, ref uuid.UUID) ([]domain.Purchase, error) {
	st, done := r.view()
	defer done()

	return collect(st, func(p domain.Purchase) bool { return p.TransactionRef == ref }, byCreated), nil
}

func (r *purchases) ListByTransactionForUpdate(ctx context.Context, ref uuid.UUID) ([]domain.Purchase, error) {
	return r.ListByTransaction(ctx, ref)
}

func (r *purchases) ListByOffering(
	_ context.Context,
	offeringID int64,
	status domain.PurchaseStatus,
) ([]domain.Purchase, error) {
	st, done := r.view()
	defer done()

	return collect(st, func(p domain.Purchase) bool {
		return p.OfferingID == offeringID && p.Status == status
	}, byID), nil
}

func (r *purchases) ListByAccount(_ context.Context, accountID int64, limit, offset int) ([]domain.Purchase, error) {
	st, done := r.view()
	defer done()

	out := collect(st, func(p domain.Purchase) bool { return p.AccountID == accountID }, func(a, b domain.Purchase) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *purchases) CountHeld(_ context.Context, accountID, offeringID int64) (int, error) {
	st, done := r.view()
	defer done()

	n := 0
	for _, p := range st.purchases {
		if p.AccountID == accountID && p.OfferingID == offeringID && p.Status.Holds() {
			n++
		}
	}
	return n, nil
}

func (r *purchases) SeatHeld(_ context.Context, offeringID int64, seat string) (bool, error) {
	st, done := r.view()
	defer done()

	for _, p := range st.purchases {
		if p.OfferingID == offeringID && p.Seat == seat && seatLive(p.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (r *purchases) Transition(_ context.Context, ids []uuid.UUID, from, to domain.PurchaseStatus) error {
	const op = "memory.Purchases.Transition"

	if err := domain.CheckPurchaseTransition(from, to); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if err := r.store.checkFault("Purchases.Transition", ids, from, to); err != nil {
		return err
	}

	st, done := r.view()
	defer done()

	for _, id := range ids {
		p, ok := st.purchases[id]
		if !ok || p.Status != from {
			return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
		}
	}

	now := r.store.clock.Now()
	for _, id := range ids {
		p := st.purchases[id]
		p.Status = to
		p.UpdatedAt = now
		st.purchases[id] = p
	}

	return nil
}

func (r *purchases) MarkUsed(_ context.Context, id uuid.UUID, at time.Time, by string) error {
	const op = "memory.Purchases.MarkUsed"

	if err := r.store.checkFault("Purchases.MarkUsed", id); err != nil {
		return err
	}

	st, done := r.view()
	defer done()

	p, ok := st.purchases[id]
	if !ok || p.Status != domain.PurchaseActive {
		return fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	p.Status = domain.PurchaseUsed
	p.UsedAt = &at
	p.UsedBy = by
	p.UpdatedAt = r.store.clock.Now()
	st.purchases[id] = p

	return nil
}

func byCreated(a, b domain.Purchase) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func byID(a, b domain.Purchase) bool {
	return a.ID.String() < b.ID.String()
}

func collect(st *state, keep func(domain.Purchase) bool, less func(a, b domain.Purchase) bool) []domain.Purchase {
	var out []domain.Purchase
	for _, p := range st.purchases {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
