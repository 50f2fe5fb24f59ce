package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

type queries struct {
	store *Store
}

func (q *queries) ListOfferings(_ context.Context, limit, offset int) ([]domain.Offering, error) {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	out := make([]domain.Offering, 0, len(q.store.st.offerings))
	for _, o := range q.store.st.offerings {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
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

func (q *queries) OfferingCounts(_ context.Context, offeringID int64) (*domain.OfferingCounts, error) {
	const op = "memory.Queries.OfferingCounts"

	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	o, ok := q.store.st.offerings[offeringID]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	c := domain.OfferingCounts{Total: o.TotalCapacity, Remaining: o.RemainingCapacity}
	for _, p := range q.store.st.purchases {
		if p.OfferingID != offeringID {
			continue
		}
		switch p.Status {
		case domain.PurchaseActive:
			c.Active++
		case domain.PurchaseUsed:
			c.Used++
		case domain.PurchaseCancelled:
			c.Cancelled++
		}
	}
	return &c, nil
}

func (q *queries) GetTransactionWithPurchases(
	_ context.Context,
	ref uuid.UUID,
) (*domain.TransactionWithPurchases, error) {
	const op = "memory.Queries.GetTransactionWithPurchases"

	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	t, ok := q.store.st.transactions[ref]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	ps := collect(q.store.st, func(p domain.Purchase) bool { return p.TransactionRef == ref }, byCreated)
	return &domain.TransactionWithPurchases{Transaction: t, Purchases: ps}, nil
}

var _ repository.Queries = (*queries)(nil)
