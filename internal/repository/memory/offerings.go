package memory

import (
	"context"
	"fmt"

	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

type offerings struct{ *repos }

func (r *offerings) Create(_ context.Context, o domain.Offering) (int64, error) {
	const op = "memory.Offerings.Create"

	if err := r.store.checkFault("Offerings.Create"); err != nil {
		return 0, err
	}
	if o.TotalCapacity < 0 || o.UnitPriceCents < 0 {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	st, done := r.view()
	defer done()

	st.nextOffering++
	o.ID = st.nextOffering
	o.RemainingCapacity = o.TotalCapacity
	o.Status = domain.OfferingActive
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.store.clock.Now()
	}
	o.UpdatedAt = o.CreatedAt
	st.offerings[o.ID] = o

	return o.ID, nil
}

func (r *offerings) Get(_ context.Context, id int64) (*domain.Offering, error) {
	const op = "memory.Offerings.Get"

	st, done := r.view()
	defer done()

	o, ok := st.offerings[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	return &o, nil
}

func (r *offerings) GetForUpdate(ctx context.Context, id int64) (*domain.Offering, error) {
	return r.Get(ctx, id)
}

func (r *offerings) Reserve(_ context.Context, id int64, qty int) (int, error) {
	const op = "memory.Offerings.Reserve"

	if err := r.store.checkFault("Offerings.Reserve", id, qty); err != nil {
		return 0, err
	}

	st, done := r.view()
	defer done()

	o, ok := st.offerings[id]
	if !ok || o.Status != domain.OfferingActive || o.RemainingCapacity < qty {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	o.RemainingCapacity -= qty
	o.UpdatedAt = r.store.clock.Now()
	st.offerings[id] = o

	return o.RemainingCapacity, nil
}

func (r *offerings) Release(_ context.Context, id int64, qty int) (int, error) {
	const op = "memory.Offerings.Release"

	if err := r.store.checkFault("Offerings.Release", id, qty); err != nil {
		return 0, err
	}

	st, done := r.view()
	defer done()

	o, ok := st.offerings[id]
	if !ok || o.IsCancelled() || o.RemainingCapacity+qty > o.TotalCapacity {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	o.RemainingCapacity += qty
	o.UpdatedAt = r.store.clock.Now()
	st.offerings[id] = o

	return o.RemainingCapacity, nil
}

func (r *offerings) Restock(_ context.Context, id int64, qty int) (*domain.Offering, error) {
	const op = "memory.Offerings.Restock"

	if err := r.store.checkFault("Offerings.Restock", id, qty); err != nil {
		return nil, err
	}

	st, done := r.view()
	defer done()

	o, ok := st.offerings[id]
	if !ok || o.Status != domain.OfferingActive {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrConditionFailed)
	}

	o.TotalCapacity += qty
	o.RemainingCapacity += qty
	o.UpdatedAt = r.store.clock.Now()
	st.offerings[id] = o

	return &o, nil
}

func (r *offerings) MarkCancelled(_ context.Context, id int64) error {
	const op = "memory.Offerings.MarkCancelled"

	if err := r.store.checkFault("Offerings.MarkCancelled", id); err != nil {
		return err
	}

	st, done := r.view()
	defer done()

	o, ok := st.offerings[id]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	o.Status = domain.OfferingCancelled
	o.RemainingCapacity = 0
	o.UpdatedAt = r.store.clock.Now()
	st.offerings[id] = o

	return nil
}
