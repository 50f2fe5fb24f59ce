package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/kirinyoku/tix-engine/internal/observability"
	"github.com/kirinyoku/tix-engine/internal/repository"
	"github.com/kirinyoku/tix-engine/internal/service/inventory"
	"github.com/kirinyoku/tix-engine/internal/uow"
	"go.opentelemetry.io/otel/trace"
)

type BuyRequest struct {
	AccountID  int64
	OfferingID int64
	Quantity   int
	// Seat is the seat label for reserved seating; empty otherwise.
	Seat string
}

type BuyResult struct {
	TransactionRef   uuid.UUID
	Purchases        []domain.Purchase
	TotalAmountCents int64
}

// Buy sells req.Quantity units of an offering to an account.
//
// Everything after the rate check runs in one READ COMMITTED unit of work
// with the account row locked, so cap and balance checks of one account are
// serialized. The conditional decrement of remaining capacity serializes
// buyers of one offering.
//
// Parameters:
//   - ctx: request-scoped context.
//   - req: buyer, offering, quantity and optional seat.
//
// Returns:
//   - *BuyResult: the transaction reference, the ACTIVE purchases and the total charged.
//   - error: one of the domain errors for rate limit, blocked account, sales window,
//     funds, cap, seat or sold out. On any error nothing was charged or reserved.
func (s *Service) Buy(ctx context.Context, req BuyRequest) (res *BuyResult, err error) {
	const op = "service.purchase.Buy"

	ctx, span := s.tracer.Start(ctx, "purchase.buy", trace.WithAttributes(
		observability.AccountIDKey.Int64(req.AccountID),
		observability.OfferingIDKey.Int64(req.OfferingID),
		observability.QuantityKey.Int(req.Quantity),
	))
	defer func() { observability.EndSpan(span, err, expectedErrs...) }()

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrInvalidQuantity)
	}

	if req.Seat != "" && req.Quantity != 1 {
		return nil, fmt.Errorf("%s:%w: a seat selection buys exactly one ticket", op, domain.ErrInvalidQuantity)
	}

	if s.guard != nil {
		if err := s.guard.Check(ctx, req.AccountID); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	now := s.clock.Now()
	txRef := uuid.New()

	var purchases []domain.Purchase
	var total int64

	err = s.uow.DoWithOpts(ctx, &repository.TxOptions{IsoLevel: repository.IsoReadCommitted}, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		acct, err := tx.Ledger().GetAccountForUpdate(ctx, req.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.ErrAccountNotFound)
			}
			return storageErr(op, err)
		}

		if acct.Blocked {
			return fmt.Errorf("%s:%w", op, domain.ErrAccountBlocked)
		}

		o, err := tx.Offerings().Get(ctx, req.OfferingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.ErrOfferingNotFound)
			}
			return storageErr(op, err)
		}

		if err := o.CheckSalesWindow(now); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		total = o.UnitPriceCents * int64(req.Quantity)
		if acct.BalanceCents < total {
			return fmt.Errorf("%s:%w", op, domain.ErrInsufficientFunds)
		}

		if err := s.checkCap(ctx, tx, o, req); err != nil {
			return err
		}

		if err := checkSeat(ctx, tx, o, req.Seat); err != nil {
			return err
		}

		if _, err := inventory.Reserve(ctx, tx, o.ID, req.Quantity, now); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := tx.Transactions().Create(ctx, domain.Transaction{
			Ref:         txRef,
			AccountID:   req.AccountID,
			AmountCents: total,
			Type:        domain.TxTicketPurchase,
			Status:      domain.TxPending,
			CreatedAt:   now,
		}); err != nil {
			return storageErr(op, err)
		}

		purchases, err = s.newPurchases(txRef, o, req, now)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := tx.Purchases().CreateBatch(ctx, purchases); err != nil {
			if errors.Is(err, repository.ErrConflict) && req.Seat != "" {
				return fmt.Errorf("%s:%w", op, domain.ErrSeatTaken)
			}
			return storageErr(op, err)
		}

		if err := tx.Ledger().Debit(ctx, req.AccountID, total); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return fmt.Errorf("%s:%w", op, domain.ErrInsufficientFunds)
			}
			return fmt.Errorf("%s:%w: %w", op, domain.ErrPaymentFailed, err)
		}

		ids := make([]uuid.UUID, len(purchases))
		for i := range purchases {
			ids[i] = purchases[i].ID
		}

		if err := tx.Purchases().Transition(ctx, ids, domain.PurchasePending, domain.PurchaseActive); err != nil {
			return storageErr(op, err)
		}

		if err := tx.Transactions().SetStatus(ctx, txRef, domain.TxPending, domain.TxSuccess); err != nil {
			return storageErr(op, err)
		}

		for i := range purchases {
			purchases[i].Status = domain.PurchaseActive
		}

		after(func(ctx context.Context) {
			s.afterBuy(ctx, req, txRef, total, ids, now)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &BuyResult{
		TransactionRef:   txRef,
		Purchases:        purchases,
		TotalAmountCents: total,
	}, nil
}

func (s *Service) checkCap(ctx context.Context, tx repository.Repos, o *domain.Offering, req BuyRequest) error {
	const op = "service.purchase.checkCap"

	limit := o.PerAccountCap
	if limit <= 0 {
		limit = s.cfg.DefaultPerAccountCap
	}

	held, err := tx.Purchases().CountHeld(ctx, req.AccountID, o.ID)
	if err != nil {
		return storageErr(op, err)
	}

	if held+req.Quantity > limit {
		return fmt.Errorf("%s:%w: holds %d of %d", op, domain.ErrCapExceeded, held, limit)
	}

	return nil
}

// checkSeat is the in-transaction seat pre-check. The unique index on live
// seats stays authoritative for buyers racing past it.
func checkSeat(ctx context.Context, tx repository.Repos, o *domain.Offering, seat string) error {
	const op = "service.purchase.checkSeat"

	if !o.Subtype.RequiresSeat() {
		if seat != "" {
			return fmt.Errorf("%s:%w", op, domain.ErrSeatNotAllowed)
		}
		return nil
	}

	if seat == "" {
		return fmt.Errorf("%s:%w", op, domain.ErrSeatRequired)
	}

	taken, err := tx.Purchases().SeatHeld(ctx, o.ID, seat)
	if err != nil {
		return storageErr(op, err)
	}

	if taken {
		return fmt.Errorf("%s:%w", op, domain.ErrSeatTaken)
	}

	return nil
}

func (s *Service) newPurchases(
	txRef uuid.UUID,
	o *domain.Offering,
	req BuyRequest,
	now time.Time,
) ([]domain.Purchase, error) {
	out := make([]domain.Purchase, 0, req.Quantity)
	for range req.Quantity {
		id := uuid.New()

		cred, proof, err := s.issuer.Issue(id, o.ID)
		if err != nil {
			return nil, err
		}

		out = append(out, domain.Purchase{
			ID:             id,
			TransactionRef: txRef,
			OfferingID:     o.ID,
			AccountID:      req.AccountID,
			Credential:     cred,
			Proof:          proof,
			Seat:           req.Seat,
			UnitPriceCents: o.UnitPriceCents,
			Status:         domain.PurchasePending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	return out, nil
}

func (s *Service) afterBuy(
	ctx context.Context,
	req BuyRequest,
	txRef uuid.UUID,
	total int64,
	ids []uuid.UUID,
	now time.Time,
) {
	if s.guard != nil {
		if err := s.guard.Record(ctx, req.AccountID); err != nil {
			s.log.WarnContext(ctx, "rate guard record failed",
				slog.Int64("account_id", req.AccountID), slog.Any("err", err))
		}
	}

	s.offeringChanged(ctx, req.OfferingID)

	events.PublishBestEffort(ctx, s.events, s.log, events.Event{
		Type:           events.PurchaseCompleted,
		OfferingID:     req.OfferingID,
		TransactionRef: &txRef,
		AccountID:      req.AccountID,
		AmountCents:    total,
		Purchases:      ids,
		OccurredAt:     now,
	})
}
