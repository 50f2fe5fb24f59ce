package purchase

import (
	"context"
	"errors"
	"fmt"
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

type CancelResult struct {
	RefundAmountCents    int64
	RefundTransactionRef uuid.UUID
	CancelledPurchases   []uuid.UUID
}

// Cancel refunds the ACTIVE purchases of one of the account's transactions.
//
// Parameters:
//   - ctx: request-scoped context.
//   - accountID: the caller; the transaction must belong to it.
//   - txRef: reference of the TICKET_PURCHASE transaction.
//
// Returns:
//   - *CancelResult: the credited amount and the refund transaction reference.
//   - error: domain.ErrTransactionNotFound, domain.ErrAlreadyCancelled,
//     domain.ErrAlreadyUsed, domain.ErrOfferingCancelled when the organizer
//     cancelled the offering, or a *domain.RefundDeniedError when the refund
//     window has closed. A repeated cancel never credits twice.
func (s *Service) Cancel(ctx context.Context, accountID int64, txRef uuid.UUID) (res *CancelResult, err error) {
	const op = "service.purchase.Cancel"

	ctx, span := s.tracer.Start(ctx, "purchase.cancel", trace.WithAttributes(
		observability.AccountIDKey.Int64(accountID),
		observability.TransactionRefKey.String(txRef.String()),
	))
	defer func() { observability.EndSpan(span, err, expectedErrs...) }()

	now := s.clock.Now()
	refundRef := uuid.New()

	var (
		offeringID int64
		amount     int64
		cancelled  []uuid.UUID
	)

	err = s.uow.DoWithOpts(ctx, &repository.TxOptions{IsoLevel: repository.IsoReadCommitted}, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		t, err := tx.Transactions().GetForUpdate(ctx, txRef)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.ErrTransactionNotFound)
			}
			return storageErr(op, err)
		}

		if t.AccountID != accountID {
			return fmt.Errorf("%s:%w", op, domain.ErrTransactionNotFound)
		}

		if t.Type != domain.TxTicketPurchase {
			return fmt.Errorf("%s:%w: %s transactions cannot be cancelled", op, domain.ErrInvalidTransition, t.Type)
		}

		ps, err := tx.Purchases().ListByTransactionForUpdate(ctx, txRef)
		if err != nil {
			return storageErr(op, err)
		}

		active := activeOnly(ps)
		if len(active) == 0 {
			return fmt.Errorf("%s:%w", op, nothingToCancel(ps))
		}

		offeringID = active[0].OfferingID

		o, err := tx.Offerings().Get(ctx, offeringID)
		if err != nil {
			return storageErr(op, err)
		}

		// Holders of a cancelled offering are refunded by CancelOffering at
		// the organizer's percentage, including its retries.
		if o.IsCancelled() {
			return fmt.Errorf("%s:%w", op, domain.ErrOfferingCancelled)
		}

		amount, err = s.refundTotal(o, active, now)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		cancelled = make([]uuid.UUID, len(active))
		for i, p := range active {
			cancelled[i] = p.ID
		}

		if err := tx.Purchases().Transition(ctx, cancelled, domain.PurchaseActive, domain.PurchaseCancelled); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return fmt.Errorf("%s:%w", op, domain.ErrInvalidTransition)
			}
			return storageErr(op, err)
		}

		// Fails with ErrOfferingCancelled if the offering was cancelled after it was read.
		if err := inventory.Release(ctx, tx, o.ID, len(cancelled)); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := tx.Ledger().Credit(ctx, accountID, amount); err != nil {
			return fmt.Errorf("%s:%w: %w", op, domain.ErrPaymentFailed, err)
		}

		if err := tx.Transactions().Create(ctx, domain.Transaction{
			Ref:         refundRef,
			AccountID:   accountID,
			AmountCents: amount,
			Type:        domain.TxTicketRefund,
			Status:      domain.TxSuccess,
			ParentRef:   &txRef,
			CreatedAt:   now,
		}); err != nil {
			return storageErr(op, err)
		}

		if _, err := tx.Transactions().CancelIfSettled(ctx, txRef); err != nil {
			return storageErr(op, err)
		}

		after(func(ctx context.Context) {
			s.offeringChanged(ctx, offeringID)
			events.PublishBestEffort(ctx, s.events, s.log, events.Event{
				Type:           events.PurchaseRefunded,
				OfferingID:     offeringID,
				TransactionRef: &refundRef,
				AccountID:      accountID,
				AmountCents:    amount,
				Purchases:      cancelled,
				OccurredAt:     now,
			})
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(observability.AmountCentsKey.Int64(amount))

	return &CancelResult{
		RefundAmountCents:    amount,
		RefundTransactionRef: refundRef,
		CancelledPurchases:   cancelled,
	}, nil
}

// refundTotal sums the per-purchase refunds. Any purchase outside every
// refund window denies the whole cancellation.
func (s *Service) refundTotal(o *domain.Offering, active []domain.Purchase, now time.Time) (int64, error) {
	var total int64
	for _, p := range active {
		d := s.policy.Evaluate(o, p.UnitPriceCents, now)
		if !d.Refundable {
			return 0, d.Denied()
		}
		total += d.AmountCents
	}
	return total, nil
}

func activeOnly(ps []domain.Purchase) []domain.Purchase {
	var out []domain.Purchase
	for _, p := range ps {
		if p.Status == domain.PurchaseActive {
			out = append(out, p)
		}
	}
	return out
}

// nothingToCancel explains why a transaction has no ACTIVE purchase left.
func nothingToCancel(ps []domain.Purchase) error {
	for _, p := range ps {
		if p.Status == domain.PurchaseCancelled {
			return domain.ErrAlreadyCancelled
		}
	}
	if len(ps) == 0 {
		return domain.ErrPurchaseNotFound
	}
	return domain.ErrAlreadyUsed
}
