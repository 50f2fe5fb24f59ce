package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/kirinyoku/tix-engine/internal/observability"
	"github.com/kirinyoku/tix-engine/internal/repository"
	"github.com/kirinyoku/tix-engine/internal/uow"
	"go.opentelemetry.io/otel/trace"
)

// ManualRefund credits an account outside the refund policy and records a
// MANUAL_REFUND transaction. parentRef optionally links it to the
// transaction being compensated.
func (s *Service) ManualRefund(
	ctx context.Context,
	accountID int64,
	amountCents int64,
	parentRef *uuid.UUID,
) (ref uuid.UUID, err error) {
	const op = "service.purchase.ManualRefund"

	ctx, span := s.tracer.Start(ctx, "purchase.manual_refund", trace.WithAttributes(
		observability.AccountIDKey.Int64(accountID),
		observability.AmountCentsKey.Int64(amountCents),
	))
	defer func() { observability.EndSpan(span, err, expectedErrs...) }()

	if amountCents <= 0 {
		return uuid.Nil, fmt.Errorf("%s:%w", op, domain.ErrInvalidAmount)
	}

	now := s.clock.Now()
	ref = uuid.New()

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if _, err := tx.Ledger().GetAccountForUpdate(ctx, accountID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.ErrAccountNotFound)
			}
			return storageErr(op, err)
		}

		if parentRef != nil {
			if _, err := tx.Transactions().Get(ctx, *parentRef); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%s:%w", op, domain.ErrTransactionNotFound)
				}
				return storageErr(op, err)
			}
		}

		if err := tx.Ledger().Credit(ctx, accountID, amountCents); err != nil {
			return storageErr(op, err)
		}

		if err := tx.Transactions().Create(ctx, domain.Transaction{
			Ref:         ref,
			AccountID:   accountID,
			AmountCents: amountCents,
			Type:        domain.TxManualRefund,
			Status:      domain.TxSuccess,
			ParentRef:   parentRef,
			CreatedAt:   now,
		}); err != nil {
			return storageErr(op, err)
		}

		after(func(ctx context.Context) {
			events.PublishBestEffort(ctx, s.events, s.log, events.Event{
				Type:           events.RefundManual,
				TransactionRef: &ref,
				AccountID:      accountID,
				AmountCents:    amountCents,
				OccurredAt:     now,
			})
		})

		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return ref, nil
}
