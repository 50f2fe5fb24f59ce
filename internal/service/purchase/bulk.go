package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/kirinyoku/tix-engine/internal/observability"
	"github.com/kirinyoku/tix-engine/internal/repository"
	"github.com/kirinyoku/tix-engine/internal/service/refund"
	"github.com/kirinyoku/tix-engine/internal/uow"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type RefundFailure struct {
	PurchaseID uuid.UUID
	AccountID  int64
	Reason     string
}

type BulkCancelResult struct {
	RefundsProcessed   int
	TotalRefundedCents int64
	// Skipped counts purchases that left ACTIVE between listing and refunding,
	// for example because the holder cancelled them first.
	Skipped  int
	Failures []RefundFailure
}

// CancelOffering cancels an offering and refunds every ACTIVE purchase.
//
// The offering is first marked CANCELLED with no remaining capacity, which
// stops new sales. Each refund then runs as its own unit of work on a bounded
// worker pool, so one failing refund does not undo or block the others.
// Running it again refunds whatever a previous run left behind.
//
// Parameters:
//   - ctx: request-scoped context.
//   - offeringID: offering to cancel.
//   - refundPercent: share of the unit price credited back, 0 to 100.
//
// Returns:
//   - *BulkCancelResult: counts, total and the failed refunds sorted by purchase id.
//   - error: domain.ErrInvalidRefundPercent, domain.ErrOfferingNotFound, or a
//     storage error from marking the offering or listing its purchases.
func (s *Service) CancelOffering(
	ctx context.Context,
	offeringID int64,
	refundPercent int,
) (res *BulkCancelResult, err error) {
	const op = "service.purchase.CancelOffering"

	ctx, span := s.tracer.Start(ctx, "purchase.cancel_offering", trace.WithAttributes(
		observability.OfferingIDKey.Int64(offeringID),
	))
	defer func() { observability.EndSpan(span, err, expectedErrs...) }()

	if refundPercent < 0 || refundPercent > 100 {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrInvalidRefundPercent)
	}

	now := s.clock.Now()

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		if _, err := tx.Offerings().GetForUpdate(ctx, offeringID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.ErrOfferingNotFound)
			}
			return storageErr(op, err)
		}

		if err := tx.Offerings().MarkCancelled(ctx, offeringID); err != nil {
			return storageErr(op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	active, err := s.store.Repos().Purchases().ListByOffering(ctx, offeringID, domain.PurchaseActive)
	if err != nil {
		return nil, storageErr(op, err)
	}

	res = &BulkCancelResult{}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.cfg.BulkCancelWorkers)

	for _, p := range active {
		g.Go(func() error {
			amount, err := s.refundOne(ctx, p, refundPercent)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				res.RefundsProcessed++
				res.TotalRefundedCents += amount
			case errors.Is(err, domain.ErrInvalidTransition):
				res.Skipped++
			default:
				res.Failures = append(res.Failures, RefundFailure{
					PurchaseID: p.ID,
					AccountID:  p.AccountID,
					Reason:     err.Error(),
				})
				s.log.WarnContext(ctx, "offering cancellation refund failed",
					slog.Int64("offering_id", offeringID),
					slog.String("purchase_id", p.ID.String()),
					slog.Int64("account_id", p.AccountID),
					slog.Any("err", err),
				)
			}

			// Failures are collected, never returned: the group must not stop early.
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Failures, func(i, j int) bool {
		return res.Failures[i].PurchaseID.String() < res.Failures[j].PurchaseID.String()
	})

	s.log.InfoContext(ctx, "offering cancelled",
		slog.Int64("offering_id", offeringID),
		slog.Int("refunds_processed", res.RefundsProcessed),
		slog.Int64("total_refunded_cents", res.TotalRefundedCents),
		slog.Int("skipped", res.Skipped),
		slog.Int("failures", len(res.Failures)),
	)

	s.offeringChanged(ctx, offeringID)
	events.PublishBestEffort(ctx, s.events, s.log, events.Event{
		Type:        events.OfferingCancelled,
		OfferingID:  offeringID,
		AmountCents: res.TotalRefundedCents,
		OccurredAt:  now,
	})

	span.SetAttributes(observability.AmountCentsKey.Int64(res.TotalRefundedCents))

	return res, nil
}

// refundOne refunds a single purchase of a cancelled offering in its own
// unit of work.
func (s *Service) refundOne(ctx context.Context, p domain.Purchase, percent int) (int64, error) {
	const op = "service.purchase.refundOne"

	amount := refund.PercentOf(p.UnitPriceCents, percent)
	now := s.clock.Now()

	err := s.uow.DoWithOpts(ctx, &repository.TxOptions{IsoLevel: repository.IsoReadCommitted}, func(
		ctx context.Context,
		tx repository.Repos,
		_ func(uow.AfterCommit),
	) error {
		if err := tx.Purchases().Transition(ctx, []uuid.UUID{p.ID}, domain.PurchaseActive, domain.PurchaseCancelled); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return fmt.Errorf("%s:%w", op, domain.ErrInvalidTransition)
			}
			return storageErr(op, err)
		}

		if err := tx.Ledger().Credit(ctx, p.AccountID, amount); err != nil {
			return fmt.Errorf("%s:%w: %w", op, domain.ErrPaymentFailed, err)
		}

		parent := p.TransactionRef
		if err := tx.Transactions().Create(ctx, domain.Transaction{
			Ref:         uuid.New(),
			AccountID:   p.AccountID,
			AmountCents: amount,
			Type:        domain.TxEventCancellationRefund,
			Status:      domain.TxSuccess,
			ParentRef:   &parent,
			CreatedAt:   now,
		}); err != nil {
			return storageErr(op, err)
		}

		if _, err := tx.Transactions().CancelIfSettled(ctx, p.TransactionRef); err != nil {
			return storageErr(op, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return amount, nil
}
