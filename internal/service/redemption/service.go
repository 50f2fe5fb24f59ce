// Package redemption validates presented credentials at the gate and marks
// them used.
package redemption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/credential"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/observability"
	"github.com/kirinyoku/tix-engine/internal/repository"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
	"github.com/kirinyoku/tix-engine/internal/uow"
	"go.opentelemetry.io/otel/trace"
)

var expectedErrs = []error{
	domain.ErrNotFound,
	domain.ErrAlreadyCancelled,
	domain.ErrAlreadyUsed,
	domain.ErrInvalidTransition,
	domain.ErrOfferingCancelled,
	domain.ErrBoardingClosed,
	domain.ErrExpired,
	domain.ErrInvalidProof,
}

type Result struct {
	Valid       bool
	PurchaseID  uuid.UUID
	OfferingID  int64
	Seat        string
	ValidatedAt time.Time
}

type Service struct {
	uow    *uow.UoW
	clock  clock.Clock
	issuer *credential.Issuer
	cache  *redisrepo.Cache
	log    *slog.Logger
	tracer trace.Tracer
}

func New(
	store repository.Store,
	clk clock.Clock,
	issuer *credential.Issuer,
	cache *redisrepo.Cache,
	logger *slog.Logger,
) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		uow:    uow.NewUoW(store),
		clock:  clk,
		issuer: issuer,
		cache:  cache,
		log:    logger.With(slog.String("component", "redemption")),
		tracer: observability.Tracer("tix-engine/redemption"),
	}
}

// Redeem validates a credential and moves its purchase from ACTIVE to USED.
//
// Parameters:
//   - ctx: request-scoped context.
//   - cred: the credential printed on the ticket.
//   - agent: identity of the gate agent, stored on the purchase.
//   - proof: optional proof to check against the credential; empty skips the check.
//
// Returns:
//   - *Result: the redeemed purchase.
//   - error: domain.ErrPurchaseNotFound, domain.ErrAlreadyCancelled, domain.ErrAlreadyUsed,
//     domain.ErrOfferingCancelled, domain.ErrBoardingClosed, domain.ErrExpired
//     or domain.ErrInvalidProof.
func (s *Service) Redeem(ctx context.Context, cred, agent, proof string) (res *Result, err error) {
	const op = "service.redemption.Redeem"

	ctx, span := s.tracer.Start(ctx, "redemption.redeem")
	defer func() { observability.EndSpan(span, err, expectedErrs...) }()

	now := s.clock.Now()

	err = s.uow.DoWithOpts(ctx, &repository.TxOptions{IsoLevel: repository.IsoReadCommitted}, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		p, err := tx.Purchases().GetByCredentialForUpdate(ctx, cred)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.ErrPurchaseNotFound)
			}
			return storageErr(op, err)
		}

		span.SetAttributes(
			observability.PurchaseIDKey.String(p.ID.String()),
			observability.OfferingIDKey.Int64(p.OfferingID),
		)

		if proof != "" && !s.issuer.Verify(p.ID, p.Credential, p.OfferingID, proof) {
			return fmt.Errorf("%s:%w", op, domain.ErrInvalidProof)
		}

		switch {
		case p.Status.IsTerminal():
			return fmt.Errorf("%s:%w", op, p.Status.TerminalError())
		case !p.IsRedeemable():
			return fmt.Errorf("%s:%w: purchase is %s", op, domain.ErrInvalidTransition, p.Status)
		}

		o, err := tx.Offerings().Get(ctx, p.OfferingID)
		if err != nil {
			return storageErr(op, err)
		}

		if err := checkValidity(o, now); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := tx.Purchases().MarkUsed(ctx, p.ID, now, agent); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return fmt.Errorf("%s:%w", op, domain.ErrInvalidTransition)
			}
			return storageErr(op, err)
		}

		res = &Result{
			Valid:       true,
			PurchaseID:  p.ID,
			OfferingID:  p.OfferingID,
			Seat:        p.Seat,
			ValidatedAt: now,
		}

		after(func(ctx context.Context) {
			if err := s.cache.InvalidateOffering(ctx, p.OfferingID); err != nil {
				s.log.WarnContext(ctx, "cache invalidation failed",
					slog.Int64("offering_id", p.OfferingID), slog.Any("err", err))
			}
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// checkValidity applies the rules that narrow an ACTIVE ticket's validity.
// A cancelled offering admits no one; its ACTIVE tickets are still owed a
// bulk refund. Transport closes boarding at departure, and nothing is
// admitted after the end time.
func checkValidity(o *domain.Offering, now time.Time) error {
	if o.IsCancelled() {
		return domain.ErrOfferingCancelled
	}

	if o.IsTransport() && now.After(o.StartsAt) {
		return domain.ErrBoardingClosed
	}

	if o.EndsAt != nil && now.After(*o.EndsAt) {
		return domain.ErrExpired
	}

	return nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, repository.ErrRetryable) {
		return fmt.Errorf("%s:%w: %w", op, domain.ErrRetryable, err)
	}
	return fmt.Errorf("%s:%w", op, err)
}
