package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/observability"
	"github.com/kirinyoku/tix-engine/internal/repository"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
	"github.com/kirinyoku/tix-engine/internal/uow"
	"go.opentelemetry.io/otel/trace"
)

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.OfferingsPubSub
	uow    *uow.UoW
	clock  clock.Clock
	log    *slog.Logger
	tracer trace.Tracer
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.OfferingsPubSub,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
		clock:  clk,
		log:    logger.With(slog.String("component", "admin")),
		tracer: observability.Tracer("tix-engine/admin"),
	}
}

// CreateOffering validates and stores a new offering with its full capacity
// available.
//
// Parameters:
//   - ctx: request-scoped context.
//   - o: the offering; ID, remaining capacity and status are ignored.
//
// Returns:
//   - int64: the created offering ID.
//   - error: domain.ErrInvalidOffering if the offering fails validation.
func (s *Service) CreateOffering(ctx context.Context, o domain.Offering) (id int64, err error) {
	const op = "service.admin.CreateOffering"

	ctx, span := s.tracer.Start(ctx, "admin.create_offering")
	defer func() { observability.EndSpan(span, err, domain.ErrInvalidOffering) }()

	if err := o.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	o.CreatedAt = s.clock.Now()

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		var err error
		id, err = tx.Offerings().Create(ctx, o)
		if err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return fmt.Errorf("%s: %w", op, domain.ErrInvalidOffering)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.InfoContext(ctx, "offering created",
		slog.Int64("offering_id", id),
		slog.String("category", string(o.Category)),
		slog.Int("capacity", o.TotalCapacity),
	)

	return id, nil
}

// Restock adds capacity to an active offering. Total and remaining capacity
// grow together in one statement.
//
// Returns:
//   - *domain.Offering: the offering after the restock.
//   - error: domain.ErrOfferingNotFound, or domain.ErrOfferingCancelled when the
//     offering no longer sells.
func (s *Service) Restock(ctx context.Context, offeringID int64, qty int) (*domain.Offering, error) {
	const op = "service.admin.Restock"

	if qty <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrRestockQuantity)
	}

	var out *domain.Offering
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if _, err := tx.Offerings().GetForUpdate(ctx, offeringID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, domain.ErrOfferingNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		o, err := tx.Offerings().Restock(ctx, offeringID, qty)
		if err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return fmt.Errorf("%s: %w", op, domain.ErrOfferingCancelled)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		out = o

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateOffering(ctx, offeringID)
			if s.pubsub != nil {
				_ = s.pubsub.PublishOfferingChanged(ctx, offeringID)
			}
		})
		return nil
	})

	return out, err
}

// CreateAccount opens a ledger account with an initial balance.
func (s *Service) CreateAccount(ctx context.Context, balanceCents int64, blocked bool) (int64, error) {
	const op = "service.admin.CreateAccount"

	if balanceCents < 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrNegativeBalance)
	}

	id, err := s.store.Repos().Ledger().CreateAccount(ctx, balanceCents, blocked)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// SetBlocked blocks or unblocks an account. Blocked accounts cannot buy.
func (s *Service) SetBlocked(ctx context.Context, accountID int64, blocked bool) error {
	const op = "service.admin.SetBlocked"

	if err := s.store.Repos().Ledger().SetBlocked(ctx, accountID, blocked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, domain.ErrAccountNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.InfoContext(ctx, "account block changed",
		slog.Int64("account_id", accountID), slog.Bool("blocked", blocked))

	return nil
}

func (s *Service) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	const op = "service.admin.GetAccount"

	a, err := s.store.Repos().Ledger().GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}
