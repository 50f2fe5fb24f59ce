package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/repository"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
)

type Config struct {
	OfferingSummaryTTL time.Duration
	CountsTTL          time.Duration
	DefaultPage        int
	MaxPage            int
}

type Service struct {
	store   repository.Store
	queries repository.Queries
	cache   *redisrepo.Cache
	cfg     Config
}

func New(store repository.Store, queries repository.Queries, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.OfferingSummaryTTL <= 0 {
		cfg.OfferingSummaryTTL = 60 * time.Second
	}

	if cfg.CountsTTL <= 0 {
		cfg.CountsTTL = 15 * time.Second
	}

	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 50
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 200
	}

	return &Service{
		store:   store,
		queries: queries,
		cache:   cache,
		cfg:     cfg,
	}
}

// GetOffering retrieves an offering by its ID, utilizing a caching layer to improve performance.
// Writes that change the offering invalidate the cached copy after commit.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the offering to retrieve.
//
// Returns:
//   - *domain.Offering: the retrieved offering.
//   - error: domain.ErrOfferingNotFound if the offering is not found.
func (s *Service) GetOffering(ctx context.Context, id int64) (*domain.Offering, error) {
	const op = "service.query.GetOffering"

	o, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyOfferingSummary(id),
		s.cfg.OfferingSummaryTTL,
		func(ctx context.Context) (domain.Offering, error) {
			o, err := s.store.Repos().Offerings().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Offering{}, domain.ErrOfferingNotFound
				}

				return domain.Offering{}, err
			}

			return *o, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &o, nil
}

// OfferingCounts retrieves the number of purchases by status for an offering.
//
// Returns:
//   - *domain.OfferingCounts: capacity figures and per-status counts.
//   - error: domain.ErrOfferingNotFound if the offering is not found.
func (s *Service) OfferingCounts(ctx context.Context, offeringID int64) (*domain.OfferingCounts, error) {
	const op = "service.query.OfferingCounts"

	counts, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyOfferingCounts(offeringID),
		s.cfg.CountsTTL,
		func(ctx context.Context) (domain.OfferingCounts, error) {
			c, err := s.queries.OfferingCounts(ctx, offeringID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.OfferingCounts{}, domain.ErrOfferingNotFound
				}

				return domain.OfferingCounts{}, err
			}

			return *c, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &counts, nil
}

// ListOfferings lists offerings by start time. Pagination is supported via
// limit and offset; default and max limits are enforced.
func (s *Service) ListOfferings(ctx context.Context, limit, offset int) ([]domain.Offering, error) {
	const op = "service.query.ListOfferings"

	limit, offset = s.page(limit, offset)

	out, err := s.queries.ListOfferings(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// GetTransaction retrieves a transaction with its purchases. Only the
// owning account may read it; anyone else gets not found.
//
// Returns:
//   - *domain.TransactionWithPurchases: the transaction and its purchases.
//   - error: domain.ErrTransactionNotFound if it does not exist or is not owned by accountID.
func (s *Service) GetTransaction(
	ctx context.Context,
	accountID int64,
	ref uuid.UUID,
) (*domain.TransactionWithPurchases, error) {
	const op = "service.query.GetTransaction"

	t, err := s.queries.GetTransactionWithPurchases(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.ErrTransactionNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if t.Transaction.AccountID != accountID {
		return nil, fmt.Errorf("%s:%w: %w", op, domain.ErrTransactionNotFound, ErrNotOwner)
	}

	return t, nil
}

// ListPurchases lists the account's purchases, newest first.
func (s *Service) ListPurchases(ctx context.Context, accountID int64, limit, offset int) ([]domain.Purchase, error) {
	const op = "service.query.ListPurchases"

	limit, offset = s.page(limit, offset)

	out, err := s.store.Repos().Purchases().ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.DefaultPage
	}

	if limit > s.cfg.MaxPage {
		limit = s.cfg.MaxPage
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
