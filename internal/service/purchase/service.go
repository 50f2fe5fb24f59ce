// Package purchase coordinates buying and refunding tickets. Each operation
// runs inventory, ledger and purchase writes in one unit of work, so a
// failure at any step leaves no trace.
package purchase

import (
	"context"
	"log/slog"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/credential"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/kirinyoku/tix-engine/internal/observability"
	"github.com/kirinyoku/tix-engine/internal/repository"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
	"github.com/kirinyoku/tix-engine/internal/service/ratelimit"
	"github.com/kirinyoku/tix-engine/internal/service/refund"
	"github.com/kirinyoku/tix-engine/internal/uow"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	// DefaultPerAccountCap applies to offerings that do not set their own cap.
	DefaultPerAccountCap int
	// BulkCancelWorkers bounds how many refunds of a cancelled offering run
	// at the same time.
	BulkCancelWorkers int
}

type Deps struct {
	Store  repository.Store
	Clock  clock.Clock
	Policy *refund.Policy
	Guard  ratelimit.Guard
	Issuer *credential.Issuer
	Cache  *redisrepo.Cache
	PubSub *redisrepo.OfferingsPubSub
	Events events.Publisher
	Logger *slog.Logger
}

type Service struct {
	store  repository.Store
	uow    *uow.UoW
	clock  clock.Clock
	policy *refund.Policy
	guard  ratelimit.Guard
	issuer *credential.Issuer
	cache  *redisrepo.Cache
	pubsub *redisrepo.OfferingsPubSub
	events events.Publisher
	log    *slog.Logger
	tracer trace.Tracer
	cfg    Config
}

func New(d Deps, cfg Config) *Service {
	if cfg.DefaultPerAccountCap <= 0 {
		cfg.DefaultPerAccountCap = 10
	}

	if cfg.BulkCancelWorkers <= 0 {
		cfg.BulkCancelWorkers = 8
	}

	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}

	if d.Policy == nil {
		d.Policy = refund.NewPolicy(refund.DefaultConfig())
	}

	if d.Events == nil {
		d.Events = events.Nop{}
	}

	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return &Service{
		store:  d.Store,
		uow:    uow.NewUoW(d.Store),
		clock:  d.Clock,
		policy: d.Policy,
		guard:  d.Guard,
		issuer: d.Issuer,
		cache:  d.Cache,
		pubsub: d.PubSub,
		events: d.Events,
		log:    d.Logger.With(slog.String("component", "purchase")),
		tracer: observability.Tracer("tix-engine/purchase"),
		cfg:    cfg,
	}
}

// offeringChanged drops cached views of the offering and tells other nodes.
// It runs after commit; failures are logged only.
func (s *Service) offeringChanged(ctx context.Context, offeringID int64) {
	if err := s.cache.InvalidateOffering(ctx, offeringID); err != nil {
		s.log.WarnContext(ctx, "cache invalidation failed",
			slog.Int64("offering_id", offeringID), slog.Any("err", err))
	}

	if s.pubsub == nil {
		return
	}

	if err := s.pubsub.PublishOfferingChanged(ctx, offeringID); err != nil {
		s.log.WarnContext(ctx, "offering change fan-out failed",
			slog.Int64("offering_id", offeringID), slog.Any("err", err))
	}
}
