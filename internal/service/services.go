package service

import (
	"log/slog"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/credential"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/kirinyoku/tix-engine/internal/repository"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
	"github.com/kirinyoku/tix-engine/internal/service/admin"
	"github.com/kirinyoku/tix-engine/internal/service/purchase"
	"github.com/kirinyoku/tix-engine/internal/service/query"
	"github.com/kirinyoku/tix-engine/internal/service/ratelimit"
	"github.com/kirinyoku/tix-engine/internal/service/redemption"
	"github.com/kirinyoku/tix-engine/internal/service/refund"
)

type Services struct {
	Purchase   *purchase.Service
	Redemption *redemption.Service
	Query      *query.Service
	Admin      *admin.Service
}

type Config struct {
	Purchase purchase.Config
	// Refund is the refund policy; nil selects refund.DefaultConfig.
	Refund *refund.Config
	Query  query.Config
}

// Deps are the collaborators shared by the services. Cache and PubSub are
// nil when Redis is not configured.
type Deps struct {
	Store   repository.Store
	Queries repository.Queries
	Clock   clock.Clock
	Guard   ratelimit.Guard
	Issuer  *credential.Issuer
	Cache   *redisrepo.Cache
	PubSub  *redisrepo.OfferingsPubSub
	Events  events.Publisher
	Logger  *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	refundCfg := refund.DefaultConfig()
	if cfg.Refund != nil {
		refundCfg = *cfg.Refund
	}

	return &Services{
		Purchase: purchase.New(purchase.Deps{
			Store:  d.Store,
			Clock:  d.Clock,
			Policy: refund.NewPolicy(refundCfg),
			Guard:  d.Guard,
			Issuer: d.Issuer,
			Cache:  d.Cache,
			PubSub: d.PubSub,
			Events: d.Events,
			Logger: d.Logger,
		}, cfg.Purchase),
		Redemption: redemption.New(d.Store, d.Clock, d.Issuer, d.Cache, d.Logger),
		Query:      query.New(d.Store, d.Queries, d.Cache, cfg.Query),
		Admin:      admin.New(d.Store, d.Cache, d.PubSub, d.Clock, d.Logger),
	}
}
