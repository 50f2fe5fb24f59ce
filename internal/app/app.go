package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirinyoku/tix-engine/internal/clock"
	"github.com/kirinyoku/tix-engine/internal/config"
	"github.com/kirinyoku/tix-engine/internal/credential"
	"github.com/kirinyoku/tix-engine/internal/events"
	"github.com/kirinyoku/tix-engine/internal/observability"
	"github.com/kirinyoku/tix-engine/internal/postgres"
	"github.com/kirinyoku/tix-engine/internal/redis"
	"github.com/kirinyoku/tix-engine/internal/repository"
	"github.com/kirinyoku/tix-engine/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/tix-engine/internal/repository/postgres"
	"github.com/kirinyoku/tix-engine/internal/repository/postgres/migrations"
	redisrepo "github.com/kirinyoku/tix-engine/internal/repository/redis"
	"github.com/kirinyoku/tix-engine/internal/service"
	"github.com/kirinyoku/tix-engine/internal/service/purchase"
	"github.com/kirinyoku/tix-engine/internal/service/ratelimit"
	"github.com/kirinyoku/tix-engine/internal/service/refund"
	httpgin "github.com/kirinyoku/tix-engine/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pubsub     *redisrepo.OfferingsPubSub
	cache      *redisrepo.Cache

	// closers run in reverse order on shutdown.
	closers []func(context.Context) error
}

// New wires the application. On error everything opened so far is closed
// again before returning.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if err := a.init(ctx); err != nil {
		a.close(context.Background())
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	refundCfg := refund.Config{
		Deadline:              cfg.Policy.RefundDeadline,
		Percent:               cfg.Policy.RefundPercent,
		TransportLateDeadline: cfg.Policy.TransportLateDeadline,
		TransportLatePercent:  cfg.Policy.TransportLatePercent,
	}
	if err := refundCfg.Validate(); err != nil {
		return fmt.Errorf("invalid refund policy: %w", err)
	}

	shutdownTracing, err := observability.SetupTracing(ctx, observability.Config{
		Endpoint: cfg.Tracing.Endpoint,
		Insecure: cfg.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	clk := clock.NewSystem()

	// Initialize storage
	store, queries, err := a.initStorage(ctx, clk)
	if err != nil {
		return err
	}

	// Initialize redis-backed components; without redis the service runs with
	// a per-process rate guard and no cache.
	var (
		guard ratelimit.Guard
		idem  *redisrepo.IdempotencyStore
	)

	guardCfg := ratelimit.Config{Limit: cfg.Policy.PurchasesPerHour, Window: time.Hour}

	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

		a.cache = redisrepo.New(rdb)
		a.pubsub = redisrepo.NewOfferingsPubSub(rdb)
		idem = redisrepo.NewIdempotencyStore(rdb, 24*time.Hour)
		guard = ratelimit.NewRedis(newLimiter(rdb, guardCfg), clk)
	} else {
		logger.Warn("redis disabled, using in-process rate guard and no cache")
		guard = ratelimit.NewLocal(guardCfg, clk)
	}

	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		return fmt.Errorf("failed to initialize events: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return publisher.Close() })

	issuer, err := credential.NewIssuer(cfg.Credential.Secret)
	if err != nil {
		return fmt.Errorf("failed to initialize credentials: %w", err)
	}

	// Initialize services
	services := service.NewServices(service.Deps{
		Store:   store,
		Queries: queries,
		Clock:   clk,
		Guard:   guard,
		Issuer:  issuer,
		Cache:   a.cache,
		PubSub:  a.pubsub,
		Events:  publisher,
		Logger:  logger,
	}, service.Config{
		Purchase: purchase.Config{
			DefaultPerAccountCap: cfg.Policy.DefaultPerAccountCap,
			BulkCancelWorkers:    cfg.Policy.BulkCancelWorkers,
		},
		Refund: &refundCfg,
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, idem, logger, httpgin.Auth{Secret: []byte(cfg.Auth.JWTSecret)})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return nil
}

func (a *App) initStorage(ctx context.Context, clk clock.Clock) (repository.Store, repository.Queries, error) {
	switch a.cfg.Storage.Driver {
	case "memory":
		a.logger.Warn("using in-memory storage, data is lost on exit")
		s := memory.NewStore(clk)
		return s, s.Query(), nil
	default:
		pool, err := postgres.New(ctx, postgres.Config{
			DSN:      a.cfg.Postgres.DSN(),
			MaxConns: int32(a.cfg.Postgres.MaxConns),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })

		if err := migrations.Apply(ctx, pool); err != nil {
			return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}

		s := postgresrepo.NewStore(pool)
		return s, s.Query(), nil
	}
}

func newLimiter(rdb *goredis.Client, cfg ratelimit.Config) *redisrepo.SlidingWindowLimiter {
	return redisrepo.NewSlidingWindowLimiter(rdb, redisrepo.KeyRateLimit("purchase"), cfg.Limit, cfg.Window)
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		return events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
	case "amqp":
		return events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.AMQPURL, Queue: cfg.AMQPQueue})
	default:
		return events.Nop{}, nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached offerings changed on other nodes
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, offeringID int64) {
				if err := a.cache.InvalidateOffering(ctx, offeringID); err != nil {
					a.logger.Warn("cache invalidation failed", "offering_id", offeringID, "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("offerings subscription: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := a.httpServer.Shutdown(ctx)
		a.close(ctx)
		return err
	})

	return g.Wait()
}

func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
