package main

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

	"golang.org/x/sync/errgroup"

	"doorly/internal/app/engine"
	"doorly/internal/app/middleware"
	"doorly/internal/app/outbox"
	"doorly/internal/app/policies"
	"doorly/internal/app/schedule"
	"doorly/internal/app/uow"
	domainavailability "doorly/internal/domain/availability"
	domainbooking "doorly/internal/domain/booking"
	domainpricing "doorly/internal/domain/pricing"
	"doorly/internal/infra/broker/kafka"
	"doorly/internal/infra/config"
	mongodb "doorly/internal/infra/db/mongo"
	"doorly/internal/infra/db/postgres"
	ginserver "doorly/internal/infra/http/gin"
	"doorly/internal/infra/inbox"
	"doorly/internal/infra/obs"
	infraoutbox "doorly/internal/infra/outbox"
	"doorly/internal/infra/payments"
	"doorly/internal/infra/redisx"
	"doorly/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("doorly stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("doorly stopped")
}

// storage is what a driver contributes: the transactional ports plus the
// delivery side of the outbox and readiness checks.
type storage struct {
	factory     uow.UoWFactory
	outbox      outbox.Outbox
	delivery    infraoutbox.Store
	idempotency middleware.IdempotencyStore
	locker      policies.ListingLocker
	inbox       policies.Inbox
	isConflict  func(error) bool
	checks      map[string]obs.Check
	close       func()
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	policy := domainavailability.Policy{AllowSameDayTurnover: cfg.AllowSameDayTurnover}

	st, err := openStorage(ctx, cfg, policy, logger)
	if err != nil {
		return err
	}
	defer st.close()

	var pricing policies.PricingPort = policies.CalculatorPricing{Calculator: domainpricing.Calculator{
		FeeBasisPoints: cfg.PlatformFeeBPS,
		FeeWaived:      cfg.PlatformFeeWaived,
	}}
	if cfg.RedisAddr != "" {
		rdb, err := redisx.New(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		st.locker = redisx.NewLocker(rdb, 0)
		st.inbox = redisx.NewInbox(rdb, "payments")
		pricing = &redisx.QuoteCache{Next: pricing, Redis: rdb, Logger: logger}
		st.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("redis enabled", "addr", cfg.RedisAddr)
	}

	gateway, err := paymentsGateway(cfg, logger)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Deps{
		UoWFactory:   st.factory,
		Outbox:       st.outbox,
		Encoder:      outbox.JSONEventEncoder{},
		Idempotency:  st.idempotency,
		Locker:       st.locker,
		Inbox:        st.inbox,
		Pricing:      pricing,
		Payments:     gateway,
		Policy:       policy,
		RefundPolicy: domainbooking.DefaultRefundPolicy(),
		HoldTTL:      cfg.HoldTTL,
		IsConflict:   st.isConflict,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	if cfg.SeedDemoData {
		path := getenv("LISTINGS_FIXTURES", defaultListingFixturesPath())
		if err := loadListingFixtures(ctx, st.factory, path, cfg.Currency, logger); err != nil {
			logger.Warn("listing fixtures load failed", "error", err, "path", path)
		}
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: st.checks, Timeout: 2 * time.Second}, ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Commands: eng.Commands, Queries: eng.Queries, Logger: logger},
		HostBooking:    ginserver.HostBookingHandler{Queries: eng.Queries, Logger: logger},
		Me:             ginserver.MeHandler{Queries: eng.Queries, Logger: logger},
		Availability:   ginserver.AvailabilityHandler{Queries: eng.Queries, Logger: logger},
		Listing:        ginserver.ListingHandler{Queries: eng.Queries, Logger: logger},
		Reviews:        ginserver.ReviewsHandler{Commands: eng.Commands, Queries: eng.Queries, Logger: logger},
		Payments:       ginserver.PaymentWebhookHandler{Commands: eng.Commands, Secret: cfg.WebhookSecret, Logger: logger},
		Admin:          ginserver.AdminHandler{Commands: eng.Commands, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{AdminToken: cfg.AdminToken}.Handle,
	})

	var producer infraoutbox.Producer = infraoutbox.LogProducer{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer kp.Close()
		producer = kp
	}
	worker := &infraoutbox.Worker{
		Store:       st.delivery,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return schedule.NewSweeper(eng.Sweeps, cfg.SweepInterval, logger).Start(gctx)
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox worker: %w", err)
		}
		return nil
	})
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaPaymentsTopic != "" {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, &kafka.PaymentEvents{Bus: eng.Commands, Logger: logger}, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		g.Go(func() error {
			defer consumer.Close()
			logger.Info("payment events consumer starting", "topic", cfg.KafkaPaymentsTopic)
			return consumer.Run(gctx, []string{cfg.KafkaPaymentsTopic})
		})
	}
	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.Config, policy domainavailability.Policy, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		box, err := infraoutbox.NewMongoStore(ctx, client.DB)
		if err != nil {
			return nil, fmt.Errorf("mongo outbox: %w", err)
		}
		idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("mongo idempotency: %w", err)
		}
		in, err := inbox.NewStore(ctx, client.DB, "payments")
		if err != nil {
			return nil, fmt.Errorf("mongo inbox: %w", err)
		}
		logger.Info("storage ready", "driver", cfg.StorageDriver, "database", cfg.MongoDB)
		return &storage{
			factory:     mongodb.Factory{DB: client.DB},
			outbox:      box,
			delivery:    box,
			idempotency: idem,
			locker:      memory.NewKeyedLocker(),
			inbox:       in,
			isConflict:  mongodb.IsConflict,
			checks:      map[string]obs.Check{"mongo": client.Ping},
			close:       func() { _ = client.Close(context.Background()) },
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool, policy); err != nil {
			pool.Close()
			return nil, err
		}
		box := postgres.NewOutboxStore(pool)
		logger.Info("storage ready", "driver", cfg.StorageDriver)
		return &storage{
			factory:     postgres.Factory{Pool: pool},
			outbox:      box,
			delivery:    box,
			idempotency: postgres.NewIdempotencyStore(pool, cfg.IdempotencyTTL),
			locker:      memory.NewKeyedLocker(),
			inbox:       postgres.NewInbox(pool, "payments"),
			isConflict:  postgres.IsConflict,
			checks:      map[string]obs.Check{"postgres": pool.Ping},
			close:       pool.Close,
		}, nil

	default:
		box := memory.NewOutbox()
		store := memory.NewStore(memory.WithPolicy(policy), memory.WithOutbox(box))
		logger.Info("storage ready", "driver", config.DriverMemory)
		return &storage{
			factory:     memory.Factory{Store: store},
			outbox:      box,
			delivery:    box,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			locker:      memory.NewKeyedLocker(),
			inbox:       memory.NewInbox(),
			checks:      map[string]obs.Check{},
			close:       func() {},
		}, nil
	}
}

func paymentsGateway(cfg config.Config, logger *slog.Logger) (policies.PaymentsPort, error) {
	switch cfg.PaymentsMode {
	case config.PaymentsHTTP:
		return &payments.HTTPGateway{
			Client:   &http.Client{Timeout: 10 * time.Second},
			Endpoint: cfg.PaymentsURL,
			Token:    cfg.PaymentsToken,
			Logger:   logger,
		}, nil
	case config.PaymentsDemo, "":
		logger.Warn("payments running in demo mode; no money moves")
		return payments.NewDemoGateway(cfg.PublicURL), nil
	}
	return nil, fmt.Errorf("unknown payments mode %q", cfg.PaymentsMode)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
