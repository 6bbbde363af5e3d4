package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-membership/internal/config"
	"course-membership/internal/domain/ports/adapter"
	"course-membership/internal/infra/adapters/payment"
	tele "course-membership/internal/infra/adapters/telegram"
	"course-membership/internal/infra/api"
	pg "course-membership/internal/infra/db/postgres"
	"course-membership/internal/infra/events"
	"course-membership/internal/infra/i18n"
	"course-membership/internal/infra/logging"
	"course-membership/internal/infra/metrics"
	red "course-membership/internal/infra/redis"
	"course-membership/internal/infra/sched"
	"course-membership/internal/infra/worker"
	"course-membership/internal/usecase"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, missing config allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, cfg.Persistence.Backend)

	inf, err := openInfra(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("infrastructure")
	}
	defer inf.Close()

	backend, err := openBackend(cfg, inf)
	if err != nil {
		logger.Fatal().Err(err).Msg("persistence backend")
	}
	plans, companies := openCatalog(cfg, inf, logger)
	logger.Info().Str("backend", backend.Name()).Bool("db_catalog", cfg.Database.Catalog).Msg("storage ready")

	// ---- Events ----
	pool := worker.NewPool(4, 256, *logger)
	pool.Start(ctx)
	defer pool.Stop()

	bus := events.NewBus(pool, *logger)
	var sender adapter.AlertSender = tele.NewNoopSender(*logger)
	if cfg.Telegram.Token != "" {
		bot, err := tele.NewBotSender(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		sender = bot
	}
	bus.Subscribe("telegram-alerts", events.OnlyAlerts, tele.NewAlertNotifier(sender, cfg.Telegram.AdminChatIDs).Handle)

	publisher := events.Fanout{bus}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka, *logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("kafka")
		}
		defer kp.Close()
		publisher = append(publisher, kp)
	}

	// ---- Stores & use cases ----
	opts := []usecase.Option{
		usecase.WithLogger(logger),
		usecase.WithPublisher(publisher),
		usecase.WithRetryPolicy(usecase.RetryPolicy{
			Attempts:       cfg.Retry.Attempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
		}),
	}
	cancelNever := cfg.CancelNeverActivated()
	orders, err := usecase.NewOrderStore(ctx, backend, plans, cfg.Orders.TTL, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("load orders")
	}
	memberships, err := usecase.NewMembershipStore(ctx, backend, plans, cancelNever, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("load memberships")
	}
	subs, err := usecase.NewCorporateSubscriptionStore(ctx, backend, plans, companies, cancelNever, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("load corporate subscriptions")
	}
	members, err := usecase.NewCorporateMemberStore(ctx, backend, subs, plans, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("load corporate members")
	}

	gw := payment.NewSimulatedGateway(payment.Settings{
		SuccessRate: cfg.Payment.SuccessRate,
		OutageRate:  cfg.Payment.OutageRate,
		MinLatency:  cfg.Payment.MinLatency,
		MaxLatency:  cfg.Payment.MaxLatency,
	})
	checkout := usecase.NewCheckoutUseCase(orders, memberships, subs, members, plans, gw, cfg.Payment.Timeout, opts...)
	sweeper := usecase.NewSweeper(orders, memberships, subs, members, plans, opts...)

	// ---- Background jobs ----
	var locker red.Locker
	if inf.redis != nil {
		locker = red.NewLocker(inf.redis)
	}
	expiry := sched.NewExpiryWorker(cfg.Sweeper.Interval, cfg.Sweeper.LockTTL, sweeper, locker, logger)
	go func() { _ = expiry.Run(ctx) }()
	go sched.NewPaymentReconciler(checkout, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, *logger).Start(ctx)
	if inf.pool != nil {
		go pg.RecordPoolStats(ctx, inf.pool, 15*time.Second)
	}

	// ---- HTTP ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	deps := api.Deps{
		Orders:        orders,
		Memberships:   memberships,
		Subscriptions: subs,
		Members:       members,
		Checkout:      checkout,
		Sweeper:       sweeper,
		Plans:         usecase.NewPlanUseCase(plans),
		Translator:    tr,
	}
	if inf.redis != nil {
		deps.Limiter = red.NewRateLimiter(inf.redis)
	}
	server := api.NewServer(cfg.HTTP, deps, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
}
