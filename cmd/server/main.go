// The server binary wires the onboarding gateway: durable stores, the
// orchestrator, the timeout manager, and the HTTP surface. Unconfigured
// infrastructure degrades to in-memory fallbacks outside production.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onboarding-gateway/internal/adapters"
	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/gateway"
	gwhandler "onboarding-gateway/internal/gateway/handler"
	jwttoken "onboarding-gateway/internal/jwt_token"
	"onboarding-gateway/internal/killswitch"
	"onboarding-gateway/internal/notify"
	"onboarding-gateway/internal/orchestrator"
	"onboarding-gateway/internal/platform/config"
	"onboarding-gateway/internal/platform/httpserver"
	"onboarding-gateway/internal/platform/logger"
	"onboarding-gateway/internal/platform/metrics"
	"onboarding-gateway/internal/platform/postgres"
	"onboarding-gateway/internal/platform/redis"
	"onboarding-gateway/internal/quote"
	"onboarding-gateway/internal/timeout"
	httptransport "onboarding-gateway/internal/transport/http"
	"onboarding-gateway/internal/workflow/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, memory otherwise.
	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		fatal(log, "postgres connection failed", err)
	}
	var (
		workflows store.WorkflowStore
		events    store.EventStore
		txRunner  store.TxRunner
		timers    timeout.Store
	)
	if db != nil {
		defer db.Close()
		pg := store.NewPostgres(db)
		workflows, events, txRunner = pg, pg, pg
		timers = timeout.NewPostgresStore(db)
	} else {
		if cfg.Production() {
			fatal(log, "POSTGRES_URL is required in production", nil)
		}
		log.Warn("postgres not configured, workflow state is in-memory")
		mem := store.NewMemory()
		workflows, events, txRunner = mem, mem, mem
		timers = timeout.NewMemoryStore()
	}

	// Form revocations: shared via Redis when configured.
	var revocation form.RevocationList = form.NewMemoryRevocationList()
	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		fatal(log, "redis connection failed", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		revocation = form.NewRedisRevocationList(redisClient)
	} else if cfg.Production() {
		fatal(log, "REDIS_URL is required in production", nil)
	}

	var (
		formStore  form.Store  = form.NewMemoryStore()
		quoteStore quote.Store = quote.NewMemoryStore()
	)
	if db != nil {
		formStore = form.NewPostgresStore(db)
		quoteStore = quote.NewPostgresStore(db)
	}
	forms := form.NewService(formStore, revocation, cfg.FormTokenTTL, log)
	quotes := quote.NewService(quoteStore, cfg.QuoteOverlimitCents, log)

	// Event publishing: Kafka when brokers are configured.
	var notifier notify.Notifier = notify.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := notify.NewKafka(ctx, cfg.KafkaBrokers, cfg.KafkaEventTopic, cfg.KafkaAlertTopic, log)
		if err != nil {
			fatal(log, "kafka connection failed", err)
		}
		defer kafka.Close(context.Background())
		notifier = kafka
	} else if cfg.Production() {
		fatal(log, "KAFKA_BROKERS is required in production", nil)
	}

	// External results arrive through the explicit-event callback endpoint.
	// Outside production the pull adapters are deterministic stubs; in
	// production they refuse, so a missed callback escalates as a step
	// failure instead of fabricating a result.
	var (
		credit      adapters.CreditChecker          = adapters.StubCreditChecker{}
		analyzer    adapters.DocumentAnalyzer       = adapters.StubDocumentAnalyzer{}
		screener    adapters.SanctionsScreener      = adapters.StubSanctionsScreener{}
		provisioner adapters.IntegrationProvisioner = adapters.StubIntegrationProvisioner{}
	)
	if cfg.Production() {
		credit = adapters.UnconfiguredCreditChecker{}
		analyzer = adapters.UnconfiguredDocumentAnalyzer{}
		screener = adapters.UnconfiguredSanctionsScreener{}
		provisioner = adapters.UnconfiguredIntegrationProvisioner{}
	}
	orch := orchestrator.New(orchestrator.Deps{
		Workflows:   workflows,
		Events:      events,
		TxRunner:    txRunner,
		Quotes:      quotes,
		Forms:       forms,
		Timers:      timers,
		Credit:      credit,
		Evidence:    adapters.NewEvidenceGatherer(analyzer, screener, cfg.AdapterCallTimeout, m),
		Provisioner: provisioner,
		Notifier:    notifier,
		Metrics:     m,
		Logger:      log,
	}, orchestrator.Config{
		CreditScoreFloor:    cfg.CreditScoreFloor,
		TrustScoreThreshold: cfg.TrustScoreThreshold,
		SignatureWaitBound:  cfg.SignatureWaitBound,
		ComplianceWaitBound: cfg.ComplianceWaitBound,
		AdapterTimeout:      cfg.AdapterCallTimeout,
		ConflictRetries:     cfg.ApplyConflictRetries,
	})

	kill := killswitch.NewService(workflows, orch, forms, timers, m, log)
	service := gateway.NewService(orch, kill, forms, quotes, log)

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "onboarding-gateway", "onboarding-gateway")
	router := httptransport.NewRouter(httptransport.Deps{
		Handler:        gwhandler.New(service, log),
		TokenValidator: jwttoken.NewMiddlewareAdapter(jwtService),
		Metrics:        m,
		Logger:         log,
	})

	// Bounded waits fire through the timeout manager; the orchestrator's
	// idempotency keys make redelivered timers harmless.
	manager := timeout.NewManager(timers, orch, cfg.TimerPollInterval, m, log)
	go manager.Run(ctx)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("onboarding gateway listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	if err != nil {
		log.Error(msg, "error", err)
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
