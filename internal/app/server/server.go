package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/decision"
	"leavedesk/internal/domain/directory"
	"leavedesk/internal/domain/ledger"
	"leavedesk/internal/domain/notify"
	"leavedesk/internal/domain/submission"
	"leavedesk/internal/platform/config"
	"leavedesk/internal/platform/db"
	"leavedesk/internal/platform/metrics"
	audithandler "leavedesk/internal/transport/http/handlers/audit"
	calendarhandler "leavedesk/internal/transport/http/handlers/calendar"
	leavehandler "leavedesk/internal/transport/http/handlers/leave"
	"leavedesk/internal/transport/http/middleware"
)

func Run() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			logger.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			logger.Error("seed failed", "error", err)
			os.Exit(1)
		}
	}

	collector := metrics.New()

	calendarStore := calendar.NewStore(pool)
	blockedDates := calendar.DetectBlockedDates(ctx, pool)
	if !blockedDates.Available() {
		logger.Info("blocked dates disabled", "reason", blockedDates.Reason())
	}
	provider := calendar.NewProviderClient(cfg.CalendarProviderURL, cfg.CalendarTimeout)
	resolver := calendar.NewResolver(calendarStore, provider, blockedDates, logger)
	resolver.Metrics = collector

	evaluator := decision.NewEvaluatorClient(cfg.EvaluatorURL, cfg.EvaluatorTimeout)
	orchestrator := decision.NewOrchestrator(evaluator)

	ledgerStore := ledger.NewStore(pool, logger)
	directoryStore := directory.NewStore(pool)
	auditService := audit.New(pool)

	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.NotifyEnabled {
		kafkaPublisher := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.NotifyTopic, logger)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Warn("kafka close failed", "error", err)
			}
		}()
		publisher = kafkaPublisher
	}

	submissions := &submission.Service{
		Settings:       calendarStore,
		Calendar:       resolver,
		Decider:        orchestrator,
		Ledger:         ledgerStore,
		Directory:      directoryStore,
		Audit:          auditService,
		Notify:         publisher,
		Metrics:        collector,
		Logger:         logger,
		DefaultCountry: cfg.DefaultCountry,
		EscalationSLA:  cfg.EscalationSLA,
	}

	idempotency := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.Auth(cfg.TokenSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SubmissionRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(collector.Snapshot()); err != nil {
				logger.Warn("metrics write failed", "error", err)
			}
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireActor)

		leaveHandler := leavehandler.NewHandler(submissions, ledgerStore, directoryStore, auditService, publisher, idempotency)
		leaveHandler.RegisterRoutes(r)

		calendarHandler := calendarhandler.NewHandler(calendarStore, provider, cfg.DefaultCountry, collector)
		calendarHandler.RegisterRoutes(r)

		auditHandler := audithandler.NewHandler(auditService)
		auditHandler.RegisterRoutes(r)
	})

	logger.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
