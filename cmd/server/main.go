// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"confia/internal/documents"
	documentsmem "confia/internal/documents/store/memory"
	documentspg "confia/internal/documents/store/postgres"
	"confia/internal/history"
	historymem "confia/internal/history/store/memory"
	historypg "confia/internal/history/store/postgres"
	jwttoken "confia/internal/jwt_token"
	"confia/internal/notification"
	"confia/internal/platform/config"
	"confia/internal/platform/httpserver"
	"confia/internal/platform/logger"
	platformmetrics "confia/internal/platform/metrics"
	"confia/internal/platform/middleware"
	platformredis "confia/internal/platform/redis"
	"confia/internal/profile"
	"confia/internal/trustscore"
	scoremem "confia/internal/trustscore/store/memory"
	scorepg "confia/internal/trustscore/store/postgres"
	"confia/internal/validators"
	"confia/internal/validators/background"
	"confia/internal/validators/biometric"
	"confia/internal/validators/rut"
	"confia/internal/verification/handler"
	"confia/internal/verification/metrics"
	"confia/internal/verification/service"
	verificationmem "confia/internal/verification/store/memory"
	verificationpg "confia/internal/verification/store/postgres"
	"confia/internal/verification/workflow"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	var db *sql.DB
	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var (
		store      service.Store
		scores     service.ScoreStore
		historian  history.Store
		docStore   documents.Store
		kafkaClose func(context.Context) error
	)
	if db != nil {
		store = verificationpg.New(db)
		scores = scorepg.New(db)
		historian = historypg.New(db)
		docStore = documentspg.New(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		store = verificationmem.NewInMemoryStore()
		scores = scoremem.NewInMemoryStore()
		historian = historymem.NewInMemoryStore()
		docStore = documentsmem.NewInMemoryStore()
	}

	var profileSource profile.Source = profile.NewStaticSource()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		profileSource = profile.NewCachedSource(profileSource, redisClient.Client,
			profile.WithCacheLogger(log),
		)
	}

	var publisher notification.Publisher = notification.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := notification.NewKafkaPublisher(cfg.Kafka.Brokers,
			notification.WithTopic(cfg.Kafka.Topic),
			notification.WithKafkaLogger(log),
		)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
		kafkaClose = kafkaPublisher.Close
	}

	registry, err := buildValidators(cfg.Validators)
	if err != nil {
		log.Error("failed to build validators", "error", err)
		os.Exit(1)
	}

	policy := workflow.DefaultPolicy()
	policy.BiometricThreshold = cfg.Workflow.BiometricThreshold
	policy.RUTInvalidManualReview = cfg.Workflow.RUTInvalidManualReview
	policy.SpeculativeChecks = cfg.Workflow.SpeculativeChecks

	weights := trustscore.DefaultWeights()
	if cfg.Workflow.ScoreWeights == "legacy" {
		weights = trustscore.LegacyWeights()
	}

	svc, err := service.New(
		store,
		docStore,
		registry,
		history.NewRecorder(historian),
		scores,
		profileSource,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithPolicy(policy),
		service.WithWeights(weights),
		service.WithPublisher(publisher),
		service.WithRetryPolicy(validators.RetryPolicy{
			MaxRetries: cfg.Validators.MaxRetries,
			Backoff:    cfg.Validators.Backoff,
			Timeout:    cfg.Validators.Timeout,
		}),
	)
	if err != nil {
		log.Error("failed to build verification service", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "confia", "confia-admin")
	verificationHandler := handler.New(svc, log, jwttoken.NewMiddlewareAdapter(jwtService))

	httpMetrics := platformmetrics.New()
	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(log))
	router.Use(httpMetrics.Middleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	verificationHandler.Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting confia verification server", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if kafkaClose != nil {
		if err := kafkaClose(ctx); err != nil {
			log.Error("failed to flush notifications", "error", err)
		}
	}
}

// buildValidators selects live or stand-in variants per configured endpoint.
func buildValidators(cfg config.Validators) (*validators.Registry, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	registry := validators.NewRegistry()

	rutValidator := rut.NewStandIn()
	if cfg.RUTBaseURL != "" {
		rutValidator = rut.NewLive(cfg.RUTBaseURL, client)
	}
	backgroundValidator := background.NewStandIn()
	if cfg.BackgroundBaseURL != "" {
		backgroundValidator = background.NewLive(cfg.BackgroundBaseURL, client)
	}
	biometricValidator := biometric.NewStandIn()
	if cfg.BiometricBaseURL != "" {
		biometricValidator = biometric.NewLive(cfg.BiometricBaseURL, client)
	}

	for _, v := range []validators.Validator{rutValidator, backgroundValidator, biometricValidator} {
		if err := registry.Register(v); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
