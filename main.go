package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slmes-creator/job-posting/internal/auth"
	"github.com/slmes-creator/job-posting/internal/cache"
	"github.com/slmes-creator/job-posting/internal/config"
	"github.com/slmes-creator/job-posting/internal/db"
	"github.com/slmes-creator/job-posting/internal/events"
	"github.com/slmes-creator/job-posting/internal/gelf"
	"github.com/slmes-creator/job-posting/internal/handler"
	"github.com/slmes-creator/job-posting/internal/mail"
	"github.com/slmes-creator/job-posting/internal/repository"
	"github.com/slmes-creator/job-posting/internal/router"
	"github.com/slmes-creator/job-posting/internal/scheduler"
	"github.com/slmes-creator/job-posting/internal/service"
)

const serviceName = "volunteer-hub"

// revocationStore is satisfied by both the Redis and in-memory stores.
type revocationStore interface {
	service.RevocationStore
	auth.RevocationChecker
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config failed", "operation", "startup", "outcome", "failure", "error", err)
		os.Exit(1)
	}

	// GELF UDP logging
	if cfg.GelfAddr != "" {
		gelfWriter, err := gelf.New(cfg.GelfAddr, serviceName)
		if err != nil {
			logger.Warn("gelf init failed", "operation", "startup", "outcome", "degraded", "error", err)
		} else {
			defer gelfWriter.Close()
			logger = slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stderr, gelfWriter), nil))
			slog.SetDefault(logger)
			logger.Info("gelf logging enabled", "addr", cfg.GelfAddr)
		}
	}

	if cfg.UsingDefaultJWTSecret() {
		logger.Warn("JWT_SECRET not set, signing tokens with the development default",
			"operation", "startup", "outcome", "degraded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to OxiDB
	pool, err := db.NewPool(ctx, cfg.OxiDBAddr, cfg.PoolSize, logger)
	if err != nil {
		logger.Error("connect to oxidb failed", "operation", "startup", "outcome", "failure", "addr", cfg.OxiDBAddr, "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to oxidb", "addr", cfg.OxiDBAddr, "pool_size", cfg.PoolSize)

	var revocations revocationStore = cache.NewMemoryRevocationStore()
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("redis config invalid", "operation", "startup", "outcome", "failure", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		revocations = cache.NewRedisRevocationStore(client)
		logger.Info("token revocation backed by redis", "addr", cfg.RedisAddr)
	}

	var publisher events.Publisher = events.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, nil)
		if err != nil {
			logger.Error("kafka init failed", "operation", "startup", "outcome", "failure", "error", err)
			os.Exit(1)
		}
		defer kafkaPub.Close()
		publisher = kafkaPub
		logger.Info("application events published to kafka", "topic", cfg.KafkaTopic)
	}

	mailer := mail.NewMailer(cfg.SendGridAPIKey, cfg.FromEmail, mail.NewSendGridSender(cfg.SendGridAPIKey))
	if cfg.SendGridAPIKey == "" || cfg.FromEmail == "" {
		logger.Warn("email delivery not configured", "operation", "startup", "outcome", "degraded")
	}

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	appRepo := repository.NewApplicationRepo(pool)
	resumeRepo := repository.NewResumeRepo(pool)

	// Services
	resumeSvc := service.NewResumeService(resumeRepo, appRepo, cfg.ResumeMaxBytes)
	authSvc := service.NewAuthService(userRepo, revocations, cfg.JWTSecret, cfg.TokenTTL, logger)
	jobSvc := service.NewJobService(jobRepo, appRepo, userRepo, logger)
	appSvc := service.NewApplicationService(appRepo, jobRepo, userRepo, resumeSvc, mailer, publisher, logger)
	dashSvc := service.NewDashboardService(jobRepo, appRepo, userRepo)

	// Router
	r := router.New(router.Options{
		JWTSecret:   cfg.JWTSecret,
		Revocations: revocations,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Jobs:      handler.NewJobHandler(jobSvc),
		Apps:      handler.NewApplicationHandler(appSvc, resumeSvc.MaxBytes()),
		Resumes:   handler.NewResumeHandler(resumeSvc),
		Dashboard: handler.NewDashboardHandler(dashSvc),
		Email:     handler.NewEmailHandler(mailer),
		Health:    handler.NewHealthHandler(pool),
	})

	// Index and bucket creation runs on a dedicated connection so the
	// handler pool is free while it runs.
	go ensureStorage(ctx, cfg, pool, logger)

	sched, err := scheduler.New(cfg.CloseExpiredSchedule, jobSvc, logger)
	if err != nil {
		logger.Error("invalid close-expired schedule", "operation", "startup", "outcome", "failure",
			"schedule", cfg.CloseExpiredSchedule, "error", err)
		os.Exit(1)
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "operation", "http.serve", "outcome", "failure", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "operation", "http.shutdown", "outcome", "failure", "error", err)
	}
	sched.Stop(shutdownCtx)
}

func ensureStorage(ctx context.Context, cfg config.Config, pool *db.Pool, logger *slog.Logger) {
	initPool, err := db.NewPool(ctx, cfg.OxiDBAddr, 1, logger)
	if err != nil {
		logger.Warn("init pool connect failed, using main pool", "operation", "startup.indexes", "outcome", "degraded", "error", err)
		initPool = pool
	} else {
		defer initPool.Close()
	}

	start := time.Now()
	resumes := repository.NewResumeRepo(initPool)
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"users", repository.NewUserRepo(initPool).EnsureIndexes},
		{"jobs", repository.NewJobRepo(initPool).EnsureIndexes},
		{"applications", repository.NewApplicationRepo(initPool).EnsureIndexes},
		{"resumes", resumes.EnsureIndexes},
		{"resume bucket", resumes.EnsureBucket},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			logger.Warn("storage init step failed", "operation", "startup.indexes", "outcome", "failure",
				"step", step.name, "error", err)
		}
	}
	logger.Info("storage ready", "operation", "startup.indexes", "outcome", "success",
		"duration_ms", time.Since(start).Milliseconds())
}
