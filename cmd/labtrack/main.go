package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/mspacademy/labtrack/pkg/api"
	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/config"
	"github.com/mspacademy/labtrack/pkg/observability"
	"github.com/mspacademy/labtrack/pkg/progress"
	"github.com/mspacademy/labtrack/pkg/storage"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("starting labtrack")

	store, err := storage.NewRedisStore(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("failed to connect to redis")
		os.Exit(1)
	}
	logger.WithField("redis_url", cfg.Storage.RedisURL).Info("connected to redis")

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}
	kv := storage.NewInstrumentedStore(store, metrics)

	// Auth core
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	users := auth.NewUserStore(kv)
	sessions := auth.NewSessionStore(kv, users, cfg.Auth.SessionTTL, cfg.Auth.RememberMeTTL)
	authService := auth.NewService(users, sessions, hasher, metrics, auth.ServiceConfig{
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	})

	csrfGuard := auth.NewCSRFGuard(kv, cfg.Auth.CSRFTTL)

	rateLimiter := auth.NewRateLimiter(kv, cfg.Auth.RateLimitMax, cfg.Auth.RateLimitWindow)
	rateLimiter.FailClosed = cfg.Auth.RateLimitFailClosed

	auditLog := auth.NewAuditRecorder(kv, logger, cfg.Auth.AuditRetention)
	progressStore := progress.NewStore(kv)

	server := api.NewServer(api.Options{
		AuthService:  authService,
		CSRFGuard:    csrfGuard,
		RateLimiter:  rateLimiter,
		AuditLog:     auditLog,
		Progress:     progressStore,
		Logger:       logger,
		Metrics:      metrics,
		CookieSecure: cfg.Server.CookieSecure,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port so probes bypass the middleware
	// stack and rate limiting.
	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(store, version)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Periodic refresh of the active-sessions gauge. The count is a full
	// prefix scan, so it runs on a schedule rather than per request.
	statsCron := cron.New()
	if metrics != nil {
		_, err := statsCron.AddFunc(cfg.Observability.SessionStatsInterval, func() {
			count, err := sessions.Count(context.Background())
			if err != nil {
				logger.WithError(err).Warn("session count failed")
				return
			}
			metrics.SessionsActive.Set(float64(count))
		})
		if err != nil {
			logger.WithError(err).Error("invalid session stats interval")
			os.Exit(1)
		}
		statsCron.Start()
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		statsCron.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return store.Close()
	})

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("api server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
}
