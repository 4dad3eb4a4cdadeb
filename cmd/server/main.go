package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/roastbox/internal"
	"github.com/dukerupert/roastbox/internal/auth"
	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/dukerupert/roastbox/internal/handler"
	"github.com/dukerupert/roastbox/internal/handler/api"
	"github.com/dukerupert/roastbox/internal/handler/ops"
	"github.com/dukerupert/roastbox/internal/handler/webhook"
	"github.com/dukerupert/roastbox/internal/jobs"
	"github.com/dukerupert/roastbox/internal/lock"
	"github.com/dukerupert/roastbox/internal/middleware"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/dukerupert/roastbox/internal/router"
	"github.com/dukerupert/roastbox/internal/routes"
	"github.com/dukerupert/roastbox/internal/service"
	"github.com/dukerupert/roastbox/internal/telemetry"
	"github.com/dukerupert/roastbox/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	zerolog.DefaultContextLogger = &logger

	// Connect to database
	logger.Info().Msg("Connecting to database...")
	pool, err := internal.ConnectDatabase(ctx, internal.DatabaseConfig{URL: cfg.DatabaseUrl}, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("Database connection established")

	// Run migrations
	logger.Info().Msg("Running database migrations...")
	if err := internal.RunMigrations(ctx, pool, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info().Msg("Database migrations completed successfully")

	repo := repository.New(pool)
	healthChecks := map[string]ops.Check{"database": internal.DatabaseHealthcheck(pool)}

	// Metrics
	businessMetrics := telemetry.NewBusinessMetrics("roastbox", nil)
	httpMetrics := middleware.NewMetrics("roastbox", nil)

	// Duplicate-event lock (optional)
	var locker lock.Locker = lock.NopLocker{}
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "roastbox:lock:")
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info().Msg("Redis webhook lock enabled")
	}

	// Event publisher (optional)
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, "roastbox-server")
		if err != nil {
			return err
		}
		defer nc.Close()
		publisher = nc
		logger.Info().Str("prefix", cfg.NATS.SubjectPrefix).Msg("NATS event publishing enabled")
	}

	// Billing provider
	provider, err := billing.NewRazorpayProvider(billing.RazorpayConfig{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
	}, billing.WithMetrics(businessMetrics))
	if err != nil {
		return fmt.Errorf("failed to initialize Razorpay provider: %w", err)
	}

	// Services
	subscriptionService := service.NewSubscriptionService(repo, provider, publisher, businessMetrics, logger, service.SubscriptionConfig{
		Category:    cfg.Subscription.Category,
		WeightGrams: cfg.Subscription.WeightGrams,
		Location:    cfg.Location,
	})
	deliveryService := service.NewDeliveryService(repo, publisher, businessMetrics, logger, cfg.Location)
	webhookService := service.NewWebhookService(repo, locker, publisher, businessMetrics, logger, service.WebhookConfig{
		Location:   cfg.Location,
		MaxRetries: cfg.Retry.MaxAttempts,
	})

	// Retry worker
	var replayer jobs.Replayer = jobs.ReplayFunc(func(ctx context.Context, payload []byte) error {
		return webhookService.Process(ctx, payload, service.ProcessOptions{Replay: true})
	})
	if cfg.Webhook.ReplayURL != "" {
		replayer = jobs.NewHTTPReplayer(cfg.Webhook.ReplayURL, cfg.Webhook.InternalSecret)
	}
	retryWorker := worker.NewWorker(repo, replayer, businessMetrics, worker.Config{
		Schedule:  cfg.Retry.Schedule,
		BatchSize: cfg.Retry.BatchSize,
	}, logger)

	// Auth
	var authMiddleware router.Middleware
	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience)
		if err != nil {
			return err
		}
		authMiddleware = middleware.RequireBearer(verifier)
	} else {
		logger.Warn().Msg("AUTH_JWT_SECRET not set, customer API is disabled")
		authMiddleware = func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handler.ErrorResponse(w, r, domain.Errorf(domain.ENOTIMPL, "", "Customer API is not configured"))
			})
		}
	}
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	// Router
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
		httpMetrics.Middleware,
		middleware.MaxBodySize(),
	)

	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		RazorpayHandler: webhook.NewRazorpayHandler(provider, webhookService, webhook.RazorpayWebhookConfig{
			WebhookSecret:  cfg.Razorpay.WebhookSecret,
			InternalSecret: cfg.Webhook.InternalSecret,
		}).HandleWebhook,
	})
	routes.RegisterAPIRoutes(r, routes.APIDeps{
		SubscriptionHandler: api.NewSubscriptionHandler(subscriptionService, cfg.Location),
		DeliveryHandler:     api.NewDeliveryHandler(deliveryService, cfg.Location),
		Auth:                authMiddleware,
		RateLimit:           rateLimiter.Middleware,
	})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		HealthHandler:  ops.NewHealthHandler(healthChecks),
		QueueHandler:   ops.NewQueueHandler(retryWorker),
		MetricsHandler: httpMetrics.Handler(),
		InternalAuth:   middleware.RequireInternalSecret(cfg.Webhook.InternalSecret),
	})

	// Start worker
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- retryWorker.Start(ctx)
	}()

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	workerDone := false
	select {
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case err := <-workerErr:
		workerDone = true
		if err != nil {
			runErr = fmt.Errorf("retry worker failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown failed: %w", err)
	}

	// Let a running retry pass finish
	stop()
	if !workerDone {
		<-workerErr
	}
	logger.Info().Msg("Server stopped")
	return runErr
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
