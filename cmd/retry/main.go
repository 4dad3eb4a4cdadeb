// Command retry runs a single pass over the webhook retry queue and exits.
// It is meant for an external scheduler such as a cron job.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/roastbox/internal"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/dukerupert/roastbox/internal/jobs"
	"github.com/dukerupert/roastbox/internal/lock"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/dukerupert/roastbox/internal/service"
	"github.com/dukerupert/roastbox/internal/telemetry"
	"github.com/dukerupert/roastbox/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	pool, err := internal.ConnectDatabase(ctx, internal.DatabaseConfig{URL: cfg.DatabaseUrl, MaxConns: 4}, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := repository.New(pool)
	metrics := telemetry.NewBusinessMetrics("roastbox", prometheus.NewRegistry())

	var replayer jobs.Replayer
	if cfg.Webhook.ReplayURL != "" {
		replayer = jobs.NewHTTPReplayer(cfg.Webhook.ReplayURL, cfg.Webhook.InternalSecret)
	} else {
		// No server to post to: run the reconciler in this process.
		var locker lock.Locker = lock.NopLocker{}
		if cfg.Redis.URL != "" {
			opts, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				return fmt.Errorf("invalid REDIS_URL: %w", err)
			}
			rdb := redis.NewClient(opts)
			defer rdb.Close()
			locker = lock.NewRedisLocker(rdb, "roastbox:lock:")
		}
		var publisher events.Publisher = events.NopPublisher{}
		if cfg.NATS.URL != "" {
			nc, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, "roastbox-retry")
			if err != nil {
				return err
			}
			defer nc.Close()
			publisher = nc
		}
		webhookService := service.NewWebhookService(repo, locker, publisher, metrics, logger, service.WebhookConfig{
			Location:   cfg.Location,
			MaxRetries: cfg.Retry.MaxAttempts,
		})
		replayer = jobs.ReplayFunc(func(ctx context.Context, payload []byte) error {
			return webhookService.Process(ctx, payload, service.ProcessOptions{Replay: true})
		})
	}

	w := worker.NewWorker(repo, replayer, metrics, worker.Config{BatchSize: cfg.Retry.BatchSize}, logger)

	passCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	result, err := w.RunOnce(passCtx)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(result)
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("retry pass failed")
	}
}
