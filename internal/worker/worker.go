package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dukerupert/roastbox/internal/jobs"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/dukerupert/roastbox/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance in logs
	WorkerID string

	// Schedule is the cron spec for retry passes (default "@every 1m")
	Schedule string

	// BatchSize is the most entries claimed per pass
	BatchSize int32

	// MaxConcurrency is the maximum number of replays in flight
	MaxConcurrency int

	// Lease pushes next_retry_at of claimed entries forward so another
	// instance does not claim them while they are being replayed
	Lease time.Duration

	// PassTimeout bounds a single pass
	PassTimeout time.Duration
}

// Result summarises one retry pass.
type Result struct {
	Claimed   int `json:"claimed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Exhausted int `json:"exhausted"`
}

// Worker replays due webhook queue entries.
type Worker struct {
	config   Config
	repo     repository.Querier
	replayer jobs.Replayer
	metrics  *telemetry.BusinessMetrics
	logger   zerolog.Logger

	// now is overridden in tests
	now func() time.Time

	// one pass at a time per process
	mu sync.Mutex
}

// NewWorker creates a new retry worker
func NewWorker(
	repo repository.Querier,
	replayer jobs.Replayer,
	metrics *telemetry.BusinessMetrics,
	config Config,
	logger zerolog.Logger,
) *Worker {
	// Set defaults
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.Schedule == "" {
		config.Schedule = "@every 1m"
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}
	if config.Lease <= 0 {
		config.Lease = 5 * time.Minute
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = 2 * time.Minute
	}

	return &Worker{
		config:   config,
		repo:     repo,
		replayer: replayer,
		metrics:  metrics,
		logger:   logger.With().Str("component", "worker").Str("worker_id", config.WorkerID).Logger(),
		now:      time.Now,
	}
}

// Start runs a retry pass on the configured schedule until ctx is cancelled,
// then waits for the running pass to finish.
func (w *Worker) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(w.config.Schedule, func() {
		passCtx, cancel := context.WithTimeout(ctx, w.config.PassTimeout)
		defer cancel()
		if _, err := w.RunOnce(passCtx); err != nil {
			w.logger.Error().Err(err).Msg("retry pass failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retry schedule %q: %w", w.config.Schedule, err)
	}

	w.logger.Info().
		Str("schedule", w.config.Schedule).
		Int32("batch_size", w.config.BatchSize).
		Int("max_concurrency", w.config.MaxConcurrency).
		Msg("worker starting")

	c.Start()
	<-ctx.Done()

	w.logger.Info().Msg("worker shutting down")
	<-c.Stop().Done()
	return nil
}

// RunOnce claims the due entries and replays them.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var result Result
	now := w.now()

	entries, err := w.repo.ClaimDueWebhookRetries(ctx, repository.ClaimDueWebhookRetriesParams{
		Now:        now,
		LeaseUntil: now.Add(w.config.Lease),
		Limit:      w.config.BatchSize,
	})
	if err != nil {
		return result, fmt.Errorf("failed to claim webhook retries: %w", err)
	}
	result.Claimed = len(entries)
	w.metrics.RecordRetryBatch(len(entries))
	if len(entries) == 0 {
		return result, nil
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, w.config.MaxConcurrency)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, entry := range entries {
		wg.Add(1)
		sem <- struct{}{}
		go func(entry repository.WebhookQueueEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			out := w.processJob(ctx, entry)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case out.Succeeded:
				result.Succeeded++
			case out.Exhausted:
				result.Exhausted++
			default:
				result.Failed++
			}
		}(entry)
	}
	wg.Wait()

	w.logger.Info().
		Int("claimed", result.Claimed).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("exhausted", result.Exhausted).
		Msg("retry pass complete")

	return result, nil
}

// processJob replays a single entry
func (w *Worker) processJob(ctx context.Context, entry repository.WebhookQueueEntry) jobs.RetryOutcome {
	log := w.logger.With().
		Str("job_type", jobs.JobTypeWebhookReplay).
		Str("queue_id", entry.ID.String()).
		Str("event", entry.EventType).
		Int32("retry_count", entry.RetryCount).
		Logger()

	ctx = withJobContext(ctx, entry, log)
	out, err := jobs.ProcessWebhookRetry(ctx, w.repo, w.replayer, entry, w.now())
	if err != nil {
		log.Error().Err(err).Msg("failed to record retry outcome")
	}
	w.metrics.RecordRetryAttempt(out.Succeeded, out.Exhausted)

	switch {
	case out.Succeeded:
		log.Info().Msg("webhook replay succeeded")
	case out.Exhausted:
		log.Error().Err(out.Err).Msg("webhook retries exhausted, left for manual inspection")
	default:
		log.Warn().Err(out.Err).Time("next_retry_at", out.NextRetryAt).Msg("webhook replay failed")
	}
	return out
}
