package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/dukerupert/roastbox/internal/lock"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/dukerupert/roastbox/internal/telemetry"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

// WebhookService reconciles billing provider webhooks into orders and
// deliveries.
//
// Every body is logged before it is handled. Handlers are idempotent: an
// event that was already applied, or that refers to a record that no longer
// exists, succeeds without changes. A failed live event is queued for replay
// and the caller should answer non-2xx so the provider retries too.
type WebhookService interface {
	Process(ctx context.Context, payload []byte, opts ProcessOptions) error
}

// ProcessOptions describe where a webhook body came from.
type ProcessOptions struct {
	// Replay is set when the retry processor re-submits a queued body.
	// Replays that fail are not queued again; the queue entry tracks them.
	Replay bool
}

// WebhookConfig tunes the reconciler.
type WebhookConfig struct {
	// Location is the calendar new delivery dates are computed in
	Location *time.Location

	// LockTTL bounds how long a duplicate-event lock is held (default 30s)
	LockTTL time.Duration

	// LockWait is how long a handler waits for a busy lock (default 5s)
	LockWait time.Duration

	// MaxRetries is written on new queue entries (default 5)
	MaxRetries int32
}

func (c WebhookConfig) withDefaults() WebhookConfig {
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
	if c.LockWait <= 0 {
		c.LockWait = 5 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = domain.WebhookMaxRetries
	}
	return c
}

const lockPollInterval = 100 * time.Millisecond

type webhookService struct {
	repo      repository.Querier
	locker    lock.Locker
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    zerolog.Logger
	cfg       WebhookConfig
	clock     clock
}

// NewWebhookService creates a WebhookService. A nil locker or publisher
// disables that concern.
func NewWebhookService(
	repo repository.Querier,
	locker lock.Locker,
	publisher events.Publisher,
	metrics *telemetry.BusinessMetrics,
	logger zerolog.Logger,
	cfg WebhookConfig,
) WebhookService {
	if locker == nil {
		locker = lock.NopLocker{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	cfg = cfg.withDefaults()
	return &webhookService{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("service", "webhook").Logger(),
		cfg:       cfg,
		clock:     newClock(cfg.Location),
	}
}

// Process logs, parses and dispatches one webhook body.
//
// Returns an EINVALID error for bodies that are not a valid event; those are
// not queued because a replay cannot fix them. Returns EINTERNAL when a
// handler fails.
func (s *webhookService) Process(ctx context.Context, payload []byte, opts ProcessOptions) error {
	const op = "webhook.Process"
	start := time.Now()

	eventType := billing.PeekEventName(payload)
	if eventType == "" {
		eventType = "unknown"
	}
	s.metrics.RecordWebhookReceived(eventType, opts.Replay)

	log := s.logger.With().
		Str("event", eventType).
		Bool("replay", opts.Replay).
		Logger()

	entry, err := s.repo.CreateWebhookLog(ctx, repository.CreateWebhookLogParams{
		EventType: eventType,
		Payload:   storablePayload(payload),
		Replay:    opts.Replay,
	})
	if err != nil {
		s.metrics.RecordWebhookResult(eventType, false, time.Since(start))
		return domain.Internal(err, op, "failed to log webhook")
	}
	log = log.With().Str("webhook_log_id", entry.ID.String()).Logger()

	event, err := billing.ParseEvent(payload)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting malformed webhook")
		s.markFailed(ctx, log, entry, err)
		s.metrics.RecordWebhookResult(eventType, false, time.Since(start))
		return domain.WrapError(err, domain.EINVALID, op, domain.ErrorMessage(ErrInvalidWebhookEvent))
	}

	if err := s.dispatch(ctx, log, event); err != nil {
		log.Error().Err(err).Msg("webhook handling failed")
		s.markFailed(ctx, log, entry, err)
		if !opts.Replay {
			s.enqueue(ctx, log, entry, payload, err)
		}
		s.metrics.RecordWebhookResult(eventType, false, time.Since(start))
		return domain.Internal(err, op, "webhook handling failed")
	}

	if err := s.repo.MarkWebhookLogProcessed(ctx, entry.ID); err != nil {
		log.Error().Err(err).Msg("failed to mark webhook processed")
	}
	s.metrics.RecordWebhookResult(eventType, true, time.Since(start))
	log.Debug().Dur("took", time.Since(start)).Msg("webhook processed")
	return nil
}

func (s *webhookService) dispatch(ctx context.Context, log zerolog.Logger, event billing.Event) error {
	switch ev := event.(type) {
	case billing.PaymentCaptured:
		return s.handlePaymentCaptured(ctx, log, ev)
	case billing.PaymentFailed:
		return s.handlePaymentFailed(ctx, log, ev)
	case billing.InvoicePaid:
		return s.handleInvoicePaid(ctx, log, ev)
	case billing.InvoiceFailed:
		log.Warn().
			Str("invoice_id", ev.Invoice.ID).
			Str("subscription_id", ev.Invoice.SubscriptionID).
			Msg("subscription charge failed")
		return nil
	default:
		log.Debug().Msg("ignoring unhandled webhook event")
		return nil
	}
}

func (s *webhookService) markFailed(ctx context.Context, log zerolog.Logger, entry repository.WebhookLog, cause error) {
	if err := s.repo.MarkWebhookLogFailed(ctx, repository.MarkWebhookLogFailedParams{
		ID:    entry.ID,
		Error: cause.Error(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to record webhook error")
	}
}

func (s *webhookService) enqueue(ctx context.Context, log zerolog.Logger, entry repository.WebhookLog, payload []byte, cause error) {
	queued, err := s.repo.EnqueueWebhookRetry(ctx, repository.EnqueueWebhookRetryParams{
		WebhookLogID: pgtype.UUID{Bytes: entry.ID, Valid: true},
		EventType:    entry.EventType,
		Payload:      payload,
		MaxRetries:   s.cfg.MaxRetries,
		NextRetryAt:  s.clock.now().Add(domain.WebhookRetryDelay(0)),
		LastError:    pgtype.Text{String: cause.Error(), Valid: true},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to queue webhook for retry")
		return
	}
	log.Info().Str("queue_id", queued.ID.String()).Time("next_retry_at", queued.NextRetryAt).Msg("webhook queued for retry")
}

// withLock runs fn while holding key. A busy key is an error so the event is
// retried later; a locker outage only loses the narrowing and fn still runs.
func (s *webhookService) withLock(ctx context.Context, log zerolog.Logger, key string, fn func() error) error {
	release, err := lock.AcquireWait(ctx, s.locker, key, s.cfg.LockTTL, s.cfg.LockWait, lockPollInterval)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		return fmt.Errorf("%s is being processed by another delivery: %w", key, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case err != nil:
		log.Warn().Err(err).Str("lock", key).Msg("lock unavailable, continuing without it")
		return fn()
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("lock", key).Msg("failed to release lock")
		}
	}()
	return fn()
}

// storablePayload returns a body that fits a JSONB column.
func storablePayload(payload []byte) []byte {
	if json.Valid(payload) {
		return payload
	}
	wrapped, err := json.Marshal(map[string]string{"raw": string(payload)})
	if err != nil {
		return []byte(`{}`)
	}
	return wrapped
}
