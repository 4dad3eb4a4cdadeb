// Package jobs holds the background job handlers. The only job today is the
// webhook retry: re-submitting a queued webhook body to the reconciler.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/repository"
)

// JobTypeWebhookReplay labels retry attempts in logs and metrics.
const JobTypeWebhookReplay = "webhook:replay"

// Replayer re-submits a stored webhook body to the reconciler.
type Replayer interface {
	Replay(ctx context.Context, payload []byte) error
}

// ReplayFunc adapts a function to Replayer.
type ReplayFunc func(ctx context.Context, payload []byte) error

// Replay implements Replayer.
func (f ReplayFunc) Replay(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

// HTTPReplayer posts the body to the webhook endpoint with the internal
// secret header, exactly as a live delivery would arrive.
type HTTPReplayer struct {
	URL    string
	Secret string
	Client *http.Client
}

// NewHTTPReplayer returns a replayer with a 30 second client timeout.
func NewHTTPReplayer(url, secret string) *HTTPReplayer {
	return &HTTPReplayer{
		URL:    url,
		Secret: secret,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Replay implements Replayer. Any non-2xx answer is an error.
func (r *HTTPReplayer) Replay(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build replay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(domain.InternalWebhookSecretHeader, r.Secret)
	if id := domain.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("replay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("replay rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// RetryOutcome is the state a queue entry is left in after one attempt.
type RetryOutcome struct {
	Succeeded   bool
	Exhausted   bool
	RetryCount  int32
	NextRetryAt time.Time
	Err         error
}

// ProcessWebhookRetry replays one claimed queue entry and records the result.
//
// A success marks the entry succeeded. A failure increments retry_count and
// schedules the next attempt at now + 60s * 2^retry_count; once retry_count
// reaches max_retries the entry is marked exhausted and kept for manual
// inspection. The returned error is only for failures to record the outcome.
func ProcessWebhookRetry(ctx context.Context, q repository.Querier, replayer Replayer, entry repository.WebhookQueueEntry, now time.Time) (RetryOutcome, error) {
	attempt := entry.RetryCount + 1

	if err := replayer.Replay(ctx, entry.Payload); err != nil {
		out := RetryOutcome{
			RetryCount:  attempt,
			NextRetryAt: now.Add(domain.WebhookRetryDelay(int(attempt))),
			Exhausted:   attempt >= entry.MaxRetries,
			Err:         err,
		}
		status := domain.WebhookQueuePending
		if out.Exhausted {
			status = domain.WebhookQueueExhausted
		}
		if rerr := q.RecordWebhookRetryFailure(ctx, repository.RecordWebhookRetryFailureParams{
			ID:          entry.ID,
			Status:      status,
			RetryCount:  out.RetryCount,
			NextRetryAt: out.NextRetryAt,
			LastError:   err.Error(),
		}); rerr != nil {
			return out, fmt.Errorf("failed to record retry failure: %w", rerr)
		}
		return out, nil
	}

	out := RetryOutcome{Succeeded: true, RetryCount: attempt}
	if err := q.MarkWebhookRetrySucceeded(ctx, repository.MarkWebhookRetrySucceededParams{
		ID:         entry.ID,
		RetryCount: attempt,
	}); err != nil {
		return out, fmt.Errorf("failed to mark retry succeeded: %w", err)
	}
	return out, nil
}
