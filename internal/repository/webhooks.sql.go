package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createWebhookLog = `-- name: CreateWebhookLog :one
INSERT INTO webhook_logs (event_type, payload, replay, processed)
VALUES ($1, $2, $3, false)
RETURNING id, event_type, payload, processed, error, replay, created_at, processed_at
`

type CreateWebhookLogParams struct {
	EventType string
	Payload   []byte
	Replay    bool
}

func (q *Queries) CreateWebhookLog(ctx context.Context, arg CreateWebhookLogParams) (WebhookLog, error) {
	row := q.db.QueryRow(ctx, createWebhookLog, arg.EventType, arg.Payload, arg.Replay)
	var i WebhookLog
	err := row.Scan(
		&i.ID,
		&i.EventType,
		&i.Payload,
		&i.Processed,
		&i.Error,
		&i.Replay,
		&i.CreatedAt,
		&i.ProcessedAt,
	)
	return i, err
}

const markWebhookLogProcessed = `-- name: MarkWebhookLogProcessed :exec
UPDATE webhook_logs SET processed = true, error = NULL, processed_at = now() WHERE id = $1
`

func (q *Queries) MarkWebhookLogProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, markWebhookLogProcessed, id)
	return err
}

const markWebhookLogFailed = `-- name: MarkWebhookLogFailed :exec
UPDATE webhook_logs SET error = $2 WHERE id = $1
`

type MarkWebhookLogFailedParams struct {
	ID    uuid.UUID
	Error string
}

func (q *Queries) MarkWebhookLogFailed(ctx context.Context, arg MarkWebhookLogFailedParams) error {
	_, err := q.db.Exec(ctx, markWebhookLogFailed, arg.ID, arg.Error)
	return err
}

const webhookQueueColumns = `id, webhook_log_id, event_type, payload, status, retry_count, max_retries,
next_retry_at, last_error, created_at, updated_at`

func scanWebhookQueueEntry(row interface{ Scan(...any) error }) (WebhookQueueEntry, error) {
	var i WebhookQueueEntry
	err := row.Scan(
		&i.ID,
		&i.WebhookLogID,
		&i.EventType,
		&i.Payload,
		&i.Status,
		&i.RetryCount,
		&i.MaxRetries,
		&i.NextRetryAt,
		&i.LastError,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const enqueueWebhookRetry = `-- name: EnqueueWebhookRetry :one
INSERT INTO webhook_queue (webhook_log_id, event_type, payload, status, retry_count, max_retries, next_retry_at, last_error)
VALUES ($1, $2, $3, 'pending', 0, $4, $5, $6)
RETURNING ` + webhookQueueColumns

type EnqueueWebhookRetryParams struct {
	WebhookLogID pgtype.UUID
	EventType    string
	Payload      []byte
	MaxRetries   int32
	NextRetryAt  time.Time
	LastError    pgtype.Text
}

func (q *Queries) EnqueueWebhookRetry(ctx context.Context, arg EnqueueWebhookRetryParams) (WebhookQueueEntry, error) {
	row := q.db.QueryRow(ctx, enqueueWebhookRetry,
		arg.WebhookLogID,
		arg.EventType,
		arg.Payload,
		arg.MaxRetries,
		arg.NextRetryAt,
		arg.LastError,
	)
	return scanWebhookQueueEntry(row)
}

// The claim pushes next_retry_at forward by a lease so a crashed worker's
// entries become due again instead of being stuck.
const claimDueWebhookRetries = `-- name: ClaimDueWebhookRetries :many
UPDATE webhook_queue
SET next_retry_at = $2, updated_at = now()
WHERE id IN (
    SELECT id FROM webhook_queue
    WHERE status = 'pending' AND next_retry_at <= $1
    ORDER BY next_retry_at
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + webhookQueueColumns

type ClaimDueWebhookRetriesParams struct {
	Now        time.Time
	LeaseUntil time.Time
	Limit      int32
}

func (q *Queries) ClaimDueWebhookRetries(ctx context.Context, arg ClaimDueWebhookRetriesParams) ([]WebhookQueueEntry, error) {
	rows, err := q.db.Query(ctx, claimDueWebhookRetries, arg.Now, arg.LeaseUntil, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WebhookQueueEntry
	for rows.Next() {
		i, err := scanWebhookQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const markWebhookRetrySucceeded = `-- name: MarkWebhookRetrySucceeded :exec
UPDATE webhook_queue
SET status = 'succeeded', retry_count = $2, last_error = NULL, updated_at = now()
WHERE id = $1
`

type MarkWebhookRetrySucceededParams struct {
	ID         uuid.UUID
	RetryCount int32
}

func (q *Queries) MarkWebhookRetrySucceeded(ctx context.Context, arg MarkWebhookRetrySucceededParams) error {
	_, err := q.db.Exec(ctx, markWebhookRetrySucceeded, arg.ID, arg.RetryCount)
	return err
}

const recordWebhookRetryFailure = `-- name: RecordWebhookRetryFailure :exec
UPDATE webhook_queue
SET status = $2, retry_count = $3, next_retry_at = $4, last_error = $5, updated_at = now()
WHERE id = $1
`

type RecordWebhookRetryFailureParams struct {
	ID          uuid.UUID
	Status      string
	RetryCount  int32
	NextRetryAt time.Time
	LastError   string
}

func (q *Queries) RecordWebhookRetryFailure(ctx context.Context, arg RecordWebhookRetryFailureParams) error {
	_, err := q.db.Exec(ctx, recordWebhookRetryFailure,
		arg.ID,
		arg.Status,
		arg.RetryCount,
		arg.NextRetryAt,
		arg.LastError,
	)
	return err
}
