package domain

import "time"

// Retry queue statuses.
const (
	WebhookQueuePending   = "pending"
	WebhookQueueSucceeded = "succeeded"
	WebhookQueueExhausted = "exhausted"
)

const (
	// WebhookRetryBaseDelay is the delay before the first replay.
	WebhookRetryBaseDelay = 60 * time.Second

	// WebhookMaxRetries is how many replays a queue entry gets before it is
	// left for manual inspection.
	WebhookMaxRetries = 5
)

// WebhookRetryDelay returns the backoff for an entry that has been retried
// retryCount times: 60s * 2^retryCount.
func WebhookRetryDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	return WebhookRetryBaseDelay << uint(retryCount)
}

// InternalWebhookSecretHeader authenticates queue replays to the webhook
// endpoint in place of the provider signature.
const InternalWebhookSecretHeader = "X-Internal-Webhook-Secret"
