package worker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/repository"
)

// withJobContext tags ctx with a request id derived from the queue entry and
// the entry-scoped logger. The HTTP replayer forwards the id so the replayed
// request's logs can be matched to the queue entry.
func withJobContext(ctx context.Context, entry repository.WebhookQueueEntry, log zerolog.Logger) context.Context {
	ctx = domain.NewContextWithRequestID(ctx, "replay-"+entry.ID.String())
	return log.WithContext(ctx)
}
