package ops

import (
	"context"
	"net/http"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/handler"
	"github.com/dukerupert/roastbox/internal/worker"
)

// RetryRunner runs one pass over the webhook retry queue.
type RetryRunner interface {
	RunOnce(ctx context.Context) (worker.Result, error)
}

// QueueHandler lets a scheduler trigger a retry pass over HTTP.
type QueueHandler struct {
	runner RetryRunner
}

func NewQueueHandler(runner RetryRunner) *QueueHandler {
	return &QueueHandler{runner: runner}
}

// Process runs one pass and returns its counts.
func (h *QueueHandler) Process(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.RunOnce(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, domain.Internal(err, "queue.Process", "retry pass failed"))
		return
	}
	handler.WriteJSON(w, http.StatusOK, result)
}
