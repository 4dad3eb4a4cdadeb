package routes

import (
	"net/http"

	"github.com/dukerupert/roastbox/internal/router"
)

// RegisterOpsRoutes registers health, metrics and the retry queue trigger.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.HealthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	if deps.InternalAuth == nil || deps.QueueHandler == nil {
		return
	}
	internal := r.Group(deps.InternalAuth)
	internal.Post("/internal/webhook-queue/process", deps.QueueHandler.Process)
}
