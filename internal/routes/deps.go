package routes

import (
	"net/http"

	"github.com/dukerupert/roastbox/internal/handler/api"
	"github.com/dukerupert/roastbox/internal/handler/ops"
	"github.com/dukerupert/roastbox/internal/router"
)

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	RazorpayHandler http.HandlerFunc
}

// APIDeps contains dependencies for the customer API routes
type APIDeps struct {
	SubscriptionHandler *api.SubscriptionHandler
	DeliveryHandler     *api.DeliveryHandler

	// Auth authenticates the caller; RateLimit runs after it so limits are
	// per user.
	Auth      router.Middleware
	RateLimit router.Middleware
}

// OpsDeps contains dependencies for health, metrics and internal routes
type OpsDeps struct {
	HealthHandler  *ops.HealthHandler
	QueueHandler   *ops.QueueHandler
	MetricsHandler http.Handler

	// InternalAuth guards /internal/ routes
	InternalAuth router.Middleware
}
