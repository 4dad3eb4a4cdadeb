package routes

import (
	"github.com/dukerupert/roastbox/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
//
// Note: Webhook routes do NOT have authentication middleware.
// The handler verifies the Razorpay signature itself.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/razorpay", deps.RazorpayHandler)
}
