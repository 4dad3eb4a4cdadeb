package routes

import (
	"github.com/dukerupert/roastbox/internal/router"
)

// RegisterAPIRoutes registers the authenticated customer API.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	var chain []router.Middleware
	for _, m := range []router.Middleware{deps.Auth, deps.RateLimit} {
		if m != nil {
			chain = append(chain, m)
		}
	}
	api := r.Group(chain...)

	// Subscriptions
	api.Post("/api/subscriptions", deps.SubscriptionHandler.Create)
	api.Get("/api/subscriptions", deps.SubscriptionHandler.List)
	api.Post("/api/subscriptions/manage", deps.SubscriptionHandler.Manage)

	// Deliveries (list, update_date, skip, admin_update_status)
	api.Post("/api/deliveries", deps.DeliveryHandler.Handle)
}
