package domain

// Subscription statuses. A subscription starts as created when the provider
// object exists but no invoice has been paid, and becomes active on the first
// invoice.paid event. Cancelled rows are kept.
const (
	SubscriptionStatusCreated   = "created"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPaused    = "paused"
	SubscriptionStatusCancelled = "cancelled"
)

// Preferred delivery day bounds (day of month).
const (
	MinPreferredDeliveryDay = 1
	MaxPreferredDeliveryDay = 28
)

// ShippingAddress is stored as JSON on pending orders, orders and
// subscriptions.
type ShippingAddress struct {
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country,omitempty"`
}
