package service

import (
	"context"
	"time"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionService provides business logic for subscription operations.
type SubscriptionService interface {
	// CreateSubscription creates a recurring subscription for a customer.
	//
	// Flow:
	//  1. Validates preferred day, quantity and delivery count
	//  2. Checks the variant belongs to the product, the product category is
	//     eligible and the variant weight is the subscription size
	//  3. Resolves the variant's billing plan and confirms it is active
	//  4. Creates the provider subscription
	//  5. Persists the subscription record (status: "created")
	//  6. Schedules the cycle 1 delivery for tomorrow
	//
	// If step 5 or 6 fails the provider subscription is cancelled so it does
	// not bill without a local record.
	//
	// Returns ErrNoBillingPlan when the variant has no linked plan.
	// Returns an EUPSTREAM error carrying the provider message when the
	// provider rejects the call.
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*CreateSubscriptionResult, error)

	// GetSubscription returns one subscription owned by the user.
	GetSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*SubscriptionDetail, error)

	// ListSubscriptions returns every subscription of the user, newest first.
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]SubscriptionDetail, error)

	// PauseSubscription pauses an active subscription at the provider until
	// ResumeAt, then marks it paused.
	PauseSubscription(ctx context.Context, params PauseSubscriptionParams) (*SubscriptionDetail, error)

	// ResumeSubscription resumes a paused subscription immediately.
	ResumeSubscription(ctx context.Context, params ManageSubscriptionParams) (*SubscriptionDetail, error)

	// CancelSubscription cancels immediately. The row is kept with status
	// "cancelled"; scheduled deliveries are left for fulfillment to settle.
	CancelSubscription(ctx context.Context, params ManageSubscriptionParams) (*SubscriptionDetail, error)
}

// SubscriptionConfig holds the eligibility rules.
type SubscriptionConfig struct {
	// Category is the only product category that can be subscribed to
	Category string

	// WeightGrams is the only variant size that can be subscribed to
	WeightGrams int32

	// Location is the calendar delivery dates are computed in (default UTC)
	Location *time.Location
}

// CreateSubscriptionParams contains parameters for creating a subscription.
type CreateSubscriptionParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	VariantID uuid.UUID

	// Quantity of packs per delivery
	Quantity int32

	// PreferredDeliveryDay is the day of month (1-28) the customer prefers
	PreferredDeliveryDay int32

	// TotalDeliveries is the number of billing cycles
	TotalDeliveries int32

	ShippingAddress domain.ShippingAddress
}

// CreateSubscriptionResult is returned after a successful create.
type CreateSubscriptionResult struct {
	// ProviderSubscriptionID is the billing provider's subscription id
	ProviderSubscriptionID string

	// ShortURL is the hosted checkout link for the first payment
	ShortURL string

	// PendingSubscriptionID is the internal subscription id
	PendingSubscriptionID uuid.UUID

	PlanAmount decimal.Decimal
	Currency   string

	FirstDelivery DeliveryDetail
}

// PauseSubscriptionParams contains parameters for pausing a subscription.
type PauseSubscriptionParams struct {
	UserID         uuid.UUID
	SubscriptionID uuid.UUID

	// ResumeAt is when the provider resumes billing; must be in the future
	ResumeAt time.Time
}

// ManageSubscriptionParams identifies a subscription for resume or cancel.
type ManageSubscriptionParams struct {
	UserID         uuid.UUID
	SubscriptionID uuid.UUID
}

// SubscriptionDetail is a subscription as shown to its owner.
type SubscriptionDetail struct {
	ID                     uuid.UUID              `json:"id"`
	ProductID              uuid.UUID              `json:"product_id"`
	VariantID              uuid.UUID              `json:"variant_id"`
	Quantity               int32                  `json:"quantity"`
	PreferredDeliveryDay   int32                  `json:"preferred_delivery_day"`
	TotalDeliveries        int32                  `json:"total_deliveries"`
	ShippingAddress        domain.ShippingAddress `json:"shipping_address"`
	BillingPlanID          string                 `json:"billing_plan_id"`
	ProviderSubscriptionID string                 `json:"provider_subscription_id"`
	Status                 string                 `json:"status"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}
