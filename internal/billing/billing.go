// Package billing wraps the recurring-payments provider: plan lookup,
// subscription lifecycle calls, webhook signature checks and webhook event
// parsing.
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the recurring billing operations the subscription service
// needs. The production implementation talks to Razorpay over REST.
type Provider interface {
	// GetPlan fetches a plan. Any non-2xx answer is reported as ErrPlanNotFound.
	GetPlan(ctx context.Context, planID string) (*Plan, error)

	// CreateSubscription creates a provider subscription on an existing plan.
	// The returned ShortURL is the hosted checkout link for the first payment.
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)

	// PauseSubscription pauses billing now and schedules a resume.
	PauseSubscription(ctx context.Context, params PauseSubscriptionParams) (*Subscription, error)

	// ResumeSubscription resumes a paused subscription now.
	ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	// CancelSubscription cancels immediately, not at cycle end.
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	// VerifyWebhookSignature checks the HMAC signature of a raw webhook body.
	VerifyWebhookSignature(payload []byte, signature string, secret string) error
}

// Plan is a provider billing plan.
type Plan struct {
	ID       string
	Period   string // daily, weekly, monthly, yearly
	Interval int
	// AmountPaise is the per-cycle charge in the smallest currency unit.
	AmountPaise int64
	Currency    string
	// Status is optional; older plans carry none.
	Status string
	// ItemActive mirrors the plan item's active flag when present.
	ItemActive *bool
}

// IsActive reports whether the plan can take new subscriptions. Missing
// status fields are treated as active.
func (p *Plan) IsActive() bool {
	if p.Status != "" && p.Status != "active" {
		return false
	}
	if p.ItemActive != nil && !*p.ItemActive {
		return false
	}
	return true
}

// Amount returns the per-cycle charge in major currency units.
func (p *Plan) Amount() decimal.Decimal {
	return decimal.New(p.AmountPaise, -2)
}

// CreateSubscriptionParams contains parameters for creating a subscription.
type CreateSubscriptionParams struct {
	// PlanID is the provider plan to bill against
	PlanID string

	// TotalCount is the number of billing cycles (one delivery per cycle)
	TotalCount int

	// Quantity multiplies the plan amount per cycle
	Quantity int

	// CustomerNotify lets the provider email/SMS the customer
	CustomerNotify bool

	// Notes are free-form key/values stored on the provider object
	Notes map[string]string
}

// PauseSubscriptionParams contains parameters for pausing a subscription.
type PauseSubscriptionParams struct {
	SubscriptionID string
	ResumeAt       time.Time
}

// Subscription is the provider's view of a subscription.
type Subscription struct {
	ID         string
	PlanID     string
	Status     string
	ShortURL   string
	PaidCount  int
	TotalCount int
	Quantity   int
}
