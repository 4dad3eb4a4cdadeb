package service

import (
	"github.com/dukerupert/roastbox/internal/domain"
)

// Subscription request validation
var (
	ErrInvalidPreferredDay    = domain.Errorf(domain.EINVALID, "", "Preferred delivery day must be between 1 and 28")
	ErrInvalidQuantity        = domain.Errorf(domain.EINVALID, "", "Quantity must be greater than 0")
	ErrInvalidTotalDeliveries = domain.Errorf(domain.EINVALID, "", "Total deliveries must be greater than 0")
	ErrVariantProductMismatch = domain.Errorf(domain.EINVALID, "", "Variant does not belong to the selected product")
	ErrIneligibleCategory     = domain.Errorf(domain.EINVALID, "", "Product category is not eligible for subscription")
	ErrIneligibleSize         = domain.Errorf(domain.EINVALID, "", "Variant size is not eligible for subscription")
	ErrNoBillingPlan          = domain.Errorf(domain.EINVALID, "", "This product has no subscription plan. Please buy it as a one-time purchase instead")
	ErrPlanUnavailable        = domain.Errorf(domain.EINVALID, "", "The subscription plan for this product is no longer available")
	ErrInvalidResumeDate      = domain.Errorf(domain.EINVALID, "", "Resume date must be in the future")
	ErrInvalidShippingAddress = domain.Errorf(domain.EINVALID, "", "Shipping address is incomplete")
	ErrVariantNotFound        = domain.Errorf(domain.ENOTFOUND, "", "Product variant not found")
)

// Subscription lifecycle errors
var (
	ErrSubscriptionNotFound         = domain.Errorf(domain.ENOTFOUND, "", "Subscription not found")
	ErrSubscriptionNotOwned         = domain.Errorf(domain.EFORBIDDEN, "", "Subscription belongs to another customer")
	ErrSubscriptionNotActive        = domain.Errorf(domain.EINVALID, "", "Subscription is not active")
	ErrSubscriptionNotPaused        = domain.Errorf(domain.EINVALID, "", "Subscription is not paused")
	ErrSubscriptionAlreadyCancelled = domain.Errorf(domain.ECONFLICT, "", "Subscription is already cancelled")
)

// Delivery errors. Each rule a customer edit can break has its own message.
var (
	ErrDeliveryNotFound      = domain.Errorf(domain.ENOTFOUND, "", "Delivery not found")
	ErrDeliveryNotOwned      = domain.Errorf(domain.EFORBIDDEN, "", "Delivery belongs to another customer")
	ErrFirstDeliveryLocked   = domain.Errorf(domain.EINVALID, "", "The first delivery ships with your first payment and cannot be changed")
	ErrDeliveryNotScheduled  = domain.Errorf(domain.EINVALID, "", "Only scheduled deliveries can be changed")
	ErrDeliveryTooClose      = domain.Errorf(domain.EINVALID, "", "This delivery is within 3 days and can no longer be changed")
	ErrNewDateTooClose       = domain.Errorf(domain.EINVALID, "", "The new delivery date must be more than 3 days away")
	ErrAdminRequired         = domain.Errorf(domain.EFORBIDDEN, "", "Admin access required")
	ErrInvalidDeliveryStatus = domain.Errorf(domain.EINVALID, "", "Delivery status must be scheduled, delivered or skipped")
)

// Webhook errors
var (
	ErrInvalidWebhookEvent = domain.Errorf(domain.EINVALID, "", "Webhook body is not a valid event")
)
