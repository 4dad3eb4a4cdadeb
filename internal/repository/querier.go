package repository

import (
	"context"

	"github.com/google/uuid"
)

// Querier is the full set of persistence operations. Services depend on this
// interface so tests can swap in MemoryStore.
type Querier interface {
	// Catalog (read only)
	GetProductVariant(ctx context.Context, id uuid.UUID) (ProductVariant, error)

	// Subscriptions
	CreatePendingSubscription(ctx context.Context, arg CreatePendingSubscriptionParams) (PendingSubscription, error)
	GetPendingSubscription(ctx context.Context, id uuid.UUID) (PendingSubscription, error)
	GetPendingSubscriptionByProviderID(ctx context.Context, providerSubscriptionID string) (PendingSubscription, error)
	ListPendingSubscriptionsForUser(ctx context.Context, userID uuid.UUID) ([]PendingSubscription, error)
	UpdatePendingSubscriptionStatus(ctx context.Context, arg UpdatePendingSubscriptionStatusParams) (PendingSubscription, error)

	// Deliveries
	CreateDelivery(ctx context.Context, arg CreateDeliveryParams) (SubscriptionDelivery, error)
	GetDelivery(ctx context.Context, id uuid.UUID) (SubscriptionDelivery, error)
	GetDeliveryByCycle(ctx context.Context, arg GetDeliveryByCycleParams) (SubscriptionDelivery, error)
	CountDeliveriesForSubscription(ctx context.Context, subscriptionID uuid.UUID) (int64, error)
	ListDeliveriesForUser(ctx context.Context, userID uuid.UUID) ([]DeliveryWithProduct, error)
	UpdateDeliveryDate(ctx context.Context, arg UpdateDeliveryDateParams) (SubscriptionDelivery, error)
	UpdateDeliveryStatus(ctx context.Context, arg UpdateDeliveryStatusParams) (SubscriptionDelivery, error)

	// Orders
	GetPendingOrderByProviderOrderID(ctx context.Context, providerOrderID string) (PendingOrder, error)
	DeletePendingOrder(ctx context.Context, id uuid.UUID) error
	DeletePendingOrderByProviderOrderID(ctx context.Context, providerOrderID string) (int64, error)
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	GetOrderByProviderPaymentID(ctx context.Context, providerPaymentID string) (Order, error)
	CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error)
	DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	// Webhook audit log and retry queue
	CreateWebhookLog(ctx context.Context, arg CreateWebhookLogParams) (WebhookLog, error)
	MarkWebhookLogProcessed(ctx context.Context, id uuid.UUID) error
	MarkWebhookLogFailed(ctx context.Context, arg MarkWebhookLogFailedParams) error
	EnqueueWebhookRetry(ctx context.Context, arg EnqueueWebhookRetryParams) (WebhookQueueEntry, error)
	ClaimDueWebhookRetries(ctx context.Context, arg ClaimDueWebhookRetriesParams) ([]WebhookQueueEntry, error)
	MarkWebhookRetrySucceeded(ctx context.Context, arg MarkWebhookRetrySucceededParams) error
	RecordWebhookRetryFailure(ctx context.Context, arg RecordWebhookRetryFailureParams) error
}
