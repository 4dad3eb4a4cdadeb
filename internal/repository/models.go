package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ProductVariant is a catalog variant joined with its product.
type ProductVariant struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	ProductName   string
	Category      string
	VariantName   string
	WeightGrams   int32
	BillingPlanID pgtype.Text
}

type PendingSubscription struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	ProductID              uuid.UUID
	VariantID              uuid.UUID
	Quantity               int32
	PreferredDeliveryDay   int32
	TotalDeliveries        int32
	ShippingAddress        []byte
	BillingPlanID          string
	ProviderSubscriptionID string
	Status                 string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type SubscriptionDelivery struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	CycleNumber    int32
	DeliveryDate   time.Time
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeliveryWithProduct is a delivery enriched for the customer listing.
type DeliveryWithProduct struct {
	ID                 uuid.UUID
	SubscriptionID     uuid.UUID
	CycleNumber        int32
	DeliveryDate       time.Time
	Status             string
	CreatedAt          time.Time
	SubscriptionStatus string
	Quantity           int32
	ProductName        string
	VariantName        string
	WeightGrams        int32
}

type PendingOrder struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ProviderOrderID string
	Items           []byte
	ShippingAddress []byte
	AmountPaise     int64
	Currency        string
	CreatedAt       time.Time
}

type Order struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	ProviderOrderID   string
	ProviderPaymentID string
	AmountPaise       int64
	Currency          string
	ShippingAddress   []byte
	Status            string
	CreatedAt         time.Time
}

type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	ProductName    string
	VariantName    string
	Quantity       int32
	UnitPricePaise int64
	CreatedAt      time.Time
}

type WebhookLog struct {
	ID          uuid.UUID
	EventType   string
	Payload     []byte
	Processed   bool
	Error       pgtype.Text
	Replay      bool
	CreatedAt   time.Time
	ProcessedAt pgtype.Timestamptz
}

type WebhookQueueEntry struct {
	ID           uuid.UUID
	WebhookLogID pgtype.UUID
	EventType    string
	Payload      []byte
	Status       string
	RetryCount   int32
	MaxRetries   int32
	NextRetryAt  time.Time
	LastError    pgtype.Text
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
