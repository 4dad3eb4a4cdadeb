package repository

import (
	"context"

	"github.com/google/uuid"
)

const pendingSubscriptionColumns = `id, user_id, product_id, variant_id, quantity, preferred_delivery_day,
total_deliveries, shipping_address, billing_plan_id, provider_subscription_id, status, created_at, updated_at`

func scanPendingSubscription(row interface{ Scan(...any) error }) (PendingSubscription, error) {
	var i PendingSubscription
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ProductID,
		&i.VariantID,
		&i.Quantity,
		&i.PreferredDeliveryDay,
		&i.TotalDeliveries,
		&i.ShippingAddress,
		&i.BillingPlanID,
		&i.ProviderSubscriptionID,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPendingSubscription = `-- name: CreatePendingSubscription :one
INSERT INTO pending_subscriptions (
    user_id, product_id, variant_id, quantity, preferred_delivery_day,
    total_deliveries, shipping_address, billing_plan_id, provider_subscription_id, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + pendingSubscriptionColumns

type CreatePendingSubscriptionParams struct {
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
}

func (q *Queries) CreatePendingSubscription(ctx context.Context, arg CreatePendingSubscriptionParams) (PendingSubscription, error) {
	row := q.db.QueryRow(ctx, createPendingSubscription,
		arg.UserID,
		arg.ProductID,
		arg.VariantID,
		arg.Quantity,
		arg.PreferredDeliveryDay,
		arg.TotalDeliveries,
		arg.ShippingAddress,
		arg.BillingPlanID,
		arg.ProviderSubscriptionID,
		arg.Status,
	)
	return scanPendingSubscription(row)
}

const getPendingSubscription = `-- name: GetPendingSubscription :one
SELECT ` + pendingSubscriptionColumns + `
FROM pending_subscriptions
WHERE id = $1
`

func (q *Queries) GetPendingSubscription(ctx context.Context, id uuid.UUID) (PendingSubscription, error) {
	return scanPendingSubscription(q.db.QueryRow(ctx, getPendingSubscription, id))
}

const getPendingSubscriptionByProviderID = `-- name: GetPendingSubscriptionByProviderID :one
SELECT ` + pendingSubscriptionColumns + `
FROM pending_subscriptions
WHERE provider_subscription_id = $1
`

func (q *Queries) GetPendingSubscriptionByProviderID(ctx context.Context, providerSubscriptionID string) (PendingSubscription, error) {
	return scanPendingSubscription(q.db.QueryRow(ctx, getPendingSubscriptionByProviderID, providerSubscriptionID))
}

const listPendingSubscriptionsForUser = `-- name: ListPendingSubscriptionsForUser :many
SELECT ` + pendingSubscriptionColumns + `
FROM pending_subscriptions
WHERE user_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListPendingSubscriptionsForUser(ctx context.Context, userID uuid.UUID) ([]PendingSubscription, error) {
	rows, err := q.db.Query(ctx, listPendingSubscriptionsForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingSubscription
	for rows.Next() {
		i, err := scanPendingSubscription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updatePendingSubscriptionStatus = `-- name: UpdatePendingSubscriptionStatus :one
UPDATE pending_subscriptions
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + pendingSubscriptionColumns

type UpdatePendingSubscriptionStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdatePendingSubscriptionStatus(ctx context.Context, arg UpdatePendingSubscriptionStatusParams) (PendingSubscription, error) {
	return scanPendingSubscription(q.db.QueryRow(ctx, updatePendingSubscriptionStatus, arg.ID, arg.Status))
}
