package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const deliveryColumns = `id, subscription_id, cycle_number, delivery_date, status, created_at, updated_at`

func scanDelivery(row interface{ Scan(...any) error }) (SubscriptionDelivery, error) {
	var i SubscriptionDelivery
	err := row.Scan(
		&i.ID,
		&i.SubscriptionID,
		&i.CycleNumber,
		&i.DeliveryDate,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createDelivery = `-- name: CreateDelivery :one
INSERT INTO subscription_deliveries (subscription_id, cycle_number, delivery_date, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + deliveryColumns

type CreateDeliveryParams struct {
	SubscriptionID uuid.UUID
	CycleNumber    int32
	DeliveryDate   time.Time
	Status         string
}

func (q *Queries) CreateDelivery(ctx context.Context, arg CreateDeliveryParams) (SubscriptionDelivery, error) {
	row := q.db.QueryRow(ctx, createDelivery,
		arg.SubscriptionID,
		arg.CycleNumber,
		arg.DeliveryDate,
		arg.Status,
	)
	return scanDelivery(row)
}

const getDelivery = `-- name: GetDelivery :one
SELECT ` + deliveryColumns + `
FROM subscription_deliveries
WHERE id = $1
`

func (q *Queries) GetDelivery(ctx context.Context, id uuid.UUID) (SubscriptionDelivery, error) {
	return scanDelivery(q.db.QueryRow(ctx, getDelivery, id))
}

const getDeliveryByCycle = `-- name: GetDeliveryByCycle :one
SELECT ` + deliveryColumns + `
FROM subscription_deliveries
WHERE subscription_id = $1 AND cycle_number = $2
`

type GetDeliveryByCycleParams struct {
	SubscriptionID uuid.UUID
	CycleNumber    int32
}

func (q *Queries) GetDeliveryByCycle(ctx context.Context, arg GetDeliveryByCycleParams) (SubscriptionDelivery, error) {
	return scanDelivery(q.db.QueryRow(ctx, getDeliveryByCycle, arg.SubscriptionID, arg.CycleNumber))
}

const countDeliveriesForSubscription = `-- name: CountDeliveriesForSubscription :one
SELECT count(*) FROM subscription_deliveries WHERE subscription_id = $1
`

func (q *Queries) CountDeliveriesForSubscription(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countDeliveriesForSubscription, subscriptionID).Scan(&count)
	return count, err
}

const listDeliveriesForUser = `-- name: ListDeliveriesForUser :many
SELECT d.id, d.subscription_id, d.cycle_number, d.delivery_date, d.status, d.created_at,
       s.status, s.quantity, p.name, v.name, v.weight_grams
FROM subscription_deliveries d
JOIN pending_subscriptions s ON s.id = d.subscription_id
JOIN product_variants v ON v.id = s.variant_id
JOIN products p ON p.id = s.product_id
WHERE s.user_id = $1
ORDER BY d.delivery_date ASC, d.cycle_number ASC
`

func (q *Queries) ListDeliveriesForUser(ctx context.Context, userID uuid.UUID) ([]DeliveryWithProduct, error) {
	rows, err := q.db.Query(ctx, listDeliveriesForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DeliveryWithProduct
	for rows.Next() {
		var i DeliveryWithProduct
		if err := rows.Scan(
			&i.ID,
			&i.SubscriptionID,
			&i.CycleNumber,
			&i.DeliveryDate,
			&i.Status,
			&i.CreatedAt,
			&i.SubscriptionStatus,
			&i.Quantity,
			&i.ProductName,
			&i.VariantName,
			&i.WeightGrams,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateDeliveryDate = `-- name: UpdateDeliveryDate :one
UPDATE subscription_deliveries
SET delivery_date = $2, updated_at = now()
WHERE id = $1
RETURNING ` + deliveryColumns

type UpdateDeliveryDateParams struct {
	ID           uuid.UUID
	DeliveryDate time.Time
}

func (q *Queries) UpdateDeliveryDate(ctx context.Context, arg UpdateDeliveryDateParams) (SubscriptionDelivery, error) {
	return scanDelivery(q.db.QueryRow(ctx, updateDeliveryDate, arg.ID, arg.DeliveryDate))
}

const updateDeliveryStatus = `-- name: UpdateDeliveryStatus :one
UPDATE subscription_deliveries
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + deliveryColumns

type UpdateDeliveryStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateDeliveryStatus(ctx context.Context, arg UpdateDeliveryStatusParams) (SubscriptionDelivery, error) {
	return scanDelivery(q.db.QueryRow(ctx, updateDeliveryStatus, arg.ID, arg.Status))
}
