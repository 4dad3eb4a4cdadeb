package repository

import (
	"context"

	"github.com/google/uuid"
)

const getPendingOrderByProviderOrderID = `-- name: GetPendingOrderByProviderOrderID :one
SELECT id, user_id, provider_order_id, items, shipping_address, amount_paise, currency, created_at
FROM pending_orders
WHERE provider_order_id = $1
`

func (q *Queries) GetPendingOrderByProviderOrderID(ctx context.Context, providerOrderID string) (PendingOrder, error) {
	row := q.db.QueryRow(ctx, getPendingOrderByProviderOrderID, providerOrderID)
	var i PendingOrder
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ProviderOrderID,
		&i.Items,
		&i.ShippingAddress,
		&i.AmountPaise,
		&i.Currency,
		&i.CreatedAt,
	)
	return i, err
}

const deletePendingOrder = `-- name: DeletePendingOrder :exec
DELETE FROM pending_orders WHERE id = $1
`

func (q *Queries) DeletePendingOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePendingOrder, id)
	return err
}

const deletePendingOrderByProviderOrderID = `-- name: DeletePendingOrderByProviderOrderID :execrows
DELETE FROM pending_orders WHERE provider_order_id = $1
`

func (q *Queries) DeletePendingOrderByProviderOrderID(ctx context.Context, providerOrderID string) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePendingOrderByProviderOrderID, providerOrderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (user_id, provider_order_id, provider_payment_id, amount_paise, currency, shipping_address, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, provider_order_id, provider_payment_id, amount_paise, currency, shipping_address, status, created_at
`

type CreateOrderParams struct {
	UserID            uuid.UUID
	ProviderOrderID   string
	ProviderPaymentID string
	AmountPaise       int64
	Currency          string
	ShippingAddress   []byte
	Status            string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.ProviderOrderID,
		arg.ProviderPaymentID,
		arg.AmountPaise,
		arg.Currency,
		arg.ShippingAddress,
		arg.Status,
	)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ProviderOrderID,
		&i.ProviderPaymentID,
		&i.AmountPaise,
		&i.Currency,
		&i.ShippingAddress,
		&i.Status,
		&i.CreatedAt,
	)
	return i, err
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, variant_id, product_name, variant_name, quantity, unit_price_paise)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, product_id, variant_id, product_name, variant_name, quantity, unit_price_paise, created_at
`

type CreateOrderItemParams struct {
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	ProductName    string
	VariantName    string
	Quantity       int32
	UnitPricePaise int64
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.VariantID,
		arg.ProductName,
		arg.VariantName,
		arg.Quantity,
		arg.UnitPricePaise,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.VariantID,
		&i.ProductName,
		&i.VariantName,
		&i.Quantity,
		&i.UnitPricePaise,
		&i.CreatedAt,
	)
	return i, err
}

const deleteOrderItems = `-- name: DeleteOrderItems :exec
DELETE FROM order_items WHERE order_id = $1
`

func (q *Queries) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItems, orderID)
	return err
}

const deleteOrder = `-- name: DeleteOrder :exec
DELETE FROM orders WHERE id = $1
`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrder, id)
	return err
}

const getOrderByProviderPaymentID = `-- name: GetOrderByProviderPaymentID :one
SELECT id, user_id, provider_order_id, provider_payment_id, amount_paise, currency, shipping_address, status, created_at
FROM orders
WHERE provider_payment_id = $1
`

func (q *Queries) GetOrderByProviderPaymentID(ctx context.Context, providerPaymentID string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByProviderPaymentID, providerPaymentID)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ProviderOrderID,
		&i.ProviderPaymentID,
		&i.AmountPaise,
		&i.Currency,
		&i.ShippingAddress,
		&i.Status,
		&i.CreatedAt,
	)
	return i, err
}

const countOrderItems = `-- name: CountOrderItems :one
SELECT count(*) FROM order_items WHERE order_id = $1
`

func (q *Queries) CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOrderItems, orderID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
