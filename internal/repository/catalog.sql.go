package repository

import (
	"context"

	"github.com/google/uuid"
)

const getProductVariant = `-- name: GetProductVariant :one
SELECT v.id, v.product_id, p.name, p.category, v.name, v.weight_grams, v.billing_plan_id
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = $1
`

func (q *Queries) GetProductVariant(ctx context.Context, id uuid.UUID) (ProductVariant, error) {
	row := q.db.QueryRow(ctx, getProductVariant, id)
	var i ProductVariant
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.ProductName,
		&i.Category,
		&i.VariantName,
		&i.WeightGrams,
		&i.BillingPlanID,
	)
	return i, err
}
