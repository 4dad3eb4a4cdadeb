package domain

import "strings"

// Order statuses.
const (
	OrderStatusPaid = "paid"
)

// CartItem is one line of a pending order's cart snapshot.
type CartItem struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	VariantID      string `json:"variant_id" validate:"required,uuid"`
	Quantity       int32  `json:"quantity" validate:"required,gt=0"`
	UnitPricePaise int64  `json:"unit_price" validate:"gte=0"`
}

// NormalizePhone strips every non-digit and drops a leading two-digit country
// code when that leaves a twelve digit number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 12 {
		return digits[2:]
	}
	return digits
}
