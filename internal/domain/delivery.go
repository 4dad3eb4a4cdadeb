package domain

import (
	"math"
	"time"
)

// Delivery statuses. Delivered and skipped are terminal for customers; only
// an admin override can move a delivery out of them.
const (
	DeliveryStatusScheduled = "scheduled"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusSkipped   = "skipped"
)

// DeliveryCutoffDays is the lead time during which a customer can no longer
// move or skip a delivery.
const DeliveryCutoffDays = 3

// FirstDeliveryCycle is the delivery bundled with the first payment.
const FirstDeliveryCycle = 1

// ValidDeliveryStatus reports whether s is a known delivery status.
func ValidDeliveryStatus(s string) bool {
	switch s {
	case DeliveryStatusScheduled, DeliveryStatusDelivered, DeliveryStatusSkipped:
		return true
	}
	return false
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysUntil returns the whole calendar days from today to date. Both values
// are compared as dates in today's location.
func DaysUntil(today, date time.Time) int {
	from := DateOnly(today)
	y, m, d := date.Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// NextDeliveryDate is the date a newly scheduled delivery ships: tomorrow.
func NextDeliveryDate(now time.Time) time.Time {
	return DateOnly(now).AddDate(0, 0, 1)
}
