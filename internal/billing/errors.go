package billing

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPlanNotFound is returned when the provider does not return a plan.
	ErrPlanNotFound = errors.New("billing: plan not found")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrInvalidEvent is returned when a webhook body does not match the
	// schema of its event type.
	ErrInvalidEvent = errors.New("billing: invalid webhook event")

	// ErrMissingCredentials is returned when the API key pair is not configured.
	ErrMissingCredentials = errors.New("billing: missing API credentials")
)

// ProviderError is a non-2xx answer from the provider API. Description holds
// the provider's own message and is safe to show to callers.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
	Field       string
	Err         error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("razorpay: %s (status %d, code %s)", e.Description, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("razorpay: %s (status %d)", e.Description, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTemporary reports whether the request may succeed if repeated.
func (e *ProviderError) IsTemporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
