package billing

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Webhook event names handled by the reconciler.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventInvoicePaid     = "invoice.paid"
	EventInvoiceFailed   = "invoice.failed"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Envelope is the outer shape of every webhook body.
type Envelope struct {
	Event   string          `json:"event" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// Event is one parsed webhook. The concrete type is one of PaymentCaptured,
// PaymentFailed, InvoicePaid, InvoiceFailed or Unhandled.
type Event interface {
	Name() string
}

// PaymentEntity is the payment object inside payment.* events. The order
// reference is read from here; the order entity is not always sent.
type PaymentEntity struct {
	ID        string `json:"id" validate:"required"`
	OrderID   string `json:"order_id"`
	InvoiceID string `json:"invoice_id"`
	Amount    int64  `json:"amount" validate:"gte=0"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Method    string `json:"method"`
	Email     string `json:"email"`
	Contact   string `json:"contact"`
}

// InvoiceEntity is the invoice object inside invoice.* events.
type InvoiceEntity struct {
	ID             string `json:"id" validate:"required"`
	SubscriptionID string `json:"subscription_id"`
	PaymentID      string `json:"payment_id"`
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	AmountPaid     int64  `json:"amount_paid"`
	// BillingCycle is the provider's 1-based cycle counter, when sent.
	BillingCycle *int32 `json:"billing_cycle" validate:"omitempty,gte=1"`
}

// SubscriptionEntity is the subscription object some invoice events carry.
type SubscriptionEntity struct {
	ID         string `json:"id" validate:"required"`
	Status     string `json:"status"`
	PaidCount  *int32 `json:"paid_count" validate:"omitempty,gte=0"`
	TotalCount int32  `json:"total_count"`
}

type PaymentCaptured struct{ Payment PaymentEntity }

type PaymentFailed struct{ Payment PaymentEntity }

// InvoicePaid carries the invoice and, when sent, the subscription entity.
// SubscriptionID is resolved from whichever of the two names it.
type InvoicePaid struct {
	Invoice        InvoiceEntity
	Subscription   *SubscriptionEntity
	SubscriptionID string
}

type InvoiceFailed struct{ Invoice InvoiceEntity }

// Unhandled is any event the reconciler acknowledges without acting on.
type Unhandled struct{ Event string }

func (PaymentCaptured) Name() string { return EventPaymentCaptured }
func (PaymentFailed) Name() string   { return EventPaymentFailed }
func (InvoicePaid) Name() string     { return EventInvoicePaid }
func (InvoiceFailed) Name() string   { return EventInvoiceFailed }
func (u Unhandled) Name() string     { return u.Event }

// BillingCycle returns the cycle number the provider reports for this
// invoice: the invoice counter first, then the subscription paid count.
// ok is false when neither is present.
func (e InvoicePaid) BillingCycle() (cycle int32, ok bool) {
	if e.Invoice.BillingCycle != nil {
		return *e.Invoice.BillingCycle, true
	}
	if e.Subscription != nil && e.Subscription.PaidCount != nil && *e.Subscription.PaidCount > 0 {
		return *e.Subscription.PaidCount, true
	}
	return 0, false
}

type eventPayload struct {
	Payment *struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment"`
	Invoice *struct {
		Entity InvoiceEntity `json:"entity"`
	} `json:"invoice"`
	Subscription *struct {
		Entity SubscriptionEntity `json:"entity"`
	} `json:"subscription"`
}

// PeekEventName returns the event name of a raw body without validating the
// rest. It returns "" when the body is not a JSON object with an event field.
func PeekEventName(raw []byte) string {
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Event
}

// ParseEvent decodes a raw webhook body into its typed variant and validates
// the fields that variant needs. Errors wrap ErrInvalidEvent.
func ParseEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("%w: event name is required", ErrInvalidEvent)
	}

	switch env.Event {
	case EventPaymentCaptured, EventPaymentFailed, EventInvoicePaid, EventInvoiceFailed:
	default:
		return Unhandled{Event: env.Event}, nil
	}

	var payload eventPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrInvalidEvent, env.Event, err)
		}
	}

	switch env.Event {
	case EventPaymentCaptured, EventPaymentFailed:
		if payload.Payment == nil {
			return nil, fmt.Errorf("%w: %s without payment entity", ErrInvalidEvent, env.Event)
		}
		p := payload.Payment.Entity
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: %s payment: %v", ErrInvalidEvent, env.Event, err)
		}
		if env.Event == EventPaymentFailed {
			return PaymentFailed{Payment: p}, nil
		}
		if err := validate.Var(p.OrderID, "required"); err != nil {
			return nil, fmt.Errorf("%w: payment %s has no order_id", ErrInvalidEvent, p.ID)
		}
		return PaymentCaptured{Payment: p}, nil

	case EventInvoicePaid, EventInvoiceFailed:
		if payload.Invoice == nil {
			return nil, fmt.Errorf("%w: %s without invoice entity", ErrInvalidEvent, env.Event)
		}
		inv := payload.Invoice.Entity
		if err := validate.Struct(inv); err != nil {
			return nil, fmt.Errorf("%w: %s invoice: %v", ErrInvalidEvent, env.Event, err)
		}
		if env.Event == EventInvoiceFailed {
			return InvoiceFailed{Invoice: inv}, nil
		}

		ev := InvoicePaid{Invoice: inv, SubscriptionID: inv.SubscriptionID}
		if payload.Subscription != nil {
			sub := payload.Subscription.Entity
			if err := validate.Struct(sub); err != nil {
				return nil, fmt.Errorf("%w: invoice.paid subscription: %v", ErrInvalidEvent, err)
			}
			ev.Subscription = &sub
			if ev.SubscriptionID == "" {
				ev.SubscriptionID = sub.ID
			}
		}
		if ev.SubscriptionID == "" {
			return nil, fmt.Errorf("%w: invoice %s has no subscription reference", ErrInvalidEvent, inv.ID)
		}
		return ev, nil
	}

	return Unhandled{Event: env.Event}, nil
}
