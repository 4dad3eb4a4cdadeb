// Package events publishes reconciliation outcomes (orders created,
// deliveries scheduled or edited, subscription status changes) for
// downstream consumers such as fulfillment and notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects, relative to the configured prefix.
const (
	SubjectOrderCreated          = "order.created"
	SubjectDeliveryScheduled     = "delivery.scheduled"
	SubjectDeliveryUpdated       = "delivery.updated"
	SubjectDeliverySkipped       = "delivery.skipped"
	SubjectSubscriptionCreated   = "subscription.created"
	SubjectSubscriptionActivated = "subscription.activated"
	SubjectSubscriptionPaused    = "subscription.paused"
	SubjectSubscriptionResumed   = "subscription.resumed"
	SubjectSubscriptionCancelled = "subscription.cancelled"
)

// Publisher sends an event. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Message is the JSON envelope written to the bus.
type Message struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// NATSPublisher publishes JSON messages to core NATS.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect dials url and returns a publisher that prefixes every subject.
func Connect(url, prefix, clientName string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect to nats: %w", err)
	}
	return &NATSPublisher{conn: nc, prefix: prefix}, nil
}

// Subject returns the fully qualified subject for name.
func (p *NATSPublisher) Subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := p.Subject(subject)
	data, err := json.Marshal(Message{Subject: full, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", subject, err)
	}
	if err := p.conn.Publish(full, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", full, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NopPublisher discards events. Used when NATS is not configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }
