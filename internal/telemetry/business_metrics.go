// Package telemetry holds Prometheus metrics for the reconciliation core.
// Every recording method is safe to call on a nil *BusinessMetrics so tests
// and tools can run without a registry.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
type BusinessMetrics struct {
	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	// Orders
	OrdersCreated     *prometheus.CounterVec
	OrderRollbacks    *prometheus.CounterVec
	OrderValue        *prometheus.HistogramVec
	RevenueCollected  *prometheus.CounterVec
	PendingOrdersDrop *prometheus.CounterVec

	// Subscriptions
	SubscriptionsCreated   *prometheus.CounterVec
	SubscriptionsRejected  *prometheus.CounterVec
	SubscriptionTransition *prometheus.CounterVec

	// Deliveries
	DeliveriesScheduled *prometheus.CounterVec
	DeliveryEdits       *prometheus.CounterVec

	// Retry queue
	RetryAttempts  *prometheus.CounterVec
	RetryExhausted prometheus.Counter
	RetryBatchSize prometheus.Histogram

	// External API performance
	BillingAPILatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates the metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "roastbox"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	subsystem := "business"

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &BusinessMetrics{
		WebhookReceived:  counter("webhook_received_total", "Webhooks received by event type", "event_type", "replay"),
		WebhookProcessed: counter("webhook_processed_total", "Webhooks processed successfully", "event_type"),
		WebhookFailed:    counter("webhook_failed_total", "Webhooks whose handling failed", "event_type"),
		WebhookLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_processing_seconds",
			Help:      "Webhook handling latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),

		OrdersCreated:  counter("orders_created_total", "Orders finalized from captured payments"),
		OrderRollbacks: counter("order_rollbacks_total", "Orders deleted after a line item failed", "reason"),
		OrderValue: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_value_rupees",
			Help:      "Order value distribution",
			Buckets:   []float64{250, 500, 1000, 2000, 5000, 10000, 25000},
		}, []string{"currency"}),
		RevenueCollected:  counter("revenue_collected_paise_total", "Captured revenue in paise", "currency"),
		PendingOrdersDrop: counter("pending_orders_dropped_total", "Pending orders removed after payment failure"),

		SubscriptionsCreated:   counter("subscriptions_created_total", "Subscriptions created with the provider"),
		SubscriptionsRejected:  counter("subscriptions_rejected_total", "Subscription requests rejected", "reason"),
		SubscriptionTransition: counter("subscription_transitions_total", "Subscription status changes", "to"),

		DeliveriesScheduled: counter("deliveries_scheduled_total", "Deliveries scheduled", "source"),
		DeliveryEdits:       counter("delivery_edits_total", "Delivery edits by action", "action"),

		RetryAttempts: counter("webhook_retry_attempts_total", "Webhook replays by outcome", "outcome"),
		RetryExhausted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_retry_exhausted_total",
			Help:      "Queue entries that ran out of retries",
		}),
		RetryBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_retry_batch_size",
			Help:      "Entries claimed per retry pass",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),

		BillingAPILatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "billing_api_seconds",
			Help:      "Billing provider API latency",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"}),
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordWebhookReceived counts an inbound or replayed webhook.
func (m *BusinessMetrics) RecordWebhookReceived(eventType string, replay bool) {
	if m == nil {
		return
	}
	r := "false"
	if replay {
		r = "true"
	}
	m.WebhookReceived.WithLabelValues(eventType, r).Inc()
}

// RecordWebhookResult counts the outcome and latency of one webhook.
func (m *BusinessMetrics) RecordWebhookResult(eventType string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	if ok {
		m.WebhookProcessed.WithLabelValues(eventType).Inc()
	} else {
		m.WebhookFailed.WithLabelValues(eventType).Inc()
	}
	m.WebhookLatency.WithLabelValues(eventType).Observe(d.Seconds())
}

// RecordOrderCreated counts a finalized order and its value.
func (m *BusinessMetrics) RecordOrderCreated(currency string, amountPaise int64) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues().Inc()
	m.OrderValue.WithLabelValues(currency).Observe(float64(amountPaise) / 100)
	m.RevenueCollected.WithLabelValues(currency).Add(float64(amountPaise))
}

// RecordOrderRollback counts an order removed by compensation.
func (m *BusinessMetrics) RecordOrderRollback(reason string) {
	if m == nil {
		return
	}
	m.OrderRollbacks.WithLabelValues(reason).Inc()
}

// RecordPendingOrderDropped counts a pending order removed on payment failure.
func (m *BusinessMetrics) RecordPendingOrderDropped() {
	if m == nil {
		return
	}
	m.PendingOrdersDrop.WithLabelValues().Inc()
}

// RecordSubscriptionCreated counts a new subscription.
func (m *BusinessMetrics) RecordSubscriptionCreated() {
	if m == nil {
		return
	}
	m.SubscriptionsCreated.WithLabelValues().Inc()
}

// RecordSubscriptionRejected counts a rejected create request by reason.
func (m *BusinessMetrics) RecordSubscriptionRejected(reason string) {
	if m == nil {
		return
	}
	m.SubscriptionsRejected.WithLabelValues(reason).Inc()
}

// RecordSubscriptionTransition counts a status change.
func (m *BusinessMetrics) RecordSubscriptionTransition(to string) {
	if m == nil {
		return
	}
	m.SubscriptionTransition.WithLabelValues(to).Inc()
}

// RecordDeliveryScheduled counts a new delivery. source is "signup" or "invoice".
func (m *BusinessMetrics) RecordDeliveryScheduled(source string) {
	if m == nil {
		return
	}
	m.DeliveriesScheduled.WithLabelValues(source).Inc()
}

// RecordDeliveryEdit counts a customer or admin delivery edit.
func (m *BusinessMetrics) RecordDeliveryEdit(action string) {
	if m == nil {
		return
	}
	m.DeliveryEdits.WithLabelValues(action).Inc()
}

// RecordRetryBatch observes the size of one claimed batch.
func (m *BusinessMetrics) RecordRetryBatch(n int) {
	if m == nil {
		return
	}
	m.RetryBatchSize.Observe(float64(n))
}

// RecordRetryAttempt counts one replay and whether it exhausted the entry.
func (m *BusinessMetrics) RecordRetryAttempt(ok, exhausted bool) {
	if m == nil {
		return
	}
	m.RetryAttempts.WithLabelValues(outcome(ok)).Inc()
	if exhausted {
		m.RetryExhausted.Inc()
	}
}

// RecordBillingCall observes one provider API call.
func (m *BusinessMetrics) RecordBillingCall(operation string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.BillingAPILatency.WithLabelValues(operation, outcome(ok)).Observe(d.Seconds())
}
