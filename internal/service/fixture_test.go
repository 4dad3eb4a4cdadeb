package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/dukerupert/roastbox/internal/lock"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

const (
	testCategory = "coffee-powders"
	testWeight   = 1000
	testPlanID   = "plan_123"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

type fixture struct {
	store    *repository.MemoryStore
	provider *billing.MockProvider
	recorder *events.Recorder
	locker   *lock.MemoryLocker
	now      time.Time

	userID    uuid.UUID
	productID uuid.UUID
	variantID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		provider:  billing.NewMockProvider(),
		recorder:  &events.Recorder{},
		locker:    lock.NewMemoryLocker(),
		now:       time.Date(2025, time.March, 10, 9, 30, 0, 0, ist),
		userID:    uuid.New(),
		productID: uuid.New(),
		variantID: uuid.New(),
	}
	f.store.AddProduct(f.productID, "Filter Coffee Powder", testCategory)
	f.store.AddVariant(f.variantID, f.productID, "1 kg", testWeight, testPlanID)
	return f
}

func (f *fixture) today() time.Time {
	return domain.DateOnly(f.now)
}

func (f *fixture) subscriptionService() *subscriptionService {
	svc := NewSubscriptionService(f.store, f.provider, f.recorder, nil, zerolog.Nop(), SubscriptionConfig{
		Category:    testCategory,
		WeightGrams: testWeight,
		Location:    ist,
	}).(*subscriptionService)
	svc.clock.now = func() time.Time { return f.now }
	return svc
}

func (f *fixture) deliveryService() *deliveryService {
	svc := NewDeliveryService(f.store, f.recorder, nil, zerolog.Nop(), ist).(*deliveryService)
	svc.clock.now = func() time.Time { return f.now }
	return svc
}

func (f *fixture) webhookService() *webhookService {
	svc := NewWebhookService(f.store, f.locker, f.recorder, nil, zerolog.Nop(), WebhookConfig{
		Location: ist,
		LockWait: 10 * time.Millisecond,
	}).(*webhookService)
	svc.clock.now = func() time.Time { return f.now }
	return svc
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:         "Asha Rao",
		Phone:        "+91 98765-43210",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		PostalCode:   "560001",
		Country:      "IN",
	}
}

// seedSubscription stores a subscription for the fixture user directly.
func (f *fixture) seedSubscription(t *testing.T, providerID, status string) repository.PendingSubscription {
	t.Helper()
	addr, err := json.Marshal(testAddress())
	require.NoError(t, err)
	sub, err := f.store.CreatePendingSubscription(context.Background(), repository.CreatePendingSubscriptionParams{
		UserID:                 f.userID,
		ProductID:              f.productID,
		VariantID:              f.variantID,
		Quantity:               1,
		PreferredDeliveryDay:   15,
		TotalDeliveries:        6,
		ShippingAddress:        addr,
		BillingPlanID:          testPlanID,
		ProviderSubscriptionID: providerID,
		Status:                 status,
	})
	require.NoError(t, err)
	return sub
}

// seedDelivery stores a delivery daysAhead days from the fixture's today.
func (f *fixture) seedDelivery(sub repository.PendingSubscription, cycle int32, daysAhead int, status string) repository.SubscriptionDelivery {
	return f.store.AddDelivery(repository.SubscriptionDelivery{
		SubscriptionID: sub.ID,
		CycleNumber:    cycle,
		DeliveryDate:   f.today().AddDate(0, 0, daysAhead),
		Status:         status,
	})
}

// =============================================================================
// WEBHOOK BODIES
// =============================================================================

func paymentEvent(t *testing.T, event, paymentID, orderID string) []byte {
	t.Helper()
	body := map[string]any{
		"event": event,
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       paymentID,
					"order_id": orderID,
					"amount":   179800,
					"currency": "INR",
					"status":   "captured",
				},
			},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}

func invoicePaidEvent(t *testing.T, providerSubID string, cycle int32) []byte {
	t.Helper()
	invoice := map[string]any{
		"id":              "inv_" + uuid.NewString()[:8],
		"subscription_id": providerSubID,
		"status":          "paid",
	}
	if cycle > 0 {
		invoice["billing_cycle"] = cycle
	}
	raw, err := json.Marshal(map[string]any{
		"event": "invoice.paid",
		"payload": map[string]any{
			"invoice": map[string]any{"entity": invoice},
		},
	})
	require.NoError(t, err)
	return raw
}
