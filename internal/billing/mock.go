package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is a billing provider for tests. Each method can be overridden
// through its Func field; the default behavior succeeds with an active plan.
type MockProvider struct {
	mu sync.Mutex

	GetPlanFunc                func(ctx context.Context, planID string) (*Plan, error)
	CreateSubscriptionFunc     func(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)
	PauseSubscriptionFunc      func(ctx context.Context, params PauseSubscriptionParams) (*Subscription, error)
	ResumeSubscriptionFunc     func(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscriptionFunc     func(ctx context.Context, subscriptionID string) (*Subscription, error)
	VerifyWebhookSignatureFunc func(payload []byte, signature string, secret string) error

	// Subscriptions stores subscriptions created through the default behavior
	Subscriptions map[string]*Subscription

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Subscriptions: make(map[string]*Subscription),
		CallLog:       []string{},
	}
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) log(call string) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, call)
	m.mu.Unlock()
}

// Calls returns a copy of the call log.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}

func (m *MockProvider) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	m.log(fmt.Sprintf("GetPlan(%s)", planID))
	if m.GetPlanFunc != nil {
		return m.GetPlanFunc(ctx, planID)
	}
	return &Plan{ID: planID, Period: "monthly", Interval: 1, AmountPaise: 89900, Currency: "INR"}, nil
}

func (m *MockProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	m.log(fmt.Sprintf("CreateSubscription(%s, %d, %d)", params.PlanID, params.TotalCount, params.Quantity))
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, params)
	}
	id := "sub_" + uuid.New().String()[:14]
	sub := &Subscription{
		ID:         id,
		PlanID:     params.PlanID,
		Status:     "created",
		ShortURL:   "https://rzp.io/i/" + id[4:12],
		TotalCount: params.TotalCount,
		Quantity:   params.Quantity,
	}
	m.mu.Lock()
	m.Subscriptions[id] = sub
	m.mu.Unlock()
	return sub, nil
}

func (m *MockProvider) PauseSubscription(ctx context.Context, params PauseSubscriptionParams) (*Subscription, error) {
	m.log(fmt.Sprintf("PauseSubscription(%s)", params.SubscriptionID))
	if m.PauseSubscriptionFunc != nil {
		return m.PauseSubscriptionFunc(ctx, params)
	}
	return m.setStatus(params.SubscriptionID, "paused"), nil
}

func (m *MockProvider) ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	m.log(fmt.Sprintf("ResumeSubscription(%s)", subscriptionID))
	if m.ResumeSubscriptionFunc != nil {
		return m.ResumeSubscriptionFunc(ctx, subscriptionID)
	}
	return m.setStatus(subscriptionID, "active"), nil
}

func (m *MockProvider) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	m.log(fmt.Sprintf("CancelSubscription(%s)", subscriptionID))
	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, subscriptionID)
	}
	return m.setStatus(subscriptionID, "cancelled"), nil
}

func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	m.log("VerifyWebhookSignature")
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature, secret)
	}
	return VerifySignature(payload, signature, secret)
}

func (m *MockProvider) setStatus(id, status string) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Subscriptions[id]
	if !ok {
		sub = &Subscription{ID: id}
		m.Subscriptions[id] = sub
	}
	sub.Status = status
	cp := *sub
	return &cp
}
