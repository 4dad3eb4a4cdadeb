package api

import (
	"context"

	"github.com/dukerupert/roastbox/internal/service"
	"github.com/google/uuid"
)

// mockSubscriptionService implements service.SubscriptionService for testing
type mockSubscriptionService struct {
	createFunc func(ctx context.Context, params service.CreateSubscriptionParams) (*service.CreateSubscriptionResult, error)
	getFunc    func(ctx context.Context, userID, subscriptionID uuid.UUID) (*service.SubscriptionDetail, error)
	listFunc   func(ctx context.Context, userID uuid.UUID) ([]service.SubscriptionDetail, error)
	pauseFunc  func(ctx context.Context, params service.PauseSubscriptionParams) (*service.SubscriptionDetail, error)
	resumeFunc func(ctx context.Context, params service.ManageSubscriptionParams) (*service.SubscriptionDetail, error)
	cancelFunc func(ctx context.Context, params service.ManageSubscriptionParams) (*service.SubscriptionDetail, error)
}

func (m *mockSubscriptionService) CreateSubscription(ctx context.Context, params service.CreateSubscriptionParams) (*service.CreateSubscriptionResult, error) {
	return m.createFunc(ctx, params)
}

func (m *mockSubscriptionService) GetSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*service.SubscriptionDetail, error) {
	return m.getFunc(ctx, userID, subscriptionID)
}

func (m *mockSubscriptionService) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]service.SubscriptionDetail, error) {
	return m.listFunc(ctx, userID)
}

func (m *mockSubscriptionService) PauseSubscription(ctx context.Context, params service.PauseSubscriptionParams) (*service.SubscriptionDetail, error) {
	return m.pauseFunc(ctx, params)
}

func (m *mockSubscriptionService) ResumeSubscription(ctx context.Context, params service.ManageSubscriptionParams) (*service.SubscriptionDetail, error) {
	return m.resumeFunc(ctx, params)
}

func (m *mockSubscriptionService) CancelSubscription(ctx context.Context, params service.ManageSubscriptionParams) (*service.SubscriptionDetail, error) {
	return m.cancelFunc(ctx, params)
}

// mockDeliveryService implements service.DeliveryService for testing
type mockDeliveryService struct {
	listFunc        func(ctx context.Context, userID uuid.UUID) ([]service.DeliveryDetail, error)
	updateDateFunc  func(ctx context.Context, params service.UpdateDeliveryDateParams) (*service.DeliveryDetail, error)
	skipFunc        func(ctx context.Context, params service.SkipDeliveryParams) (*service.DeliveryDetail, error)
	adminStatusFunc func(ctx context.Context, params service.AdminUpdateStatusParams) (*service.DeliveryDetail, error)

	calls []string
}

func (m *mockDeliveryService) ListDeliveries(ctx context.Context, userID uuid.UUID) ([]service.DeliveryDetail, error) {
	m.calls = append(m.calls, "ListDeliveries")
	return m.listFunc(ctx, userID)
}

func (m *mockDeliveryService) UpdateDeliveryDate(ctx context.Context, params service.UpdateDeliveryDateParams) (*service.DeliveryDetail, error) {
	m.calls = append(m.calls, "UpdateDeliveryDate")
	return m.updateDateFunc(ctx, params)
}

func (m *mockDeliveryService) SkipDelivery(ctx context.Context, params service.SkipDeliveryParams) (*service.DeliveryDetail, error) {
	m.calls = append(m.calls, "SkipDelivery")
	return m.skipFunc(ctx, params)
}

func (m *mockDeliveryService) AdminUpdateStatus(ctx context.Context, params service.AdminUpdateStatusParams) (*service.DeliveryDetail, error) {
	m.calls = append(m.calls, "AdminUpdateStatus")
	return m.adminStatusFunc(ctx, params)
}
