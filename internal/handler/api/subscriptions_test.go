package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateBody(productID, variantID uuid.UUID) map[string]any {
	return map[string]any{
		"product_id":             productID.String(),
		"variant_id":             variantID.String(),
		"quantity":               2,
		"preferred_delivery_day": 5,
		"total_deliveries":       12,
		"shipping_address": map[string]string{
			"name":          "Asha Rao",
			"phone":         "+91 98765 43210",
			"address_line1": "12 MG Road",
			"city":          "Bengaluru",
			"state":         "KA",
			"postal_code":   "560001",
		},
	}
}

func TestSubscriptionHandler_Create(t *testing.T) {
	user := &domain.Identity{UserID: uuid.New()}
	productID, variantID := uuid.New(), uuid.New()
	pendingID := uuid.New()

	var got service.CreateSubscriptionParams
	svc := &mockSubscriptionService{
		createFunc: func(ctx context.Context, params service.CreateSubscriptionParams) (*service.CreateSubscriptionResult, error) {
			got = params
			return &service.CreateSubscriptionResult{
				ProviderSubscriptionID: "sub_123",
				ShortURL:               "https://rzp.io/i/abc",
				PendingSubscriptionID:  pendingID,
				PlanAmount:             decimal.RequireFromString("899.00"),
				Currency:               "INR",
				FirstDelivery:          service.DeliveryDetail{CycleNumber: 1, Status: domain.DeliveryStatusScheduled},
			}, nil
		},
	}
	rec := httptest.NewRecorder()

	NewSubscriptionHandler(svc, testLocation).Create(rec, jsonRequest(t, http.MethodPost, "/api/subscriptions", validCreateBody(productID, variantID), user))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, user.UserID, got.UserID)
	assert.Equal(t, productID, got.ProductID)
	assert.Equal(t, variantID, got.VariantID)
	assert.Equal(t, int32(2), got.Quantity)
	assert.Equal(t, int32(5), got.PreferredDeliveryDay)
	assert.Equal(t, int32(12), got.TotalDeliveries)
	assert.Equal(t, "Bengaluru", got.ShippingAddress.City)

	var resp struct {
		SubscriptionID        string `json:"subscription_id"`
		ShortURL              string `json:"short_url"`
		PendingSubscriptionID string `json:"pending_subscription_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sub_123", resp.SubscriptionID)
	assert.Equal(t, "https://rzp.io/i/abc", resp.ShortURL)
	assert.Equal(t, pendingID.String(), resp.PendingSubscriptionID)
}

func TestSubscriptionHandler_CreateRejections(t *testing.T) {
	user := &domain.Identity{UserID: uuid.New()}

	tests := []struct {
		name           string
		mutate         func(body map[string]any)
		serviceErr     error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "missing variant",
			mutate:         func(b map[string]any) { delete(b, "variant_id") },
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "variant_id is required",
		},
		{
			name:           "variant is not a uuid",
			mutate:         func(b map[string]any) { b["variant_id"] = "1kg" },
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "variant_id must be a UUID",
		},
		{
			name:           "missing address",
			mutate:         func(b map[string]any) { delete(b, "shipping_address") },
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "shipping_address is required",
		},
		{
			name:           "unknown field",
			mutate:         func(b map[string]any) { b["plan_id"] = "plan_free" },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rule rejection from the service",
			serviceErr:     service.ErrInvalidPreferredDay,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    domain.ErrorMessage(service.ErrInvalidPreferredDay),
		},
		{
			name: "provider failure is surfaced",
			serviceErr: domain.Upstream(&billing.ProviderError{StatusCode: 400, Description: "The plan is not active"},
				"subscription.Create", "Billing provider could not create the subscription: The plan is not active"),
			expectedStatus: http.StatusBadGateway,
			expectedMsg:    "Billing provider could not create the subscription: The plan is not active",
		},
		{
			name:           "unexpected failure is generic",
			serviceErr:     domain.Internal(errors.New("insert failed"), "subscription.Create", "failed to save subscription"),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "An internal error occurred. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockSubscriptionService{
				createFunc: func(ctx context.Context, params service.CreateSubscriptionParams) (*service.CreateSubscriptionResult, error) {
					called = true
					return nil, tt.serviceErr
				},
			}
			body := validCreateBody(uuid.New(), uuid.New())
			if tt.mutate != nil {
				tt.mutate(body)
			}
			rec := httptest.NewRecorder()

			NewSubscriptionHandler(svc, testLocation).Create(rec, jsonRequest(t, http.MethodPost, "/api/subscriptions", body, user))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.serviceErr != nil, called)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, errorMessage(t, rec))
			}
		})
	}
}

func TestSubscriptionHandler_CreateRequiresIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSubscriptionHandler(&mockSubscriptionService{}, testLocation).Create(rec,
		jsonRequest(t, http.MethodPost, "/api/subscriptions", validCreateBody(uuid.New(), uuid.New()), nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubscriptionHandler_List(t *testing.T) {
	user := &domain.Identity{UserID: uuid.New()}
	svc := &mockSubscriptionService{
		listFunc: func(ctx context.Context, userID uuid.UUID) ([]service.SubscriptionDetail, error) {
			assert.Equal(t, user.UserID, userID)
			return []service.SubscriptionDetail{{ID: uuid.New(), Status: domain.SubscriptionStatusActive}}, nil
		},
	}
	rec := httptest.NewRecorder()

	NewSubscriptionHandler(svc, testLocation).List(rec, jsonRequest(t, http.MethodGet, "/api/subscriptions", nil, user))

	require.Equal(t, http.StatusOK, rec.Code)
	var list []service.SubscriptionDetail
	require.NoError(t, json.Unmarshal(decodeBody(t, rec)["subscriptions"], &list))
	require.Len(t, list, 1)
	assert.Equal(t, domain.SubscriptionStatusActive, list[0].Status)
}

func TestSubscriptionHandler_Manage(t *testing.T) {
	user := &domain.Identity{UserID: uuid.New()}
	subID := uuid.New()

	detail := func(status string) *service.SubscriptionDetail {
		return &service.SubscriptionDetail{ID: subID, Status: status}
	}

	var pausedUntil time.Time
	var calls []string
	svc := &mockSubscriptionService{
		getFunc: func(ctx context.Context, userID, subscriptionID uuid.UUID) (*service.SubscriptionDetail, error) {
			calls = append(calls, "get")
			return detail(domain.SubscriptionStatusActive), nil
		},
		pauseFunc: func(ctx context.Context, params service.PauseSubscriptionParams) (*service.SubscriptionDetail, error) {
			calls = append(calls, "pause")
			pausedUntil = params.ResumeAt
			return detail(domain.SubscriptionStatusPaused), nil
		},
		resumeFunc: func(ctx context.Context, params service.ManageSubscriptionParams) (*service.SubscriptionDetail, error) {
			calls = append(calls, "resume")
			assert.Equal(t, subID, params.SubscriptionID)
			return detail(domain.SubscriptionStatusActive), nil
		},
		cancelFunc: func(ctx context.Context, params service.ManageSubscriptionParams) (*service.SubscriptionDetail, error) {
			calls = append(calls, "cancel")
			assert.Equal(t, user.UserID, params.UserID)
			return detail(domain.SubscriptionStatusCancelled), nil
		},
	}
	h := NewSubscriptionHandler(svc, testLocation)

	tests := []struct {
		body           map[string]string
		expectedStatus string
	}{
		{map[string]string{"action": "get", "subscription_id": subID.String()}, domain.SubscriptionStatusActive},
		{map[string]string{"action": "pause", "subscription_id": subID.String(), "resume_at": "2025-05-01"}, domain.SubscriptionStatusPaused},
		{map[string]string{"action": "resume", "subscription_id": subID.String()}, domain.SubscriptionStatusActive},
		{map[string]string{"action": "cancel", "subscription_id": subID.String()}, domain.SubscriptionStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.body["action"], func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Manage(rec, jsonRequest(t, http.MethodPost, "/api/subscriptions/manage", tt.body, user))

			require.Equal(t, http.StatusOK, rec.Code)
			var got service.SubscriptionDetail
			require.NoError(t, json.Unmarshal(decodeBody(t, rec)["subscription"], &got))
			assert.Equal(t, tt.expectedStatus, got.Status)
		})
	}

	assert.Equal(t, []string{"get", "pause", "resume", "cancel"}, calls)
	assert.True(t, pausedUntil.Equal(time.Date(2025, 5, 1, 0, 0, 0, 0, testLocation)))
}

func TestSubscriptionHandler_ManageRejections(t *testing.T) {
	user := &domain.Identity{UserID: uuid.New()}
	subID := uuid.New().String()

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "unknown action",
			body:           map[string]string{"action": "upgrade", "subscription_id": subID},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "pause without resume date",
			body:           map[string]string{"action": "pause", "subscription_id": subID},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "resume_at is required",
		},
		{
			name:           "pause with malformed resume date",
			body:           map[string]string{"action": "pause", "subscription_id": subID, "resume_at": "next month"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "resume_at must be a date in YYYY-MM-DD format",
		},
		{
			name:           "missing subscription id",
			body:           map[string]string{"action": "cancel"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "subscription_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewSubscriptionHandler(&mockSubscriptionService{}, testLocation).Manage(rec,
				jsonRequest(t, http.MethodPost, "/api/subscriptions/manage", tt.body, user))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, errorMessage(t, rec))
			}
		})
	}
}
