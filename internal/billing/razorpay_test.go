package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *RazorpayProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewRazorpayProvider(RazorpayConfig{
		KeyID:          "rzp_test_key",
		KeySecret:      "secret",
		BaseURL:        srv.URL,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return p
}

func TestNewRazorpayProvider_RequiresCredentials(t *testing.T) {
	_, err := NewRazorpayProvider(RazorpayConfig{KeyID: "only-id"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestRazorpayProvider_GetPlan(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/plans/plan_123", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"plan_123","period":"monthly","interval":1,
			"item":{"active":true,"amount":89900,"currency":"INR"}}`)
	})

	plan, err := p.GetPlan(context.Background(), "plan_123")
	require.NoError(t, err)
	assert.Equal(t, "plan_123", plan.ID)
	assert.Equal(t, int64(89900), plan.AmountPaise)
	assert.Equal(t, "899", plan.Amount().String())
	assert.True(t, plan.IsActive())
}

func TestRazorpayProvider_GetPlan_NotFound(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`)
	})

	_, err := p.GetPlan(context.Background(), "plan_gone")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "The id provided does not exist", perr.Description)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
}

func TestRazorpayProvider_GetPlan_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"id":"plan_123","item":{"amount":100,"currency":"INR"}}`)
	})

	_, err := p.GetPlan(context.Background(), "plan_123")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRazorpayProvider_CreateSubscription(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subscriptions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "plan_123", body["plan_id"])
		assert.Equal(t, float64(6), body["total_count"])
		assert.Equal(t, float64(2), body["quantity"])
		assert.Equal(t, float64(1), body["customer_notify"])
		assert.Equal(t, map[string]any{"user_id": "u1"}, body["notes"])

		_, _ = io.WriteString(w, `{"id":"sub_abc","plan_id":"plan_123","status":"created","short_url":"https://rzp.io/i/abc"}`)
	})

	sub, err := p.CreateSubscription(context.Background(), CreateSubscriptionParams{
		PlanID:         "plan_123",
		TotalCount:     6,
		Quantity:       2,
		CustomerNotify: true,
		Notes:          map[string]string{"user_id": "u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sub_abc", sub.ID)
	assert.Equal(t, "https://rzp.io/i/abc", sub.ShortURL)
}

func TestRazorpayProvider_CreateSubscription_DoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":"SERVER_ERROR","description":"We are facing some trouble"}}`)
	})

	_, err := p.CreateSubscription(context.Background(), CreateSubscriptionParams{PlanID: "plan_123", TotalCount: 1, Quantity: 1})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "SERVER_ERROR", perr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRazorpayProvider_LifecycleBodies(t *testing.T) {
	resumeAt := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		call     func(p *RazorpayProvider) error
		wantPath string
		wantBody map[string]any
	}{
		{
			name: "pause",
			call: func(p *RazorpayProvider) error {
				_, err := p.PauseSubscription(context.Background(), PauseSubscriptionParams{SubscriptionID: "sub_1", ResumeAt: resumeAt})
				return err
			},
			wantPath: "/subscriptions/sub_1/pause",
			wantBody: map[string]any{"pause_at": "now", "resume_at": float64(resumeAt.Unix())},
		},
		{
			name: "resume",
			call: func(p *RazorpayProvider) error {
				_, err := p.ResumeSubscription(context.Background(), "sub_1")
				return err
			},
			wantPath: "/subscriptions/sub_1/resume",
			wantBody: map[string]any{"resume_at": "now"},
		},
		{
			name: "cancel",
			call: func(p *RazorpayProvider) error {
				_, err := p.CancelSubscription(context.Background(), "sub_1")
				return err
			},
			wantPath: "/subscriptions/sub_1/cancel",
			wantBody: map[string]any{"cancel_at_cycle_end": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.wantBody, body)
				_, _ = io.WriteString(w, `{"id":"sub_1","status":"active"}`)
			})
			require.NoError(t, tt.call(p))
		})
	}
}

func TestPlan_IsActive(t *testing.T) {
	inactive := false
	active := true

	assert.True(t, (&Plan{}).IsActive())
	assert.True(t, (&Plan{Status: "active", ItemActive: &active}).IsActive())
	assert.False(t, (&Plan{Status: "inactive"}).IsActive())
	assert.False(t, (&Plan{ItemActive: &inactive}).IsActive())
}
