package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/roastbox/internal/telemetry"
	"github.com/sethvargo/go-retry"
)

const maxResponseBytes = 1 << 20

// RazorpayProvider implements Provider against the Razorpay REST API.
type RazorpayProvider struct {
	config     RazorpayConfig
	httpClient *http.Client
	metrics    *telemetry.BusinessMetrics
}

// Compile-time check that RazorpayProvider implements Provider.
var _ Provider = (*RazorpayProvider)(nil)

// RazorpayOption customizes a RazorpayProvider.
type RazorpayOption func(*RazorpayProvider)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RazorpayOption {
	return func(p *RazorpayProvider) { p.httpClient = c }
}

// WithMetrics records call latency and outcome for every API request.
func WithMetrics(m *telemetry.BusinessMetrics) RazorpayOption {
	return func(p *RazorpayProvider) { p.metrics = m }
}

// NewRazorpayProvider creates a provider from config.
func NewRazorpayProvider(config RazorpayConfig, opts ...RazorpayOption) (*RazorpayProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := config.withDefaults()
	p := &RazorpayProvider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type razorpayPlan struct {
	ID       string `json:"id"`
	Period   string `json:"period"`
	Interval int    `json:"interval"`
	Status   string `json:"status"`
	Item     struct {
		Active   *bool  `json:"active"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"item"`
}

type razorpaySubscription struct {
	ID         string `json:"id"`
	PlanID     string `json:"plan_id"`
	Status     string `json:"status"`
	ShortURL   string `json:"short_url"`
	PaidCount  int    `json:"paid_count"`
	TotalCount int    `json:"total_count"`
	Quantity   int    `json:"quantity"`
}

func (s *razorpaySubscription) toSubscription() *Subscription {
	return &Subscription{
		ID:         s.ID,
		PlanID:     s.PlanID,
		Status:     s.Status,
		ShortURL:   s.ShortURL,
		PaidCount:  s.PaidCount,
		TotalCount: s.TotalCount,
		Quantity:   s.Quantity,
	}
}

// GetPlan fetches GET /plans/{id}.
func (p *RazorpayProvider) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	var out razorpayPlan
	err := p.do(ctx, "get_plan", http.MethodGet, "/plans/"+url.PathEscape(planID), nil, &out)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: %w", ErrPlanNotFound, perr)
		}
		return nil, err
	}

	return &Plan{
		ID:          out.ID,
		Period:      out.Period,
		Interval:    out.Interval,
		AmountPaise: out.Item.Amount,
		Currency:    out.Item.Currency,
		Status:      out.Status,
		ItemActive:  out.Item.Active,
	}, nil
}

// CreateSubscription calls POST /subscriptions.
func (p *RazorpayProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	notify := 0
	if params.CustomerNotify {
		notify = 1
	}
	body := map[string]any{
		"plan_id":         params.PlanID,
		"customer_notify": notify,
		"total_count":     params.TotalCount,
		"quantity":        params.Quantity,
	}
	if len(params.Notes) > 0 {
		body["notes"] = params.Notes
	}

	var out razorpaySubscription
	if err := p.do(ctx, "create_subscription", http.MethodPost, "/subscriptions", body, &out); err != nil {
		return nil, err
	}
	return out.toSubscription(), nil
}

// PauseSubscription calls POST /subscriptions/{id}/pause.
func (p *RazorpayProvider) PauseSubscription(ctx context.Context, params PauseSubscriptionParams) (*Subscription, error) {
	body := map[string]any{
		"pause_at":  "now",
		"resume_at": params.ResumeAt.Unix(),
	}
	var out razorpaySubscription
	path := "/subscriptions/" + url.PathEscape(params.SubscriptionID) + "/pause"
	if err := p.do(ctx, "pause_subscription", http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out.toSubscription(), nil
}

// ResumeSubscription calls POST /subscriptions/{id}/resume.
func (p *RazorpayProvider) ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	body := map[string]any{"resume_at": "now"}
	var out razorpaySubscription
	path := "/subscriptions/" + url.PathEscape(subscriptionID) + "/resume"
	if err := p.do(ctx, "resume_subscription", http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out.toSubscription(), nil
}

// CancelSubscription calls POST /subscriptions/{id}/cancel.
func (p *RazorpayProvider) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	body := map[string]any{"cancel_at_cycle_end": false}
	var out razorpaySubscription
	path := "/subscriptions/" + url.PathEscape(subscriptionID) + "/cancel"
	if err := p.do(ctx, "cancel_subscription", http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out.toSubscription(), nil
}

// VerifyWebhookSignature implements Provider.
func (p *RazorpayProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	return VerifySignature(payload, signature, secret)
}

// do sends one API request with retries. Network failures and 5xx are retried
// only for GET; 429 is retried for every method since the request was not
// processed.
func (p *RazorpayProvider) do(ctx context.Context, op, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("billing: marshal %s request: %w", op, err)
		}
		payload = b
	}

	backoff := retry.WithMaxRetries(uint64(p.config.MaxRetries), retry.NewExponential(p.config.RetryBaseDelay))
	idempotent := method == http.MethodGet
	endpoint := strings.TrimRight(p.config.BaseURL, "/") + path

	start := time.Now()
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("billing: build %s request: %w", op, err)
		}
		req.SetBasicAuth(p.config.KeyID, p.config.KeySecret)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			err = fmt.Errorf("billing: %s: %w", op, err)
			if idempotent {
				return retry.RetryableError(err)
			}
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("billing: read %s response: %w", op, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			perr := parseProviderError(resp.StatusCode, body)
			if resp.StatusCode == http.StatusTooManyRequests || (idempotent && perr.IsTemporary()) {
				return retry.RetryableError(perr)
			}
			return perr
		}

		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("billing: decode %s response: %w", op, err)
			}
		}
		return nil
	})

	p.metrics.RecordBillingCall(op, err == nil, time.Since(start))
	return err
}

func parseProviderError(status int, body []byte) *ProviderError {
	var envelope struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
			Field       string `json:"field"`
		} `json:"error"`
	}
	perr := &ProviderError{StatusCode: status}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Description != "" {
		perr.Code = envelope.Error.Code
		perr.Description = envelope.Error.Description
		perr.Field = envelope.Error.Field
		return perr
	}
	perr.Description = strings.TrimSpace(string(body))
	if perr.Description == "" {
		perr.Description = http.StatusText(status)
	}
	return perr
}
