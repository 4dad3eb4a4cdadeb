package billing

import "time"

// DefaultRazorpayBaseURL is the v1 REST endpoint.
const DefaultRazorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayConfig contains configuration for the Razorpay provider.
type RazorpayConfig struct {
	// KeyID and KeySecret form the Basic-Auth credential pair
	KeyID     string
	KeySecret string

	// BaseURL defaults to DefaultRazorpayBaseURL; tests point it at httptest
	BaseURL string

	// MaxRetries is the number of retries for transient failures
	// Default: 3, negative disables retries
	MaxRetries int

	// RetryBaseDelay is the first backoff step; later steps double
	// Default: 200ms
	RetryBaseDelay time.Duration

	// Timeout is the per-request HTTP timeout
	// Default: 30s
	Timeout time.Duration
}

// Validate checks that required configuration is present.
func (c *RazorpayConfig) Validate() error {
	if c.KeyID == "" || c.KeySecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

func (c *RazorpayConfig) withDefaults() RazorpayConfig {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultRazorpayBaseURL
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	} else if out.MaxRetries == 0 {
		out.MaxRetries = 3
	}
	if out.RetryBaseDelay <= 0 {
		out.RetryBaseDelay = 200 * time.Millisecond
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return out
}
