// Package webhook holds the billing provider webhook endpoint.
package webhook

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/handler"
	"github.com/dukerupert/roastbox/internal/service"
	"github.com/rs/zerolog"
)

// MaxPayloadBytes caps a webhook body.
const MaxPayloadBytes = 1 << 20

// RazorpayHandler handles Razorpay webhook events
type RazorpayHandler struct {
	provider       billing.Provider
	webhookService service.WebhookService
	config         RazorpayWebhookConfig
}

// RazorpayWebhookConfig contains configuration for webhook handling
type RazorpayWebhookConfig struct {
	// WebhookSecret is the signing secret configured in the Razorpay dashboard
	WebhookSecret string

	// InternalSecret authorizes replays from the retry processor. A request
	// carrying it skips signature verification and is treated as a replay.
	// Empty disables the bypass.
	InternalSecret string
}

// NewRazorpayHandler creates a new Razorpay webhook handler
func NewRazorpayHandler(provider billing.Provider, webhookService service.WebhookService, config RazorpayWebhookConfig) *RazorpayHandler {
	return &RazorpayHandler{
		provider:       provider,
		webhookService: webhookService,
		config:         config,
	}
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook verifies and processes one webhook delivery.
//
// Answers 200 {"received":true} once the event is applied (or was already
// applied), 400 for bodies that are not a valid event, 401 for a bad
// signature and 500 when handling failed so the provider retries.
func (h *RazorpayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		handler.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Webhook body too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Error reading request body"))
		return
	}

	replay := h.isInternal(r)
	if !replay {
		signature := r.Header.Get(billing.SignatureHeader)
		if signature == "" {
			log.Warn().Msg("webhook rejected: missing signature")
			handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Missing signature"))
			return
		}
		if err := h.provider.VerifyWebhookSignature(payload, signature, h.config.WebhookSecret); err != nil {
			log.Warn().Err(err).Msg("webhook rejected: signature verification failed")
			handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid signature"))
			return
		}
	}

	if err := h.webhookService.Process(r.Context(), payload, service.ProcessOptions{Replay: replay}); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, receivedResponse{Received: true})
}

func (h *RazorpayHandler) isInternal(r *http.Request) bool {
	if h.config.InternalSecret == "" {
		return false
	}
	got := r.Header.Get(domain.InternalWebhookSecretHeader)
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.config.InternalSecret)) == 1
}
