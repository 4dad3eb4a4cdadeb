package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/handler"
	"github.com/dukerupert/roastbox/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SubscriptionHandler serves subscription creation, listing and management.
type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	location            *time.Location
}

// NewSubscriptionHandler creates a new subscription handler. loc is the
// calendar resume dates are read in.
func NewSubscriptionHandler(subscriptionService service.SubscriptionService, loc *time.Location) *SubscriptionHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		location:            loc,
	}
}

type createSubscriptionRequest struct {
	ProductID            string                  `json:"product_id" validate:"required,uuid"`
	VariantID            string                  `json:"variant_id" validate:"required,uuid"`
	Quantity             int32                   `json:"quantity" validate:"required,gt=0"`
	PreferredDeliveryDay int32                   `json:"preferred_delivery_day" validate:"required"`
	TotalDeliveries      int32                   `json:"total_deliveries" validate:"required,gt=0"`
	ShippingAddress      *domain.ShippingAddress `json:"shipping_address" validate:"required"`
}

type createSubscriptionResponse struct {
	SubscriptionID        string                 `json:"subscription_id"`
	ShortURL              string                 `json:"short_url"`
	PendingSubscriptionID uuid.UUID              `json:"pending_subscription_id"`
	PlanAmount            decimal.Decimal        `json:"plan_amount"`
	Currency              string                 `json:"currency"`
	FirstDelivery         service.DeliveryDetail `json:"first_delivery"`
}

// Create handles POST /api/subscriptions
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "api.subscriptions.Create"

	identity, err := requireIdentity(r, op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req createSubscriptionRequest
	if err := decodeRequest(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.subscriptionService.CreateSubscription(r.Context(), service.CreateSubscriptionParams{
		UserID:               identity.UserID,
		ProductID:            uuid.MustParse(req.ProductID),
		VariantID:            uuid.MustParse(req.VariantID),
		Quantity:             req.Quantity,
		PreferredDeliveryDay: req.PreferredDeliveryDay,
		TotalDeliveries:      req.TotalDeliveries,
		ShippingAddress:      *req.ShippingAddress,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("subscription_id", result.PendingSubscriptionID.String()).
		Str("provider_subscription_id", result.ProviderSubscriptionID).
		Msg("subscription created")

	handler.WriteJSON(w, http.StatusCreated, createSubscriptionResponse{
		SubscriptionID:        result.ProviderSubscriptionID,
		ShortURL:              result.ShortURL,
		PendingSubscriptionID: result.PendingSubscriptionID,
		PlanAmount:            result.PlanAmount,
		Currency:              result.Currency,
		FirstDelivery:         result.FirstDelivery,
	})
}

// List handles GET /api/subscriptions
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(r, "api.subscriptions.List")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	subs, err := h.subscriptionService.ListSubscriptions(r.Context(), identity.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if subs == nil {
		subs = []service.SubscriptionDetail{}
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

type manageSubscriptionRequest struct {
	Action         string `json:"action" validate:"required,oneof=get pause resume cancel"`
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`

	// ResumeAt is required for pause
	ResumeAt string `json:"resume_at"`
}

// Manage handles POST /api/subscriptions/manage with action get, pause,
// resume or cancel.
func (h *SubscriptionHandler) Manage(w http.ResponseWriter, r *http.Request) {
	const op = "api.subscriptions.Manage"

	identity, err := requireIdentity(r, op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req manageSubscriptionRequest
	if err := decodeRequest(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	subID := uuid.MustParse(req.SubscriptionID)
	manage := service.ManageSubscriptionParams{UserID: identity.UserID, SubscriptionID: subID}

	var detail *service.SubscriptionDetail
	switch req.Action {
	case "get":
		detail, err = h.subscriptionService.GetSubscription(r.Context(), identity.UserID, subID)
	case "pause":
		var resumeAt time.Time
		if req.ResumeAt == "" {
			err = domain.NewValidationError(op, "resume_at", "resume_at is required")
		} else {
			resumeAt, err = parseDate(op, "resume_at", req.ResumeAt, h.location)
		}
		if err == nil {
			detail, err = h.subscriptionService.PauseSubscription(r.Context(), service.PauseSubscriptionParams{
				UserID:         identity.UserID,
				SubscriptionID: subID,
				ResumeAt:       resumeAt,
			})
		}
	case "resume":
		detail, err = h.subscriptionService.ResumeSubscription(r.Context(), manage)
	case "cancel":
		detail, err = h.subscriptionService.CancelSubscription(r.Context(), manage)
	}
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if req.Action != "get" {
		zerolog.Ctx(r.Context()).Info().
			Str("subscription_id", subID.String()).
			Str("action", req.Action).
			Str("status", detail.Status).
			Msg("subscription updated")
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{"subscription": detail})
}
