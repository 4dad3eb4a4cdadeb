package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/handler"
	"github.com/dukerupert/roastbox/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Delivery RPC actions.
const (
	ActionList              = "list"
	ActionUpdateDate        = "update_date"
	ActionSkip              = "skip"
	ActionAdminUpdateStatus = "admin_update_status"
)

// DeliveryHandler serves the delivery management RPC.
type DeliveryHandler struct {
	deliveryService service.DeliveryService
	location        *time.Location
}

// NewDeliveryHandler creates a new delivery handler. loc is the calendar
// new_date values are read in.
func NewDeliveryHandler(deliveryService service.DeliveryService, loc *time.Location) *DeliveryHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DeliveryHandler{
		deliveryService: deliveryService,
		location:        loc,
	}
}

type deliveryRequest struct {
	Action     string `json:"action" validate:"required,oneof=list update_date skip admin_update_status"`
	DeliveryID string `json:"delivery_id" validate:"required_unless=Action list"`
	NewDate    string `json:"new_date"`
	Status     string `json:"status"`
}

// Handle handles POST /api/deliveries.
//
// Request body:
//
//	{"action": "list"}
//	{"action": "update_date", "delivery_id": "...", "new_date": "2025-04-18"}
//	{"action": "skip", "delivery_id": "..."}
//	{"action": "admin_update_status", "delivery_id": "...", "status": "delivered"}
//
// list answers {"deliveries": [...]}; every other action answers
// {"delivery": {...}} with the updated row.
func (h *DeliveryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	const op = "api.deliveries.Handle"

	identity, err := requireIdentity(r, op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req deliveryRequest
	if err := decodeRequest(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if req.Action == ActionList {
		h.list(w, r, identity)
		return
	}

	deliveryID, err := uuid.Parse(req.DeliveryID)
	if err != nil {
		handler.ErrorResponse(w, r, domain.NewValidationError(op, "delivery_id", "delivery_id must be a UUID"))
		return
	}

	var detail *service.DeliveryDetail
	switch req.Action {
	case ActionUpdateDate:
		if req.NewDate == "" {
			err = domain.NewValidationError(op, "new_date", "new_date is required")
			break
		}
		var newDate time.Time
		newDate, err = parseDate(op, "new_date", req.NewDate, h.location)
		if err != nil {
			break
		}
		detail, err = h.deliveryService.UpdateDeliveryDate(r.Context(), service.UpdateDeliveryDateParams{
			Requester:  *identity,
			DeliveryID: deliveryID,
			NewDate:    newDate,
		})
	case ActionSkip:
		detail, err = h.deliveryService.SkipDelivery(r.Context(), service.SkipDeliveryParams{
			Requester:  *identity,
			DeliveryID: deliveryID,
		})
	case ActionAdminUpdateStatus:
		if req.Status == "" {
			err = domain.NewValidationError(op, "status", "status is required")
			break
		}
		detail, err = h.deliveryService.AdminUpdateStatus(r.Context(), service.AdminUpdateStatusParams{
			Requester:  *identity,
			DeliveryID: deliveryID,
			Status:     req.Status,
		})
	}
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("action", req.Action).
		Str("delivery_id", deliveryID.String()).
		Str("status", detail.Status).
		Msg("delivery updated")

	handler.WriteJSON(w, http.StatusOK, map[string]any{"delivery": detail})
}

func (h *DeliveryHandler) list(w http.ResponseWriter, r *http.Request, identity *domain.Identity) {
	deliveries, err := h.deliveryService.ListDeliveries(r.Context(), identity.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if deliveries == nil {
		deliveries = []service.DeliveryDetail{}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"deliveries": deliveries})
}
