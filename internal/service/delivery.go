package service

import (
	"context"
	"time"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/dukerupert/roastbox/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DeliveryService lists and edits the delivery schedule of subscriptions.
//
// Customers may move or skip a delivery only when it is cycle 2 or later,
// still scheduled, and more than DeliveryCutoffDays away. Admins can set any
// status without those checks. No edit calls the billing provider.
type DeliveryService interface {
	// ListDeliveries returns every delivery of the user's subscriptions.
	ListDeliveries(ctx context.Context, userID uuid.UUID) ([]DeliveryDetail, error)

	// UpdateDeliveryDate moves a delivery to a new date. Only delivery_date
	// changes.
	UpdateDeliveryDate(ctx context.Context, params UpdateDeliveryDateParams) (*DeliveryDetail, error)

	// SkipDelivery marks a delivery skipped. No replacement is created and
	// later cycles are unaffected.
	SkipDelivery(ctx context.Context, params SkipDeliveryParams) (*DeliveryDetail, error)

	// AdminUpdateStatus sets any valid status. Requires an admin requester.
	AdminUpdateStatus(ctx context.Context, params AdminUpdateStatusParams) (*DeliveryDetail, error)
}

// UpdateDeliveryDateParams contains parameters for rescheduling a delivery.
type UpdateDeliveryDateParams struct {
	Requester  domain.Identity
	DeliveryID uuid.UUID

	// NewDate is interpreted as a calendar date in the service location
	NewDate time.Time
}

// SkipDeliveryParams contains parameters for skipping a delivery.
type SkipDeliveryParams struct {
	Requester  domain.Identity
	DeliveryID uuid.UUID
}

// AdminUpdateStatusParams contains parameters for an admin status override.
type AdminUpdateStatusParams struct {
	Requester  domain.Identity
	DeliveryID uuid.UUID
	Status     string
}

// DeliveryDetail is a delivery as shown to customers.
type DeliveryDetail struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	CycleNumber    int32     `json:"cycle_number"`
	DeliveryDate   time.Time `json:"delivery_date"`
	Status         string    `json:"status"`

	// Editable reports whether the customer may still move or skip it
	Editable bool `json:"editable"`

	// Listing only
	SubscriptionStatus string `json:"subscription_status,omitempty"`
	Quantity           int32  `json:"quantity,omitempty"`
	ProductName        string `json:"product_name,omitempty"`
	VariantName        string `json:"variant_name,omitempty"`
	WeightGrams        int32  `json:"weight_grams,omitempty"`
}

type deliveryService struct {
	repo      repository.Querier
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    zerolog.Logger
	clock     clock
}

// NewDeliveryService creates a DeliveryService. Cutoffs are counted in
// calendar days of loc.
func NewDeliveryService(
	repo repository.Querier,
	publisher events.Publisher,
	metrics *telemetry.BusinessMetrics,
	logger zerolog.Logger,
	loc *time.Location,
) DeliveryService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &deliveryService{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("service", "delivery").Logger(),
		clock:     newClock(loc),
	}
}

func (s *deliveryService) ListDeliveries(ctx context.Context, userID uuid.UUID) ([]DeliveryDetail, error) {
	rows, err := s.repo.ListDeliveriesForUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "delivery.List", "failed to list deliveries")
	}

	today := s.clock.today()
	out := make([]DeliveryDetail, 0, len(rows))
	for _, row := range rows {
		d := toDeliveryDetail(repository.SubscriptionDelivery{
			ID:             row.ID,
			SubscriptionID: row.SubscriptionID,
			CycleNumber:    row.CycleNumber,
			DeliveryDate:   row.DeliveryDate,
			Status:         row.Status,
			CreatedAt:      row.CreatedAt,
		}, today)
		d.SubscriptionStatus = row.SubscriptionStatus
		d.Quantity = row.Quantity
		d.ProductName = row.ProductName
		d.VariantName = row.VariantName
		d.WeightGrams = row.WeightGrams
		out = append(out, d)
	}
	return out, nil
}

func (s *deliveryService) UpdateDeliveryDate(ctx context.Context, params UpdateDeliveryDateParams) (*DeliveryDetail, error) {
	const op = "delivery.UpdateDate"

	delivery, err := s.editableDelivery(ctx, op, params.Requester, params.DeliveryID)
	if err != nil {
		return nil, err
	}

	today := s.clock.today()
	newDate := domain.DateOnly(params.NewDate.In(s.clock.loc))
	if domain.DaysUntil(today, newDate) <= domain.DeliveryCutoffDays {
		return nil, ErrNewDateTooClose
	}

	updated, err := s.repo.UpdateDeliveryDate(ctx, repository.UpdateDeliveryDateParams{
		ID:           delivery.ID,
		DeliveryDate: newDate,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update delivery date")
	}

	s.metrics.RecordDeliveryEdit("reschedule")
	detail := toDeliveryDetail(updated, today)
	publish(ctx, s.publisher, s.logger, events.SubjectDeliveryUpdated, detail)

	s.logger.Info().
		Str("delivery_id", delivery.ID.String()).
		Str("from", delivery.DeliveryDate.Format(time.DateOnly)).
		Str("to", newDate.Format(time.DateOnly)).
		Msg("delivery rescheduled")

	return &detail, nil
}

func (s *deliveryService) SkipDelivery(ctx context.Context, params SkipDeliveryParams) (*DeliveryDetail, error) {
	const op = "delivery.Skip"

	delivery, err := s.editableDelivery(ctx, op, params.Requester, params.DeliveryID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateDeliveryStatus(ctx, repository.UpdateDeliveryStatusParams{
		ID:     delivery.ID,
		Status: domain.DeliveryStatusSkipped,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to skip delivery")
	}

	s.metrics.RecordDeliveryEdit("skip")
	detail := toDeliveryDetail(updated, s.clock.today())
	publish(ctx, s.publisher, s.logger, events.SubjectDeliverySkipped, detail)

	s.logger.Info().
		Str("delivery_id", delivery.ID.String()).
		Int32("cycle", delivery.CycleNumber).
		Msg("delivery skipped")

	return &detail, nil
}

func (s *deliveryService) AdminUpdateStatus(ctx context.Context, params AdminUpdateStatusParams) (*DeliveryDetail, error) {
	const op = "delivery.AdminUpdateStatus"

	if !params.Requester.Admin {
		return nil, ErrAdminRequired
	}
	if !domain.ValidDeliveryStatus(params.Status) {
		return nil, ErrInvalidDeliveryStatus
	}

	delivery, err := s.repo.GetDelivery(ctx, params.DeliveryID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDeliveryNotFound
		}
		return nil, domain.Internal(err, op, "failed to load delivery")
	}

	updated, err := s.repo.UpdateDeliveryStatus(ctx, repository.UpdateDeliveryStatusParams{
		ID:     delivery.ID,
		Status: params.Status,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update delivery status")
	}

	s.metrics.RecordDeliveryEdit("admin_status")
	detail := toDeliveryDetail(updated, s.clock.today())
	publish(ctx, s.publisher, s.logger, events.SubjectDeliveryUpdated, detail)

	s.logger.Info().
		Str("delivery_id", delivery.ID.String()).
		Str("admin_id", params.Requester.UserID.String()).
		Str("from", delivery.Status).
		Str("to", params.Status).
		Msg("delivery status overridden")

	return &detail, nil
}

// editableDelivery loads a delivery and applies the customer edit rules in
// order: ownership, cycle, status, cutoff on the current date.
func (s *deliveryService) editableDelivery(ctx context.Context, op string, requester domain.Identity, deliveryID uuid.UUID) (repository.SubscriptionDelivery, error) {
	delivery, err := s.repo.GetDelivery(ctx, deliveryID)
	if err != nil {
		if repository.IsNotFound(err) {
			return delivery, ErrDeliveryNotFound
		}
		return delivery, domain.Internal(err, op, "failed to load delivery")
	}

	sub, err := s.repo.GetPendingSubscription(ctx, delivery.SubscriptionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return delivery, ErrDeliveryNotFound
		}
		return delivery, domain.Internal(err, op, "failed to load subscription")
	}
	if sub.UserID != requester.UserID {
		return delivery, ErrDeliveryNotOwned
	}

	if delivery.CycleNumber <= domain.FirstDeliveryCycle {
		return delivery, ErrFirstDeliveryLocked
	}
	if delivery.Status != domain.DeliveryStatusScheduled {
		return delivery, ErrDeliveryNotScheduled
	}
	if domain.DaysUntil(s.clock.today(), delivery.DeliveryDate) <= domain.DeliveryCutoffDays {
		return delivery, ErrDeliveryTooClose
	}
	return delivery, nil
}

func toDeliveryDetail(d repository.SubscriptionDelivery, today time.Time) DeliveryDetail {
	return DeliveryDetail{
		ID:             d.ID,
		SubscriptionID: d.SubscriptionID,
		CycleNumber:    d.CycleNumber,
		DeliveryDate:   d.DeliveryDate,
		Status:         d.Status,
		Editable: d.CycleNumber > domain.FirstDeliveryCycle &&
			d.Status == domain.DeliveryStatusScheduled &&
			domain.DaysUntil(today, d.DeliveryDate) > domain.DeliveryCutoffDays,
	}
}
