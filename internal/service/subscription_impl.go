package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/dukerupert/roastbox/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// subscriptionService implements SubscriptionService interface
type subscriptionService struct {
	repo      repository.Querier
	provider  billing.Provider
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    zerolog.Logger
	cfg       SubscriptionConfig
	clock     clock
}

// NewSubscriptionService creates a new SubscriptionService instance
func NewSubscriptionService(
	repo repository.Querier,
	provider billing.Provider,
	publisher events.Publisher,
	metrics *telemetry.BusinessMetrics,
	logger zerolog.Logger,
	cfg SubscriptionConfig,
) SubscriptionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &subscriptionService{
		repo:      repo,
		provider:  provider,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("service", "subscription").Logger(),
		cfg:       cfg,
		clock:     newClock(cfg.Location),
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*CreateSubscriptionResult, error) {
	const op = "subscription.Create"

	// Step 1: Request shape
	if params.PreferredDeliveryDay < domain.MinPreferredDeliveryDay || params.PreferredDeliveryDay > domain.MaxPreferredDeliveryDay {
		return nil, s.reject(ErrInvalidPreferredDay, "preferred_day")
	}
	if params.Quantity <= 0 {
		return nil, s.reject(ErrInvalidQuantity, "quantity")
	}
	if params.TotalDeliveries <= 0 {
		return nil, s.reject(ErrInvalidTotalDeliveries, "total_deliveries")
	}
	if err := validate.Struct(params.ShippingAddress); err != nil {
		return nil, s.reject(ErrInvalidShippingAddress, "shipping_address")
	}

	// Step 2: Eligibility
	variant, err := s.repo.GetProductVariant(ctx, params.VariantID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, s.reject(ErrVariantNotFound, "variant_not_found")
		}
		return nil, domain.Internal(err, op, "failed to load product variant")
	}
	if variant.ProductID != params.ProductID {
		return nil, s.reject(ErrVariantProductMismatch, "variant_mismatch")
	}
	if !strings.EqualFold(variant.Category, s.cfg.Category) {
		return nil, s.reject(ErrIneligibleCategory, "category")
	}
	if variant.WeightGrams != s.cfg.WeightGrams {
		return nil, s.reject(ErrIneligibleSize, "size")
	}

	// Step 3: Billing plan
	if !variant.BillingPlanID.Valid || variant.BillingPlanID.String == "" {
		return nil, s.reject(ErrNoBillingPlan, "no_plan")
	}
	planID := variant.BillingPlanID.String

	plan, err := s.provider.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotFound) {
			s.logger.Warn().Err(err).Str("plan_id", planID).Msg("billing plan missing at provider")
			return nil, s.reject(ErrPlanUnavailable, "plan_missing")
		}
		return nil, upstreamError(err, op, "look up the plan")
	}
	if !plan.IsActive() {
		return nil, s.reject(ErrPlanUnavailable, "plan_inactive")
	}

	// Step 4: Provider subscription
	sub, err := s.provider.CreateSubscription(ctx, billing.CreateSubscriptionParams{
		PlanID:         planID,
		TotalCount:     int(params.TotalDeliveries),
		Quantity:       int(params.Quantity),
		CustomerNotify: true,
		Notes: map[string]string{
			"user_id":    params.UserID.String(),
			"product_id": params.ProductID.String(),
			"variant_id": params.VariantID.String(),
		},
	})
	if err != nil {
		return nil, upstreamError(err, op, "create the subscription")
	}

	log := s.logger.With().
		Str("provider_subscription_id", sub.ID).
		Str("user_id", params.UserID.String()).
		Logger()

	// Step 5: Local record
	address, err := json.Marshal(params.ShippingAddress)
	if err != nil {
		s.compensate(ctx, log, sub.ID)
		return nil, domain.Internal(err, op, "failed to encode shipping address")
	}

	pending, err := s.repo.CreatePendingSubscription(ctx, repository.CreatePendingSubscriptionParams{
		UserID:                 params.UserID,
		ProductID:              params.ProductID,
		VariantID:              params.VariantID,
		Quantity:               params.Quantity,
		PreferredDeliveryDay:   params.PreferredDeliveryDay,
		TotalDeliveries:        params.TotalDeliveries,
		ShippingAddress:        address,
		BillingPlanID:          planID,
		ProviderSubscriptionID: sub.ID,
		Status:                 domain.SubscriptionStatusCreated,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to persist pending subscription")
		s.compensate(ctx, log, sub.ID)
		return nil, domain.Internal(err, op, "failed to save subscription")
	}

	// Step 6: First delivery
	delivery, err := s.repo.CreateDelivery(ctx, repository.CreateDeliveryParams{
		SubscriptionID: pending.ID,
		CycleNumber:    domain.FirstDeliveryCycle,
		DeliveryDate:   domain.NextDeliveryDate(s.clock.now().In(s.clock.loc)),
		Status:         domain.DeliveryStatusScheduled,
	})
	if err != nil {
		log.Error().Err(err).Str("subscription_id", pending.ID.String()).Msg("failed to schedule first delivery")
		if _, uerr := s.repo.UpdatePendingSubscriptionStatus(ctx, repository.UpdatePendingSubscriptionStatusParams{
			ID:     pending.ID,
			Status: domain.SubscriptionStatusCancelled,
		}); uerr != nil {
			log.Error().Err(uerr).Msg("failed to mark subscription cancelled")
		}
		s.compensate(ctx, log, sub.ID)
		return nil, domain.Internal(err, op, "failed to schedule first delivery")
	}

	s.metrics.RecordSubscriptionCreated()
	s.metrics.RecordDeliveryScheduled("create")

	detail := toSubscriptionDetail(pending)
	first := toDeliveryDetail(delivery, s.clock.today())
	publish(ctx, s.publisher, log, events.SubjectSubscriptionCreated, detail)
	publish(ctx, s.publisher, log, events.SubjectDeliveryScheduled, first)

	log.Info().
		Str("subscription_id", pending.ID.String()).
		Str("plan_id", planID).
		Int32("total_deliveries", params.TotalDeliveries).
		Msg("subscription created")

	return &CreateSubscriptionResult{
		ProviderSubscriptionID: sub.ID,
		ShortURL:               sub.ShortURL,
		PendingSubscriptionID:  pending.ID,
		PlanAmount:             plan.Amount(),
		Currency:               plan.Currency,
		FirstDelivery:          first,
	}, nil
}

// compensate cancels a provider subscription whose local records could not
// be written. A failed cancel is logged; the provider object is then orphaned.
func (s *subscriptionService) compensate(ctx context.Context, log zerolog.Logger, providerSubscriptionID string) {
	if _, err := s.provider.CancelSubscription(ctx, providerSubscriptionID); err != nil {
		log.Error().Err(err).Msg("compensating cancel failed, provider subscription is orphaned")
		return
	}
	log.Warn().Msg("provider subscription cancelled after local write failure")
}

func (s *subscriptionService) reject(err error, reason string) error {
	s.metrics.RecordSubscriptionRejected(reason)
	return err
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*SubscriptionDetail, error) {
	sub, err := s.ownedSubscription(ctx, "subscription.Get", userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	detail := toSubscriptionDetail(sub)
	return &detail, nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]SubscriptionDetail, error) {
	rows, err := s.repo.ListPendingSubscriptionsForUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "subscription.List", "failed to list subscriptions")
	}
	out := make([]SubscriptionDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSubscriptionDetail(row))
	}
	return out, nil
}

func (s *subscriptionService) PauseSubscription(ctx context.Context, params PauseSubscriptionParams) (*SubscriptionDetail, error) {
	const op = "subscription.Pause"

	sub, err := s.ownedSubscription(ctx, op, params.UserID, params.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubscriptionStatusActive {
		return nil, ErrSubscriptionNotActive
	}
	if !params.ResumeAt.After(s.clock.now()) {
		return nil, ErrInvalidResumeDate
	}

	if _, err := s.provider.PauseSubscription(ctx, billing.PauseSubscriptionParams{
		SubscriptionID: sub.ProviderSubscriptionID,
		ResumeAt:       params.ResumeAt,
	}); err != nil {
		return nil, upstreamError(err, op, "pause the subscription")
	}

	return s.transition(ctx, op, sub, domain.SubscriptionStatusPaused, events.SubjectSubscriptionPaused)
}

func (s *subscriptionService) ResumeSubscription(ctx context.Context, params ManageSubscriptionParams) (*SubscriptionDetail, error) {
	const op = "subscription.Resume"

	sub, err := s.ownedSubscription(ctx, op, params.UserID, params.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubscriptionStatusPaused {
		return nil, ErrSubscriptionNotPaused
	}

	if _, err := s.provider.ResumeSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
		return nil, upstreamError(err, op, "resume the subscription")
	}

	return s.transition(ctx, op, sub, domain.SubscriptionStatusActive, events.SubjectSubscriptionResumed)
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, params ManageSubscriptionParams) (*SubscriptionDetail, error) {
	const op = "subscription.Cancel"

	sub, err := s.ownedSubscription(ctx, op, params.UserID, params.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.SubscriptionStatusCancelled {
		return nil, ErrSubscriptionAlreadyCancelled
	}

	if _, err := s.provider.CancelSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
		return nil, upstreamError(err, op, "cancel the subscription")
	}

	return s.transition(ctx, op, sub, domain.SubscriptionStatusCancelled, events.SubjectSubscriptionCancelled)
}

// transition stores a status the provider has already accepted.
func (s *subscriptionService) transition(ctx context.Context, op string, sub repository.PendingSubscription, status, subject string) (*SubscriptionDetail, error) {
	updated, err := s.repo.UpdatePendingSubscriptionStatus(ctx, repository.UpdatePendingSubscriptionStatusParams{
		ID:     sub.ID,
		Status: status,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("subscription_id", sub.ID.String()).
			Str("status", status).
			Msg("provider accepted status change but local update failed")
		return nil, domain.Internal(err, op, fmt.Sprintf("failed to mark subscription %s", status))
	}

	s.metrics.RecordSubscriptionTransition(status)
	detail := toSubscriptionDetail(updated)
	publish(ctx, s.publisher, s.logger, subject, detail)

	s.logger.Info().
		Str("subscription_id", sub.ID.String()).
		Str("from", sub.Status).
		Str("to", status).
		Msg("subscription status changed")

	return &detail, nil
}

func (s *subscriptionService) ownedSubscription(ctx context.Context, op string, userID, subscriptionID uuid.UUID) (repository.PendingSubscription, error) {
	sub, err := s.repo.GetPendingSubscription(ctx, subscriptionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return sub, ErrSubscriptionNotFound
		}
		return sub, domain.Internal(err, op, "failed to load subscription")
	}
	if sub.UserID != userID {
		return sub, ErrSubscriptionNotOwned
	}
	return sub, nil
}

func toSubscriptionDetail(sub repository.PendingSubscription) SubscriptionDetail {
	detail := SubscriptionDetail{
		ID:                     sub.ID,
		ProductID:              sub.ProductID,
		VariantID:              sub.VariantID,
		Quantity:               sub.Quantity,
		PreferredDeliveryDay:   sub.PreferredDeliveryDay,
		TotalDeliveries:        sub.TotalDeliveries,
		BillingPlanID:          sub.BillingPlanID,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		Status:                 sub.Status,
		CreatedAt:              sub.CreatedAt,
		UpdatedAt:              sub.UpdatedAt,
	}
	if addr, err := decodeAddress(sub.ShippingAddress); err == nil {
		detail.ShippingAddress = addr
	}
	return detail
}
