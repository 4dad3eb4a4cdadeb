package service

import (
	"context"
	"fmt"

	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/rs/zerolog"
)

// handleInvoicePaid schedules the delivery for the billing cycle the invoice
// paid for and activates a subscription on its first invoice.
//
// A delivery already present for (subscription, cycle) makes this a no-op,
// which covers duplicate invoice events. The unique index on that pair
// catches concurrent duplicates that pass the check.
func (s *webhookService) handleInvoicePaid(ctx context.Context, log zerolog.Logger, ev billing.InvoicePaid) error {
	log = log.With().
		Str("provider_subscription_id", ev.SubscriptionID).
		Str("invoice_id", ev.Invoice.ID).
		Logger()

	sub, err := s.repo.GetPendingSubscriptionByProviderID(ctx, ev.SubscriptionID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info().Msg("invoice for unknown subscription, ignoring")
			return nil
		}
		return fmt.Errorf("load subscription: %w", err)
	}
	log = log.With().Str("subscription_id", sub.ID.String()).Logger()

	// Cycle derivation reads the delivery count, so the whole subscription is
	// locked rather than a single cycle.
	return s.withLock(ctx, log, "subscription:"+sub.ID.String(), func() error {
		sub, err := s.repo.GetPendingSubscription(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("reload subscription: %w", err)
		}

		cycle, err := s.resolveCycle(ctx, log, sub, ev)
		if err != nil {
			return err
		}
		log := log.With().Int32("cycle", cycle).Logger()

		if err := s.scheduleCycle(ctx, log, sub, cycle); err != nil {
			return err
		}
		return s.activate(ctx, log, sub)
	})
}

// resolveCycle prefers the provider's cycle counter. Without one, a
// subscription that has never been paid is on cycle 1 and any other falls
// back to the delivery count plus one. The fallback is best effort:
// out-of-order invoices can skip or repeat a cycle number on that path.
func (s *webhookService) resolveCycle(ctx context.Context, log zerolog.Logger, sub repository.PendingSubscription, ev billing.InvoicePaid) (int32, error) {
	if cycle, ok := ev.BillingCycle(); ok {
		return cycle, nil
	}
	if sub.Status == domain.SubscriptionStatusCreated {
		return domain.FirstDeliveryCycle, nil
	}

	count, err := s.repo.CountDeliveriesForSubscription(ctx, sub.ID)
	if err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	cycle := int32(count) + 1
	log.Warn().Int32("cycle", cycle).Msg("invoice has no billing cycle, using delivery count")
	return cycle, nil
}

func (s *webhookService) scheduleCycle(ctx context.Context, log zerolog.Logger, sub repository.PendingSubscription, cycle int32) error {
	_, err := s.repo.GetDeliveryByCycle(ctx, repository.GetDeliveryByCycleParams{
		SubscriptionID: sub.ID,
		CycleNumber:    cycle,
	})
	if err == nil {
		log.Info().Msg("delivery already scheduled for cycle")
		return nil
	}
	if !repository.IsNotFound(err) {
		return fmt.Errorf("check delivery: %w", err)
	}

	delivery, err := s.repo.CreateDelivery(ctx, repository.CreateDeliveryParams{
		SubscriptionID: sub.ID,
		CycleNumber:    cycle,
		DeliveryDate:   domain.NextDeliveryDate(s.clock.now().In(s.clock.loc)),
		Status:         domain.DeliveryStatusScheduled,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			log.Info().Msg("delivery for cycle created concurrently")
			return nil
		}
		return fmt.Errorf("create delivery: %w", err)
	}

	s.metrics.RecordDeliveryScheduled("invoice")
	publish(ctx, s.publisher, log, events.SubjectDeliveryScheduled, toDeliveryDetail(delivery, s.clock.today()))

	log.Info().
		Str("delivery_id", delivery.ID.String()).
		Time("delivery_date", delivery.DeliveryDate).
		Msg("delivery scheduled from invoice")
	return nil
}

// activate marks a created subscription active once it has been paid.
func (s *webhookService) activate(ctx context.Context, log zerolog.Logger, sub repository.PendingSubscription) error {
	if sub.Status != domain.SubscriptionStatusCreated {
		return nil
	}
	updated, err := s.repo.UpdatePendingSubscriptionStatus(ctx, repository.UpdatePendingSubscriptionStatusParams{
		ID:     sub.ID,
		Status: domain.SubscriptionStatusActive,
	})
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	s.metrics.RecordSubscriptionTransition(domain.SubscriptionStatusActive)
	publish(ctx, s.publisher, log, events.SubjectSubscriptionActivated, toSubscriptionDetail(updated))
	log.Info().Msg("subscription activated")
	return nil
}
