package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// errEmptyPendingOrder fails a capture whose pending order has no cart lines.
// The pending order is kept for manual inspection.
var errEmptyPendingOrder = errors.New("pending order has no items")

// OrderCreated is published after a captured payment becomes an order.
type OrderCreated struct {
	OrderID           uuid.UUID `json:"order_id"`
	UserID            uuid.UUID `json:"user_id"`
	ProviderOrderID   string    `json:"provider_order_id"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	AmountPaise       int64     `json:"amount_paise"`
	Currency          string    `json:"currency"`
	ItemCount         int       `json:"item_count"`
}

// handlePaymentCaptured turns the pending order named by the payment into an
// order with its items.
//
// The order reference comes from the payment entity. A missing pending order
// means the event was already applied. Items are inserted one by one; if any
// insert fails the order and its inserted items are deleted again.
func (s *webhookService) handlePaymentCaptured(ctx context.Context, log zerolog.Logger, ev billing.PaymentCaptured) error {
	payment := ev.Payment
	log = log.With().
		Str("provider_order_id", payment.OrderID).
		Str("payment_id", payment.ID).
		Logger()

	return s.withLock(ctx, log, "order:"+payment.OrderID, func() error {
		pending, err := s.repo.GetPendingOrderByProviderOrderID(ctx, payment.OrderID)
		if err != nil {
			if repository.IsNotFound(err) {
				log.Info().Msg("no pending order, payment already reconciled")
				return nil
			}
			return fmt.Errorf("load pending order: %w", err)
		}

		var items []domain.CartItem
		if err := json.Unmarshal(pending.Items, &items); err != nil {
			return fmt.Errorf("decode pending order items: %w", err)
		}
		if len(items) == 0 {
			return errEmptyPendingOrder
		}
		if err := validate.Var(items, "dive"); err != nil {
			return fmt.Errorf("pending order items: %w", err)
		}

		address, err := decodeAddress(pending.ShippingAddress)
		if err != nil {
			return err
		}
		address.Phone = domain.NormalizePhone(address.Phone)
		addressJSON, err := json.Marshal(address)
		if err != nil {
			return fmt.Errorf("encode shipping address: %w", err)
		}

		order, complete, err := s.createOrder(ctx, log, repository.CreateOrderParams{
			UserID:            pending.UserID,
			ProviderOrderID:   pending.ProviderOrderID,
			ProviderPaymentID: payment.ID,
			AmountPaise:       pending.AmountPaise,
			Currency:          pending.Currency,
			ShippingAddress:   addressJSON,
			Status:            domain.OrderStatusPaid,
		}, len(items))
		if err != nil {
			return err
		}
		if complete {
			log.Info().Msg("order already exists for payment, dropping pending order")
			return s.dropPendingOrder(ctx, pending)
		}

		for i, item := range items {
			if err := s.createOrderItem(ctx, order.ID, item); err != nil {
				log.Error().Err(err).
					Str("order_id", order.ID.String()).
					Int("item", i).
					Msg("order item insert failed, rolling back order")
				s.rollbackOrder(ctx, log, order.ID)
				return fmt.Errorf("create order item %d: %w", i, err)
			}
		}

		if err := s.repo.DeletePendingOrder(ctx, pending.ID); err != nil {
			return fmt.Errorf("delete pending order: %w", err)
		}

		s.metrics.RecordOrderCreated(order.Currency, order.AmountPaise)
		publish(ctx, s.publisher, log, events.SubjectOrderCreated, OrderCreated{
			OrderID:           order.ID,
			UserID:            order.UserID,
			ProviderOrderID:   order.ProviderOrderID,
			ProviderPaymentID: order.ProviderPaymentID,
			AmountPaise:       order.AmountPaise,
			Currency:          order.Currency,
			ItemCount:         len(items),
		})

		log.Info().
			Str("order_id", order.ID.String()).
			Int("items", len(items)).
			Int64("amount_paise", order.AmountPaise).
			Msg("order created from payment")
		return nil
	})
}

// createOrder inserts the order row. When the payment already has an order,
// complete reports whether it carries every cart line. An incomplete one is
// left over from a rollback that could not delete it; it is removed with its
// items and the order is inserted again.
func (s *webhookService) createOrder(ctx context.Context, log zerolog.Logger, params repository.CreateOrderParams, itemCount int) (order repository.Order, complete bool, err error) {
	order, err = s.repo.CreateOrder(ctx, params)
	if err == nil {
		return order, false, nil
	}
	if !repository.IsUniqueViolation(err) {
		return order, false, fmt.Errorf("create order: %w", err)
	}

	existing, err := s.repo.GetOrderByProviderPaymentID(ctx, params.ProviderPaymentID)
	if err != nil {
		return order, false, fmt.Errorf("load existing order: %w", err)
	}
	n, err := s.repo.CountOrderItems(ctx, existing.ID)
	if err != nil {
		return order, false, fmt.Errorf("count existing order items: %w", err)
	}
	if n == int64(itemCount) {
		return existing, true, nil
	}

	log.Warn().
		Str("order_id", existing.ID.String()).
		Int64("items", n).
		Int("expected", itemCount).
		Msg("existing order is incomplete, rebuilding it")
	s.metrics.RecordOrderRollback("incomplete_order")
	if err := s.repo.DeleteOrder(ctx, existing.ID); err != nil {
		return order, false, fmt.Errorf("delete incomplete order: %w", err)
	}

	order, err = s.repo.CreateOrder(ctx, params)
	if err != nil {
		return order, false, fmt.Errorf("recreate order: %w", err)
	}
	return order, false, nil
}

// createOrderItem re-reads the catalog so the item carries the names current
// at payment time.
func (s *webhookService) createOrderItem(ctx context.Context, orderID uuid.UUID, item domain.CartItem) error {
	variantID, err := uuid.Parse(item.VariantID)
	if err != nil {
		return fmt.Errorf("variant id: %w", err)
	}
	productID, err := uuid.Parse(item.ProductID)
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}

	variant, err := s.repo.GetProductVariant(ctx, variantID)
	if err != nil {
		return fmt.Errorf("resolve variant %s: %w", variantID, err)
	}

	_, err = s.repo.CreateOrderItem(ctx, repository.CreateOrderItemParams{
		OrderID:        orderID,
		ProductID:      productID,
		VariantID:      variantID,
		ProductName:    variant.ProductName,
		VariantName:    variant.VariantName,
		Quantity:       item.Quantity,
		UnitPricePaise: item.UnitPricePaise,
	})
	return err
}

// rollbackOrder removes a partially written order. Errors are logged; the
// event is retried and the pending order is still present.
func (s *webhookService) rollbackOrder(ctx context.Context, log zerolog.Logger, orderID uuid.UUID) {
	s.metrics.RecordOrderRollback("item_insert")
	if err := s.repo.DeleteOrderItems(ctx, orderID); err != nil {
		log.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to delete order items during rollback")
	}
	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		log.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to delete order during rollback")
	}
}

func (s *webhookService) dropPendingOrder(ctx context.Context, pending repository.PendingOrder) error {
	if err := s.repo.DeletePendingOrder(ctx, pending.ID); err != nil {
		return fmt.Errorf("delete pending order: %w", err)
	}
	return nil
}

// handlePaymentFailed discards the pending order. It is a no-op when the
// pending order is already gone.
func (s *webhookService) handlePaymentFailed(ctx context.Context, log zerolog.Logger, ev billing.PaymentFailed) error {
	if ev.Payment.OrderID == "" {
		log.Info().Str("payment_id", ev.Payment.ID).Msg("failed payment has no order reference")
		return nil
	}

	n, err := s.repo.DeletePendingOrderByProviderOrderID(ctx, ev.Payment.OrderID)
	if err != nil {
		return fmt.Errorf("delete pending order: %w", err)
	}
	if n > 0 {
		s.metrics.RecordPendingOrderDropped()
	}

	log.Info().
		Str("provider_order_id", ev.Payment.OrderID).
		Int64("deleted", n).
		Msg("payment failed, pending order discarded")
	return nil
}
