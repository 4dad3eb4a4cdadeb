// Package service holds the subscription, delivery and webhook business logic.
// Services depend on repository.Querier and billing.Provider interfaces and
// report failures as *domain.Error values.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/roastbox/internal/billing"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// clock returns the current time in loc.
type clock struct {
	now func() time.Time
	loc *time.Location
}

func newClock(loc *time.Location) clock {
	if loc == nil {
		loc = time.UTC
	}
	return clock{now: time.Now, loc: loc}
}

func (c clock) today() time.Time {
	return domain.DateOnly(c.now().In(c.loc))
}

// upstreamError maps a provider failure to EUPSTREAM, keeping the provider's
// description in the user-facing message.
func upstreamError(err error, op, action string) error {
	var perr *billing.ProviderError
	if errors.As(err, &perr) {
		return domain.Upstream(err, op, fmt.Sprintf("Billing provider could not %s: %s", action, perr.Description))
	}
	return domain.Upstream(err, op, fmt.Sprintf("Billing provider could not %s", action))
}

// publish sends an event and logs, but never returns, publish failures.
// Business state is already committed when events go out.
func publish(ctx context.Context, pub events.Publisher, logger zerolog.Logger, subject string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, payload); err != nil {
		logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

func decodeAddress(raw []byte) (domain.ShippingAddress, error) {
	var addr domain.ShippingAddress
	if len(raw) == 0 {
		return addr, errors.New("empty shipping address")
	}
	if err := json.Unmarshal(raw, &addr); err != nil {
		return addr, fmt.Errorf("decode shipping address: %w", err)
	}
	return addr, nil
}
