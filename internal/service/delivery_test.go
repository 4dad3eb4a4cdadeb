package service

import (
	"context"
	"testing"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryEdits_Cutoff(t *testing.T) {
	tests := []struct {
		name      string
		daysAhead int
		wantErr   error
	}{
		{name: "today plus 3 is inside the cutoff", daysAhead: 3, wantErr: ErrDeliveryTooClose},
		{name: "today plus 4 is editable", daysAhead: 4},
		{name: "tomorrow is inside the cutoff", daysAhead: 1, wantErr: ErrDeliveryTooClose},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/skip", func(t *testing.T) {
			f := newFixture(t)
			sub := f.seedSubscription(t, "sub_cutoff", domain.SubscriptionStatusActive)
			d := f.seedDelivery(sub, 2, tt.daysAhead, domain.DeliveryStatusScheduled)

			detail, err := f.deliveryService().SkipDelivery(context.Background(), SkipDeliveryParams{
				Requester:  domain.Identity{UserID: f.userID},
				DeliveryID: d.ID,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, domain.DeliveryStatusScheduled, f.store.Deliveries(sub.ID)[0].Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.DeliveryStatusSkipped, detail.Status)
			assert.False(t, detail.Editable)
		})

		t.Run(tt.name+"/update_date", func(t *testing.T) {
			f := newFixture(t)
			sub := f.seedSubscription(t, "sub_cutoff", domain.SubscriptionStatusActive)
			d := f.seedDelivery(sub, 2, tt.daysAhead, domain.DeliveryStatusScheduled)
			newDate := f.today().AddDate(0, 0, 10)

			detail, err := f.deliveryService().UpdateDeliveryDate(context.Background(), UpdateDeliveryDateParams{
				Requester:  domain.Identity{UserID: f.userID},
				DeliveryID: d.ID,
				NewDate:    newDate,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, f.store.Deliveries(sub.ID)[0].DeliveryDate.Equal(d.DeliveryDate))
				return
			}
			require.NoError(t, err)
			assert.True(t, detail.DeliveryDate.Equal(newDate))
			assert.Equal(t, domain.DeliveryStatusScheduled, detail.Status)
			assert.Equal(t, int32(2), detail.CycleNumber)
		})
	}
}

func TestUpdateDeliveryDate_NewDateCutoff(t *testing.T) {
	tests := []struct {
		name    string
		newDays int
		wantErr error
	}{
		{name: "new date today plus 3", newDays: 3, wantErr: ErrNewDateTooClose},
		{name: "new date in the past", newDays: -2, wantErr: ErrNewDateTooClose},
		{name: "new date today plus 4", newDays: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sub := f.seedSubscription(t, "sub_newdate", domain.SubscriptionStatusActive)
			d := f.seedDelivery(sub, 3, 12, domain.DeliveryStatusScheduled)

			_, err := f.deliveryService().UpdateDeliveryDate(context.Background(), UpdateDeliveryDateParams{
				Requester:  domain.Identity{UserID: f.userID},
				DeliveryID: d.ID,
				NewDate:    f.today().AddDate(0, 0, tt.newDays),
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDeliveryEdits_RuleOrder(t *testing.T) {
	tests := []struct {
		name      string
		cycle     int32
		status    string
		daysAhead int
		requester func(f *fixture) domain.Identity
		wantErr   error
	}{
		{
			name:      "another customer is rejected before anything else",
			cycle:     1,
			status:    domain.DeliveryStatusDelivered,
			daysAhead: 1,
			requester: func(f *fixture) domain.Identity { return domain.Identity{UserID: uuid.New()} },
			wantErr:   ErrDeliveryNotOwned,
		},
		{
			name:      "first cycle regardless of date",
			cycle:     1,
			status:    domain.DeliveryStatusScheduled,
			daysAhead: 20,
			requester: func(f *fixture) domain.Identity { return domain.Identity{UserID: f.userID} },
			wantErr:   ErrFirstDeliveryLocked,
		},
		{
			name:      "first cycle regardless of status",
			cycle:     1,
			status:    domain.DeliveryStatusSkipped,
			daysAhead: 20,
			requester: func(f *fixture) domain.Identity { return domain.Identity{UserID: f.userID} },
			wantErr:   ErrFirstDeliveryLocked,
		},
		{
			name:      "first cycle even for an admin",
			cycle:     1,
			status:    domain.DeliveryStatusScheduled,
			daysAhead: 20,
			requester: func(f *fixture) domain.Identity { return domain.Identity{UserID: f.userID, Admin: true} },
			wantErr:   ErrFirstDeliveryLocked,
		},
		{
			name:      "delivered is not scheduled",
			cycle:     2,
			status:    domain.DeliveryStatusDelivered,
			daysAhead: 20,
			requester: func(f *fixture) domain.Identity { return domain.Identity{UserID: f.userID} },
			wantErr:   ErrDeliveryNotScheduled,
		},
		{
			name:      "skipped is not scheduled",
			cycle:     2,
			status:    domain.DeliveryStatusSkipped,
			daysAhead: 20,
			requester: func(f *fixture) domain.Identity { return domain.Identity{UserID: f.userID} },
			wantErr:   ErrDeliveryNotScheduled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sub := f.seedSubscription(t, "sub_rules", domain.SubscriptionStatusActive)
			d := f.seedDelivery(sub, tt.cycle, tt.daysAhead, tt.status)
			svc := f.deliveryService()

			_, err := svc.SkipDelivery(context.Background(), SkipDeliveryParams{
				Requester:  tt.requester(f),
				DeliveryID: d.ID,
			})
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = svc.UpdateDeliveryDate(context.Background(), UpdateDeliveryDateParams{
				Requester:  tt.requester(f),
				DeliveryID: d.ID,
				NewDate:    f.today().AddDate(0, 0, 30),
			})
			assert.ErrorIs(t, err, tt.wantErr)

			stored := f.store.Deliveries(sub.ID)[0]
			assert.Equal(t, tt.status, stored.Status)
			assert.True(t, stored.DeliveryDate.Equal(d.DeliveryDate))
			assert.Empty(t, f.recorder.Subjects())
		})
	}
}

func TestDeliveryEdits_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.deliveryService().SkipDelivery(context.Background(), SkipDeliveryParams{
		Requester:  domain.Identity{UserID: f.userID},
		DeliveryID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}

func TestDeliveryRejectionMessagesAreDistinct(t *testing.T) {
	msgs := map[string]bool{}
	for _, err := range []error{ErrFirstDeliveryLocked, ErrDeliveryNotScheduled, ErrDeliveryTooClose, ErrNewDateTooClose} {
		msgs[domain.ErrorMessage(err)] = true
	}
	assert.Len(t, msgs, 4)
}

func TestAdminUpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		admin   bool
		status  string
		wantErr error
	}{
		{name: "admin marks delivered", admin: true, status: domain.DeliveryStatusDelivered},
		{name: "admin reopens", admin: true, status: domain.DeliveryStatusScheduled},
		{name: "customer is refused", admin: false, status: domain.DeliveryStatusDelivered, wantErr: ErrAdminRequired},
		{name: "unknown status", admin: true, status: "lost", wantErr: ErrInvalidDeliveryStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sub := f.seedSubscription(t, "sub_admin", domain.SubscriptionStatusActive)
			// Cycle 1 inside the cutoff and already skipped: nothing a customer could edit.
			d := f.seedDelivery(sub, 1, 1, domain.DeliveryStatusSkipped)

			detail, err := f.deliveryService().AdminUpdateStatus(context.Background(), AdminUpdateStatusParams{
				Requester:  domain.Identity{UserID: uuid.New(), Admin: tt.admin},
				DeliveryID: d.ID,
				Status:     tt.status,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, domain.DeliveryStatusSkipped, f.store.Deliveries(sub.ID)[0].Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, detail.Status)
			assert.True(t, detail.DeliveryDate.Equal(d.DeliveryDate))
			assert.Equal(t, []string{events.SubjectDeliveryUpdated}, f.recorder.Subjects())
		})
	}
}

func TestListDeliveries(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, "sub_list", domain.SubscriptionStatusActive)
	f.seedDelivery(sub, 1, 1, domain.DeliveryStatusScheduled)
	f.seedDelivery(sub, 2, 30, domain.DeliveryStatusScheduled)

	other := uuid.New()
	list, err := f.deliveryService().ListDeliveries(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, int32(1), list[0].CycleNumber)
	assert.False(t, list[0].Editable)
	assert.Equal(t, int32(2), list[1].CycleNumber)
	assert.True(t, list[1].Editable)
	assert.Equal(t, "Filter Coffee Powder", list[1].ProductName)
	assert.Equal(t, "1 kg", list[1].VariantName)
	assert.Equal(t, int32(testWeight), list[1].WeightGrams)
	assert.Equal(t, int32(1), list[1].Quantity)

	none, err := f.deliveryService().ListDeliveries(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, none)
}
