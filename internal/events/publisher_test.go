package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNATSPublisher_Subject(t *testing.T) {
	assert.Equal(t, "roastbox.order.created", (&NATSPublisher{prefix: "roastbox"}).Subject(SubjectOrderCreated))
	assert.Equal(t, "order.created", (&NATSPublisher{}).Subject(SubjectOrderCreated))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	_ = r.Publish(ctx, SubjectDeliveryScheduled, map[string]int{"cycle": 1})
	_ = r.Publish(ctx, SubjectDeliveryScheduled, map[string]int{"cycle": 2})
	_ = r.Publish(ctx, SubjectOrderCreated, nil)

	assert.Equal(t, 2, r.Count(SubjectDeliveryScheduled))
	assert.Equal(t, []string{SubjectDeliveryScheduled, SubjectDeliveryScheduled, SubjectOrderCreated}, r.Subjects())
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), SubjectOrderCreated, nil))
}
