package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackslot/rackslot-backend/pkg/logger"
)

type ackRecorder struct {
	acked    bool
	nacked   bool
	requeue  bool
	rejected bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	a.rejected = true
	a.requeue = requeue
	return nil
}

func delivery(t *testing.T, eventType string, ack amqp.Acknowledger) amqp.Delivery {
	t.Helper()
	event, err := NewEvent(eventType, "test", "corr-1", map[string]string{"k": "v"})
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestConsumer_HandleMessage(t *testing.T) {
	c := newConsumer(nil, "test-queue", logger.NewNop())
	failing := errors.New("boom")

	var gotCorrelation string
	c.RegisterHandler("ok", func(ctx context.Context, e *Event) error {
		gotCorrelation = CorrelationID(ctx)
		return nil
	})
	c.RegisterHandler("fail", func(ctx context.Context, e *Event) error { return failing })

	t.Run("success acks", func(t *testing.T) {
		ack := &ackRecorder{}
		c.handleMessage(context.Background(), delivery(t, "ok", ack))
		assert.True(t, ack.acked)
		assert.Equal(t, "corr-1", gotCorrelation)
	})

	t.Run("unknown type acks", func(t *testing.T) {
		ack := &ackRecorder{}
		c.handleMessage(context.Background(), delivery(t, "other", ack))
		assert.True(t, ack.acked)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		ack := &ackRecorder{}
		c.handleMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
		assert.True(t, ack.rejected)
		assert.False(t, ack.requeue)
	})

	t.Run("first failure requeues", func(t *testing.T) {
		ack := &ackRecorder{}
		c.handleMessage(context.Background(), delivery(t, "fail", ack))
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeue)
	})

	t.Run("failed redelivery goes to the DLQ", func(t *testing.T) {
		ack := &ackRecorder{}
		d := delivery(t, "fail", ack)
		d.Redelivered = true
		c.handleMessage(context.Background(), d)
		assert.True(t, ack.rejected)
		assert.False(t, ack.requeue)
	})

	t.Run("dead-letter cycles exhausted", func(t *testing.T) {
		ack := &ackRecorder{}
		d := delivery(t, "fail", ack)
		d.Headers = amqp.Table{"x-death": []interface{}{amqp.Table{"count": int64(MaxDeadLetterCycles)}}}
		c.handleMessage(context.Background(), d)
		assert.True(t, ack.rejected)
	})
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent(EventItemPlaced, "placement-service", "corr", ItemPlacedEvent{SystemCode: "SYS1"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventItemPlaced, e.Type)

	var data ItemPlacedEvent
	require.NoError(t, e.UnmarshalData(&data))
	assert.Equal(t, "SYS1", data.SystemCode)
}
