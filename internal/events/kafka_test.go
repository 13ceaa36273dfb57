package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogerio-castellano/inventory-orders/internal/models"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessage(_ context.Context, msg kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msg)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublish(t *testing.T) {
	w := &recordingWriter{}
	k := NewKafka(w)

	order := models.OrderWithLines{
		Order:    models.Order{OrderID: "o1", Email: "a@example.com", OrderStatus: models.OrderStatusNew},
		Products: []models.LineItem{{OrderID: "o1", ProductID: "p1", Qty: 2}},
	}
	require.NoError(t, k.Publish(context.Background(), NewOrderEvent(OrderCreated, order)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "o1", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte(OrderCreated)}}, msg.Headers)

	var got OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, OrderCreated, got.Type)
	assert.Equal(t, models.OrderStatusNew, got.Status)
	assert.Len(t, got.Products, 1)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublishError(t *testing.T) {
	boom := errors.New("broker down")
	k := NewKafka(&recordingWriter{err: boom})

	err := k.Publish(context.Background(), OrderEvent{Type: OrderCancelled, OrderID: "o1"})
	assert.ErrorIs(t, err, boom)
}
