package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-system/internal/database/models"
	"storefront-system/internal/events"
	"storefront-system/internal/messaging"
)

type fakeWriter struct {
	msgs   []kafkaGo.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_WritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	pub := &Publisher{writer: w}

	sink := messaging.StockEventSink(pub, "stock.changed")
	err := sink(context.Background(), []events.StockChanged{{
		ProductID:      42,
		ProductName:    "Desk Lamp",
		QuantityBefore: 5,
		QuantityAfter:  2,
		StatusAfter:    models.StockStatusLowStock,
		Movement:       &events.Movement{Type: models.MovementSale},
	}})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "stock.changed", msg.Topic)
	assert.Equal(t, "42", string(msg.Key))

	var got events.StockChanged
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, int64(42), got.ProductID)
	assert.Equal(t, 2, got.QuantityAfter)
	assert.Equal(t, models.StockStatusLowStock, got.StatusAfter)
	require.NotNil(t, got.Movement)
	assert.Equal(t, models.MovementSale, got.Movement.Type)

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestPublisher_Errors(t *testing.T) {
	down := errors.New("leader not available")
	pub := &Publisher{writer: &fakeWriter{err: down}}

	err := pub.PublishEvent(context.Background(), "stock.changed", "1", events.StockChanged{ProductID: 1})
	require.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "stock.changed")

	err = pub.PublishEvent(context.Background(), "stock.changed", "1", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal event")
}
