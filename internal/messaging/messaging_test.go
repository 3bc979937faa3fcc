package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-system/internal/database/models"
	"storefront-system/internal/events"
)

type recordingPublisher struct {
	keys []string
	fail map[string]bool
}

func (r *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	if r.fail[key] {
		return errors.New("broker down")
	}
	r.keys = append(r.keys, topic+"/"+key)
	return nil
}

func TestStockEventSink_PublishesEachEvent(t *testing.T) {
	pub := &recordingPublisher{fail: map[string]bool{"2": true}}
	sink := StockEventSink(pub, "stock.changed")

	err := sink(context.Background(), []events.StockChanged{{ProductID: 1}, {ProductID: 2}, {ProductID: 3}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "product 2")
	assert.Equal(t, []string{"stock.changed/1", "stock.changed/3"}, pub.keys)
}

func TestRedisPublisher_PublishesToKindAndTopic(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "stock:events:sale", "stock:events:all")
	defer sub.Close()
	for i := 0; i < 2; i++ {
		_, err := sub.Receive(ctx)
		require.NoError(t, err)
	}

	pub := NewRedisPublisher(rdb)
	event := events.StockChanged{
		ProductID:      9,
		QuantityBefore: 3,
		QuantityAfter:  1,
		Movement:       &events.Movement{Type: models.MovementSale},
	}
	require.NoError(t, pub.PublishEvent(ctx, "stock:events:all", "9", event))

	channels := map[string]bool{}
	for len(channels) < 2 {
		msg, err := sub.ReceiveTimeout(ctx, time.Second)
		require.NoError(t, err)
		m, ok := msg.(*redis.Message)
		if !ok {
			continue
		}
		channels[m.Channel] = true

		var decoded events.StockChanged
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &decoded))
		assert.Equal(t, int64(9), decoded.ProductID)
	}
	assert.True(t, channels["stock:events:sale"])
	assert.True(t, channels["stock:events:all"])
}
