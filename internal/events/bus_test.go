package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront-system/internal/database/models"
)

func TestBus_DeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	got := map[string][]StockChanged{}
	for _, name := range []string{"ledger", "notify"} {
		name := name
		bus.Subscribe(name, func(ctx context.Context, batch []StockChanged) error {
			mu.Lock()
			defer mu.Unlock()
			got[name] = append(got[name], batch...)
			return nil
		})
	}

	bus.Publish(context.Background(), StockChanged{ProductID: 1}, StockChanged{ProductID: 2})
	bus.Wait()

	require.Len(t, got["ledger"], 2)
	require.Len(t, got["notify"], 2)
	assert.NotEmpty(t, got["ledger"][0].EventID)
	assert.False(t, got["ledger"][0].OccurredAt.IsZero())
}

func TestBus_FailingSubscriberDoesNotAffectOthers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var delivered atomic.Int32
	bus.Subscribe("broken", func(ctx context.Context, batch []StockChanged) error {
		return errors.New("boom")
	})
	bus.Subscribe("panics", func(ctx context.Context, batch []StockChanged) error {
		panic("oh no")
	})
	bus.Subscribe("ok", func(ctx context.Context, batch []StockChanged) error {
		delivered.Add(1)
		return nil
	})

	bus.Publish(context.Background(), StockChanged{ProductID: 1})
	bus.Wait()

	assert.Equal(t, int32(1), delivered.Load())
}

func TestBus_SubscriberOutlivesCancelledRequest(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var ctxErr error
	bus.Subscribe("ledger", func(ctx context.Context, batch []StockChanged) error {
		ctxErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, StockChanged{ProductID: 1})
	bus.Wait()

	assert.NoError(t, ctxErr)
}

func TestBus_EmptyBatchIsDropped(t *testing.T) {
	bus := NewBus(zap.NewNop())
	called := false
	bus.Subscribe("ledger", func(ctx context.Context, batch []StockChanged) error {
		called = true
		return nil
	})

	bus.Publish(context.Background())
	bus.Wait()

	assert.False(t, called)
}

func TestStockChanged_Kind(t *testing.T) {
	assert.Equal(t, "thresholds", StockChanged{}.Kind())
	assert.Equal(t, "sale", StockChanged{Movement: &Movement{Type: models.MovementSale}}.Kind())
}
