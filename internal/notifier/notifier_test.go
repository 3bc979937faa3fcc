package notifier

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisOutbox_QueuesMessage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	outbox := NewRedisOutbox(rdb, "mail:outbox")
	require.NoError(t, outbox.SendEmail(context.Background(), "ops@example.com", "Low stock", "<p>hi</p>"))

	items, err := rdb.LRange(context.Background(), "mail:outbox", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, items, 1)

	var msg OutboxMessage
	require.NoError(t, json.Unmarshal([]byte(items[0]), &msg))
	assert.Equal(t, "ops@example.com", msg.To)
	assert.Equal(t, "Low stock", msg.Subject)
	assert.NotEmpty(t, msg.ID)
}

func TestRedisOutbox_RequiresRecipient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	err := NewRedisOutbox(rdb, "mail:outbox").SendEmail(context.Background(), "", "s", "b")
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(zap.NewNop()).SendEmail(context.Background(), "a@b.c", "s", "b"))
}
