package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"storefront-system/internal/events"
)

const StockEventsChannelPrefix = "stock:events:"

// RedisPublisher publishes on "<topic>" and on the per-kind channel when the
// event is a stock change.
type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: rdb}
}

func (p *RedisPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if sc, ok := event.(events.StockChanged); ok {
		channel := StockEventsChannelPrefix + sc.Kind()
		if err := p.redis.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
	}

	if err := p.redis.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	return nil
}
