// Package messaging forwards stock events to external brokers.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"storefront-system/internal/events"
)

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// StockEventSink adapts a Publisher into a bus subscriber. Every event of the
// batch is attempted; failures are joined.
func StockEventSink(pub Publisher, topic string) events.Handler {
	return func(ctx context.Context, batch []events.StockChanged) error {
		var errs []error
		for _, e := range batch {
			key := fmt.Sprintf("%d", e.ProductID)
			if err := pub.PublishEvent(ctx, topic, key, e); err != nil {
				errs = append(errs, fmt.Errorf("product %d: %w", e.ProductID, err))
			}
		}
		return errors.Join(errs...)
	}
}
