// Package events fans stock changes out to independent, best-effort subscribers.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront-system/internal/database/models"
)

// StockChanged describes one product's stock transition. Movement is nil when
// only thresholds changed and the count stayed put.
type StockChanged struct {
	EventID        string             `json:"eventId"`
	ProductID      int64              `json:"productId"`
	ProductName    string             `json:"productName"`
	QuantityBefore int                `json:"quantityBefore"`
	QuantityAfter  int                `json:"quantityAfter"`
	MinBefore      int                `json:"minBefore"`
	MinAfter       int                `json:"minAfter"`
	StatusBefore   models.StockStatus `json:"statusBefore"`
	StatusAfter    models.StockStatus `json:"statusAfter"`
	Movement       *Movement          `json:"movement,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

type Movement struct {
	Type     models.MovementType `json:"type"`
	Reason   string              `json:"reason"`
	OrderID  *int64              `json:"orderId,omitempty"`
	UserID   *int64              `json:"userId,omitempty"`
	Metadata map[string]string   `json:"metadata,omitempty"`
}

// Kind names the event for routing on external sinks.
func (e StockChanged) Kind() string {
	if e.Movement == nil {
		return "thresholds"
	}
	return string(e.Movement.Type)
}

// Emitter is what mutation paths depend on.
type Emitter interface {
	Publish(ctx context.Context, batch ...StockChanged)
}

// Handler receives every batch published on the bus.
type Handler func(ctx context.Context, batch []StockChanged) error

type subscriber struct {
	name    string
	handler Handler
}

type Bus struct {
	log *zap.Logger

	mu   sync.RWMutex
	subs []subscriber
	wg   sync.WaitGroup
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{log: log}
}

func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscriber{name: name, handler: h})
}

// Publish stamps the batch and hands it to each subscriber on its own
// goroutine. It never blocks on, or reports, subscriber failures.
func (b *Bus) Publish(ctx context.Context, batch ...StockChanged) {
	if len(batch) == 0 {
		return
	}

	now := time.Now()
	for i := range batch {
		if batch[i].EventID == "" {
			batch[i].EventID = uuid.NewString()
		}
		if batch[i].OccurredAt.IsZero() {
			batch[i].OccurredAt = now
		}
	}

	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, s := range subs {
		b.wg.Add(1)
		go b.deliver(detached, s, batch)
	}
}

func (b *Bus) deliver(ctx context.Context, s subscriber, batch []StockChanged) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("stock event subscriber panicked",
				zap.String("subscriber", s.name),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	if err := s.handler(ctx, batch); err != nil {
		b.log.Error("stock event subscriber failed",
			zap.String("subscriber", s.name),
			zap.Int("events", len(batch)),
			zap.Error(err))
	}
}

// Wait blocks until every in-flight delivery has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}
