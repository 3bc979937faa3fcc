// Package history is the append-only stock movement ledger.
package history

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-system/internal/database/models"
	"storefront-system/internal/events"
)

const (
	defaultProductLimit = 50
	maxLimit            = 100
	defaultPageSize     = 20
	recentEntries       = 10
)

var (
	ErrUnsupportedMovement = errors.New("unsupported movement type")
	ErrMissingProduct      = errors.New("product id is required")
)

// Movement is the input for one ledger entry. The change is always derived.
type Movement struct {
	ProductID      int64               `json:"productId"`
	ProductName    string              `json:"productName"`
	MovementType   models.MovementType `json:"movementType"`
	QuantityBefore int                 `json:"quantityBefore"`
	QuantityAfter  int                 `json:"quantityAfter"`
	Reason         string              `json:"reason"`
	OrderID        *int64              `json:"orderId,omitempty"`
	UserID         *int64              `json:"userId,omitempty"`
	Metadata       map[string]string   `json:"metadata,omitempty"`
}

func (m Movement) validate() error {
	if m.ProductID <= 0 {
		return ErrMissingProduct
	}
	if !m.MovementType.Supported() {
		return fmt.Errorf("%w: %q", ErrUnsupportedMovement, m.MovementType)
	}
	return nil
}

type Result struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Entry   *models.StockHistory `json:"entry,omitempty"`
}

type Ledger struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewLedger(db *gorm.DB, log *zap.Logger) *Ledger {
	return &Ledger{db: db, log: log}
}

// RecordMovement persists one entry. Failures are logged and reported in the
// result only; callers are free to ignore it.
func (l *Ledger) RecordMovement(ctx context.Context, m Movement) Result {
	if err := m.validate(); err != nil {
		l.log.Warn("rejected stock movement", zap.Int64("productId", m.ProductID), zap.Error(err))
		return Result{Success: false, Message: err.Error()}
	}

	entry := models.StockHistory{
		ProductID:      m.ProductID,
		ProductName:    m.ProductName,
		MovementType:   m.MovementType,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		QuantityChange: m.QuantityAfter - m.QuantityBefore,
		Reason:         m.Reason,
		OrderID:        m.OrderID,
		UserID:         m.UserID,
		Metadata:       models.Metadata(m.Metadata),
	}

	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		l.log.Error("failed to record stock movement",
			zap.Int64("productId", m.ProductID),
			zap.String("movementType", string(m.MovementType)),
			zap.Error(err))
		return Result{Success: false, Message: "Failed to record stock movement"}
	}

	return Result{Success: true, Message: "Stock movement recorded", Entry: &entry}
}

// RecordStockMovement is the externally callable form. Missing product names
// are filled from the catalog.
func (l *Ledger) RecordStockMovement(ctx context.Context, m Movement) (*Result, error) {
	if err := m.validate(); err != nil {
		return &Result{Success: false, Message: err.Error()}, nil
	}

	if m.ProductName == "" {
		var p models.Product
		if err := l.db.WithContext(ctx).Select("id", "name").First(&p, m.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &Result{Success: false, Message: "Product not found"}, nil
			}
			return &Result{Success: false, Message: "database error"}, err
		}
		m.ProductName = p.Name
	}

	res := l.RecordMovement(ctx, m)
	return &res, nil
}

// Handler writes one entry per event that carries a movement. Threshold-only
// events are not movements and are skipped.
func (l *Ledger) Handler() events.Handler {
	return func(ctx context.Context, batch []events.StockChanged) error {
		var failed int
		for _, ev := range batch {
			if ev.Movement == nil {
				continue
			}
			res := l.RecordMovement(ctx, Movement{
				ProductID:      ev.ProductID,
				ProductName:    ev.ProductName,
				MovementType:   ev.Movement.Type,
				QuantityBefore: ev.QuantityBefore,
				QuantityAfter:  ev.QuantityAfter,
				Reason:         ev.Movement.Reason,
				OrderID:        ev.Movement.OrderID,
				UserID:         ev.Movement.UserID,
				Metadata:       ev.Movement.Metadata,
			})
			if !res.Success {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d ledger writes failed", failed, len(batch))
		}
		return nil
	}
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

func totalPages(total int64, limit int) int {
	if total == 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
