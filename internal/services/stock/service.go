// Package stock owns every write to a product's stock count and derived status.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-system/internal/auth"
	"storefront-system/internal/database/models"
	"storefront-system/internal/events"
	"storefront-system/internal/services/settings"
)

var ErrProductNotFound = errors.New("product not found")

type Operation string

const (
	OperationSet      Operation = "set"
	OperationAdd      Operation = "add"
	OperationSubtract Operation = "subtract"
)

func (o Operation) Valid() bool {
	return o == OperationSet || o == OperationAdd || o == OperationSubtract
}

// apply returns the new count. Subtract never goes below zero.
func (o Operation) apply(current, quantity int) int {
	switch o {
	case OperationAdd:
		return current + quantity
	case OperationSubtract:
		return max(current-quantity, 0)
	default:
		return quantity
	}
}

type SettingsReader interface {
	Get(ctx context.Context) (settings.NotificationSettings, error)
}

type Service struct {
	db       *gorm.DB
	settings SettingsReader
	events   events.Emitter
	log      *zap.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, settings SettingsReader, emitter events.Emitter, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		settings: settings,
		events:   emitter,
		log:      log,
		now:      time.Now,
	}
}

type UpdateStockResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Product *models.Product `json:"product,omitempty"`
}

func (s *Service) findProduct(ctx context.Context, db *gorm.DB, id int64) (*models.Product, error) {
	var p models.Product
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProductStock applies set, add or subtract to one product and persists
// the new count and status in a single update.
func (s *Service) UpdateProductStock(ctx context.Context, productID int64, quantity int, op Operation) (*UpdateStockResponse, error) {
	if !op.Valid() {
		return &UpdateStockResponse{Success: false, Message: "Invalid operation. Use set, add or subtract"}, nil
	}
	if quantity < 0 {
		return &UpdateStockResponse{Success: false, Message: "Quantity cannot be negative"}, nil
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return &UpdateStockResponse{Success: false, Message: "database error"}, err
	}

	product, err := s.findProduct(ctx, s.db, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return &UpdateStockResponse{Success: false, Message: "Product not found"}, nil
		}
		return &UpdateStockResponse{Success: false, Message: "database error"}, err
	}

	before := product.CountInStock
	statusBefore := product.StockStatus
	after := op.apply(before, quantity)
	minLevel := EffectiveMinStockLevel(product.MinStockLevel, cfg.GlobalLowStockThreshold)
	status := CalculateStatus(after, minLevel)
	now := s.now()

	updates := status.columns()
	updates["count_in_stock"] = after
	updates["last_stock_update"] = now

	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
		return &UpdateStockResponse{Success: false, Message: "Failed to update stock"}, err
	}

	product.CountInStock = after
	product.LastStockUpdate = &now
	status.apply(product)

	s.events.Publish(ctx, events.StockChanged{
		ProductID:      product.ID,
		ProductName:    product.Name,
		QuantityBefore: before,
		QuantityAfter:  after,
		MinBefore:      minLevel,
		MinAfter:       minLevel,
		StatusBefore:   statusBefore,
		StatusAfter:    status.StockStatus,
		Movement: &events.Movement{
			Type:   models.MovementAdjustment,
			Reason: fmt.Sprintf("Manual stock %s of %d", op, quantity),
			UserID: auth.UserIDFrom(ctx),
			Metadata: map[string]string{
				"operation":     string(op),
				"quantity":      strconv.Itoa(quantity),
				"previousStock": strconv.Itoa(before),
				"newStock":      strconv.Itoa(after),
			},
		},
	})

	s.log.Info("stock updated",
		zap.Int64("productId", product.ID),
		zap.String("operation", string(op)),
		zap.Int("before", before),
		zap.Int("after", after),
		zap.String("status", string(status.StockStatus)))

	return &UpdateStockResponse{
		Success: true,
		Message: "Stock updated successfully",
		Product: product,
	}, nil
}

// UpdateStockThresholds sets per-product thresholds and recomputes status.
// A min of zero hands the product back to the global low threshold.
func (s *Service) UpdateStockThresholds(ctx context.Context, productID int64, minStockLevel, maxStockLevel int) (*UpdateStockResponse, error) {
	if minStockLevel < 0 || maxStockLevel < 0 {
		return &UpdateStockResponse{Success: false, Message: "Stock levels cannot be negative"}, nil
	}
	if maxStockLevel <= minStockLevel {
		return &UpdateStockResponse{Success: false, Message: "Maximum stock level must be greater than minimum stock level"}, nil
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return &UpdateStockResponse{Success: false, Message: "database error"}, err
	}

	product, err := s.findProduct(ctx, s.db, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return &UpdateStockResponse{Success: false, Message: "Product not found"}, nil
		}
		return &UpdateStockResponse{Success: false, Message: "database error"}, err
	}

	minBefore := EffectiveMinStockLevel(product.MinStockLevel, cfg.GlobalLowStockThreshold)
	minAfter := EffectiveMinStockLevel(minStockLevel, cfg.GlobalLowStockThreshold)
	statusBefore := product.StockStatus
	status := CalculateStatus(product.CountInStock, minAfter)
	now := s.now()

	updates := status.columns()
	updates["min_stock_level"] = minStockLevel
	updates["max_stock_level"] = maxStockLevel
	updates["has_custom_thresholds"] = minStockLevel > 0
	updates["last_stock_update"] = now

	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
		return &UpdateStockResponse{Success: false, Message: "Failed to update stock thresholds"}, err
	}

	product.MinStockLevel = minStockLevel
	product.MaxStockLevel = maxStockLevel
	product.HasCustomThresholds = minStockLevel > 0
	product.LastStockUpdate = &now
	status.apply(product)

	s.events.Publish(ctx, events.StockChanged{
		ProductID:      product.ID,
		ProductName:    product.Name,
		QuantityBefore: product.CountInStock,
		QuantityAfter:  product.CountInStock,
		MinBefore:      minBefore,
		MinAfter:       minAfter,
		StatusBefore:   statusBefore,
		StatusAfter:    status.StockStatus,
	})

	return &UpdateStockResponse{
		Success: true,
		Message: "Stock thresholds updated successfully",
		Product: product,
	}, nil
}

type ApplyOptions struct {
	ApplyToExistingProducts bool `json:"applyToExistingProducts"`
}

type ApplyThresholdsResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	UpdatedCount int    `json:"updatedCount"`
}

// ApplyGlobalThresholdsToAllProducts copies the global thresholds onto
// published products. Products with custom thresholds are skipped unless
// opts.ApplyToExistingProducts is set.
func (s *Service) ApplyGlobalThresholdsToAllProducts(ctx context.Context, opts ApplyOptions) (*ApplyThresholdsResponse, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return &ApplyThresholdsResponse{Success: false, Message: "database error"}, err
	}
	if err := cfg.Validate(); err != nil {
		return &ApplyThresholdsResponse{Success: false, Message: err.Error()}, nil
	}

	var changes []events.StockChanged
	now := s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("is_published = ?", true)
		if !opts.ApplyToExistingProducts {
			query = query.Where("has_custom_thresholds = ?", false)
		}

		var products []models.Product
		if err := query.Find(&products).Error; err != nil {
			return err
		}

		for _, p := range products {
			minBefore := EffectiveMinStockLevel(p.MinStockLevel, cfg.GlobalLowStockThreshold)
			status := CalculateStatus(p.CountInStock, cfg.GlobalLowStockThreshold)

			updates := status.columns()
			updates["min_stock_level"] = cfg.GlobalLowStockThreshold
			updates["max_stock_level"] = cfg.GlobalMaxStockLevel
			updates["has_custom_thresholds"] = false
			updates["last_stock_update"] = now

			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("product %d: %w", p.ID, err)
			}

			changes = append(changes, events.StockChanged{
				ProductID:      p.ID,
				ProductName:    p.Name,
				QuantityBefore: p.CountInStock,
				QuantityAfter:  p.CountInStock,
				MinBefore:      minBefore,
				MinAfter:       cfg.GlobalLowStockThreshold,
				StatusBefore:   p.StockStatus,
				StatusAfter:    status.StockStatus,
			})
		}
		return nil
	})
	if err != nil {
		return &ApplyThresholdsResponse{Success: false, Message: "Failed to apply global thresholds"}, err
	}

	s.events.Publish(ctx, changes...)

	return &ApplyThresholdsResponse{
		Success:      true,
		Message:      fmt.Sprintf("Global thresholds applied to %d products", len(changes)),
		UpdatedCount: len(changes),
	}, nil
}

type RecalculateResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	CorrectedCount int    `json:"correctedCount"`
}

// RecalculateStockStatuses rewrites the derived columns of every product whose
// stored status disagrees with its count. Discontinued products are left alone.
func (s *Service) RecalculateStockStatuses(ctx context.Context) (*RecalculateResponse, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return &RecalculateResponse{Success: false, Message: "database error"}, err
	}

	corrected, err := s.recalculate(ctx, cfg.GlobalLowStockThreshold, cfg.GlobalLowStockThreshold, false)
	if err != nil {
		return &RecalculateResponse{Success: false, Message: "Failed to update stock status", CorrectedCount: corrected}, err
	}

	if corrected > 0 {
		s.log.Warn("corrected drifted stock statuses", zap.Int("count", corrected))
	}

	return &RecalculateResponse{
		Success:        true,
		Message:        fmt.Sprintf("Recalculated stock status for %d products", corrected),
		CorrectedCount: corrected,
	}, nil
}

// GlobalLowThresholdChanged re-derives every product that has no threshold
// of its own once the global low threshold moves. It matches
// settings.ChangeHook.
func (s *Service) GlobalLowThresholdChanged(ctx context.Context, before, after settings.NotificationSettings) error {
	if before.GlobalLowStockThreshold == after.GlobalLowStockThreshold {
		return nil
	}

	corrected, err := s.recalculate(ctx, before.GlobalLowStockThreshold, after.GlobalLowStockThreshold, true)
	if err != nil {
		return fmt.Errorf("re-derive stock statuses: %w", err)
	}

	s.log.Info("global low threshold changed",
		zap.Int("from", before.GlobalLowStockThreshold),
		zap.Int("to", after.GlobalLowStockThreshold),
		zap.Int("productsUpdated", corrected))
	return nil
}

// recalculate fixes drifted statuses and publishes a threshold-only event per
// corrected product, including those written before a failure.
func (s *Service) recalculate(ctx context.Context, lowBefore, lowAfter int, followersOnly bool) (int, error) {
	query := s.db.WithContext(ctx).Where("stock_status <> ?", models.StockStatusDiscontinued)
	if followersOnly {
		query = query.Where("min_stock_level <= ?", 0)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return 0, err
	}

	var changes []events.StockChanged
	defer func() { s.events.Publish(ctx, changes...) }()

	for _, p := range products {
		minAfter := EffectiveMinStockLevel(p.MinStockLevel, lowAfter)
		want := CalculateStatus(p.CountInStock, minAfter)
		have := Status{StockStatus: p.StockStatus, IsLowStock: p.IsLowStock, IsOutOfStock: p.IsOutOfStock}
		if want == have {
			continue
		}
		if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Updates(want.columns()).Error; err != nil {
			return len(changes), fmt.Errorf("product %d: %w", p.ID, err)
		}

		changes = append(changes, events.StockChanged{
			ProductID:      p.ID,
			ProductName:    p.Name,
			QuantityBefore: p.CountInStock,
			QuantityAfter:  p.CountInStock,
			MinBefore:      EffectiveMinStockLevel(p.MinStockLevel, lowBefore),
			MinAfter:       minAfter,
			StatusBefore:   p.StockStatus,
			StatusAfter:    want.StockStatus,
		})
	}

	return len(changes), nil
}
