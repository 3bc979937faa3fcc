// Package orders runs the order lifecycle: created, paid, delivered or cancelled.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-system/internal/auth"
	"storefront-system/internal/database/models"
	"storefront-system/internal/events"
	"storefront-system/internal/notifier"
	"storefront-system/internal/services/settings"
	"storefront-system/internal/services/stock"
)

type SettingsReader interface {
	Get(ctx context.Context) (settings.NotificationSettings, error)
}

// StockDecrementer takes a paid order's lines out of stock inside tx.
type StockDecrementer interface {
	DecrementForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, globalLow int, userID *int64) ([]events.StockChanged, error)
}

type Options struct {
	// SkipStockDecrement leaves stock untouched on payment. Only set for
	// the designated local database.
	SkipStockDecrement bool
}

type Service struct {
	db       *gorm.DB
	settings SettingsReader
	stock    StockDecrementer
	events   events.Emitter
	notifier notifier.Notifier
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func NewService(db *gorm.DB, settings SettingsReader, stock StockDecrementer, emitter events.Emitter, n notifier.Notifier, log *zap.Logger, opts Options) *Service {
	return &Service{
		db:       db,
		settings: settings,
		stock:    stock,
		events:   emitter,
		notifier: n,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

type OrderResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Order   *models.Order `json:"order,omitempty"`
}

func failed(err error) *OrderResponse {
	return &OrderResponse{Success: false, Message: err.Error()}
}

type ItemInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// CreateOrder prices the lines from the catalog. Client prices are never read.
func (s *Service) CreateOrder(ctx context.Context, userID int64, items []ItemInput) (*OrderResponse, error) {
	if len(items) == 0 {
		return failed(ErrEmptyOrder), nil
	}

	order := models.Order{UserID: userID}
	itemsPrice := decimal.Zero
	requested := map[int64]int{}

	for _, in := range items {
		if in.Quantity < 1 {
			return failed(ErrInvalidQuantity), nil
		}

		var product models.Product
		if err := s.db.WithContext(ctx).First(&product, in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &OrderResponse{Success: false, Message: fmt.Sprintf("%s: %d", ErrProductNotFound, in.ProductID)}, nil
			}
			return &OrderResponse{Success: false, Message: "database error"}, err
		}
		if !product.IsPublished || product.StockStatus == models.StockStatusDiscontinued {
			return &OrderResponse{Success: false, Message: fmt.Sprintf("%s: %s", ErrProductNotForSale, product.Name)}, nil
		}

		requested[product.ID] += in.Quantity
		if requested[product.ID] > product.CountInStock {
			return &OrderResponse{Success: false, Message: fmt.Sprintf("%s: %s", ErrInsufficientStock, product.Name)}, nil
		}

		unit, err := decimal.NewFromString(product.Price)
		if err != nil {
			return &OrderResponse{Success: false, Message: "invalid product price"}, fmt.Errorf("product %d price %q: %w", product.ID, product.Price, err)
		}
		itemsPrice = itemsPrice.Add(unit.Mul(decimal.NewFromInt(int64(in.Quantity))))

		order.Items = append(order.Items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  in.Quantity,
			Price:     unit.StringFixed(2),
		})
	}

	t := priceOrder(itemsPrice)
	order.ItemsPrice = t.Items.StringFixed(2)
	order.ShippingPrice = t.Shipping.StringFixed(2)
	order.TaxPrice = t.Tax.StringFixed(2)
	order.TotalPrice = t.Total.StringFixed(2)

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return &OrderResponse{Success: false, Message: "Failed to create order"}, err
	}

	s.log.Info("order created",
		zap.Int64("orderId", order.ID),
		zap.Int64("userId", userID),
		zap.String("total", order.TotalPrice))

	return &OrderResponse{Success: true, Message: "Order created successfully", Order: &order}, nil
}

func (s *Service) load(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder returns an order to its owner or to an admin.
func (s *Service) GetOrder(ctx context.Context, id int64) (*OrderResponse, error) {
	order, err := s.load(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return failed(err), nil
	}
	if err != nil {
		return &OrderResponse{Success: false, Message: "database error"}, err
	}

	if actor, ok := auth.ActorFrom(ctx); ok && !actor.IsAdmin() && actor.UserID != order.UserID {
		return failed(ErrOrderNotFound), nil
	}

	return &OrderResponse{Success: true, Message: "Order retrieved successfully", Order: order}, nil
}

// UpdateOrderToPaid flips the paid flag and decrements stock in one
// transaction. Stock events and the receipt only go out after commit.
func (s *Service) UpdateOrderToPaid(ctx context.Context, id int64) (*OrderResponse, error) {
	// Read settings before opening the transaction; the cache may hit the db.
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return &OrderResponse{Success: false, Message: "database error"}, err
	}

	order, err := s.load(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return failed(err), nil
	}
	if err != nil {
		return &OrderResponse{Success: false, Message: "database error"}, err
	}
	switch {
	case order.IsCancelled:
		return failed(ErrAlreadyCancelled), nil
	case order.IsPaid:
		return failed(ErrAlreadyPaid), nil
	}

	now := s.now()

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	res := tx.Model(&models.Order{}).
		Where("id = ? AND is_paid = ? AND is_cancelled = ?", order.ID, false, false).
		Updates(map[string]interface{}{"is_paid": true, "paid_at": now})
	if res.Error != nil {
		tx.Rollback()
		return &OrderResponse{Success: false, Message: "Failed to update order"}, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return failed(ErrAlreadyPaid), nil
	}

	var batch []events.StockChanged
	if !s.opts.SkipStockDecrement {
		batch, err = s.stock.DecrementForOrder(ctx, tx, order, cfg.GlobalLowStockThreshold, auth.UserIDFrom(ctx))
		if err != nil {
			tx.Rollback()
			if errors.Is(err, stock.ErrProductNotFound) {
				s.log.Warn("order references a missing product", zap.Int64("orderId", order.ID), zap.Error(err))
				return &OrderResponse{Success: false, Message: "Failed to update stock: " + err.Error()}, nil
			}
			return &OrderResponse{Success: false, Message: "Failed to update stock"}, err
		}
	} else {
		s.log.Warn("stock decrement bypassed for local database", zap.Int64("orderId", order.ID))
	}

	if err := tx.Commit().Error; err != nil {
		return &OrderResponse{Success: false, Message: "Failed to commit transaction"}, err
	}

	order.IsPaid = true
	order.PaidAt = &now

	s.events.Publish(ctx, batch...)
	s.notifyOwner(ctx, "receipt", order)

	s.log.Info("order paid", zap.Int64("orderId", order.ID), zap.Int("stockChanges", len(batch)))
	return &OrderResponse{Success: true, Message: "Order marked as paid", Order: order}, nil
}

func (s *Service) DeliverOrder(ctx context.Context, id int64) (*OrderResponse, error) {
	order, err := s.load(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return failed(err), nil
	}
	if err != nil {
		return &OrderResponse{Success: false, Message: "database error"}, err
	}
	switch {
	case order.IsCancelled:
		return failed(ErrAlreadyCancelled), nil
	case !order.IsPaid:
		return failed(ErrNotPaid), nil
	case order.IsDelivered:
		return failed(ErrAlreadyDelivered), nil
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_paid = ? AND is_delivered = ? AND is_cancelled = ?", order.ID, true, false, false).
		Updates(map[string]interface{}{"is_delivered": true, "delivered_at": now})
	if res.Error != nil {
		return &OrderResponse{Success: false, Message: "Failed to update order"}, res.Error
	}
	if res.RowsAffected == 0 {
		return failed(ErrAlreadyDelivered), nil
	}

	order.IsDelivered = true
	order.DeliveredAt = &now
	s.notifyOwner(ctx, "review", order)

	return &OrderResponse{Success: true, Message: "Order marked as delivered", Order: order}, nil
}

func cancelGuard(o *models.Order) error {
	switch {
	case o.IsDelivered:
		return ErrAlreadyDelivered
	case o.IsPaid:
		return ErrAlreadyPaid
	case o.IsCancelled:
		return ErrAlreadyCancelled
	}
	return nil
}

// CancelOrder notifies the owner before persisting. Stock is untouched since
// an unpaid order never decremented it.
func (s *Service) CancelOrder(ctx context.Context, id int64) (*OrderResponse, error) {
	order, err := s.load(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return failed(err), nil
	}
	if err != nil {
		return &OrderResponse{Success: false, Message: "database error"}, err
	}
	if err := cancelGuard(order); err != nil {
		return failed(err), nil
	}

	s.notifyOwner(ctx, "cancelled", order)

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_paid = ? AND is_delivered = ? AND is_cancelled = ?", order.ID, false, false, false).
		Updates(map[string]interface{}{"is_cancelled": true, "cancelled_at": now})
	if res.Error != nil {
		return &OrderResponse{Success: false, Message: "Failed to update order"}, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a race; report whatever state won.
		if current, err := s.load(ctx, id); err == nil {
			if gerr := cancelGuard(current); gerr != nil {
				return failed(gerr), nil
			}
		}
		return failed(ErrAlreadyCancelled), nil
	}

	order.IsCancelled = true
	order.CancelledAt = &now
	return &OrderResponse{Success: true, Message: "Order cancelled", Order: order}, nil
}

// notifyOwner is best-effort. Failures are logged and swallowed.
func (s *Service) notifyOwner(ctx context.Context, kind string, order *models.Order) {
	if order.User == nil || order.User.Email == "" {
		s.log.Warn("order owner has no email", zap.Int64("orderId", order.ID), zap.String("email", kind))
		return
	}

	subject, body, err := renderEmail(kind, order)
	if err != nil {
		s.log.Error("failed to render order email", zap.Int64("orderId", order.ID), zap.Error(err))
		return
	}
	if err := s.notifier.SendEmail(ctx, order.User.Email, subject, body); err != nil {
		s.log.Error("failed to send order email",
			zap.Int64("orderId", order.ID),
			zap.String("email", kind),
			zap.Error(err))
	}
}
