package stock

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"storefront-system/internal/database/models"
	"storefront-system/internal/events"
)

type lineTotal struct {
	productID int64
	quantity  int
}

// mergeLines folds repeated products into one decrement, keeping first-seen order.
func mergeLines(items []models.OrderItem) []lineTotal {
	idx := make(map[int64]int, len(items))
	var out []lineTotal
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if i, ok := idx[it.ProductID]; ok {
			out[i].quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, lineTotal{productID: it.ProductID, quantity: it.Quantity})
	}
	return out
}

// DecrementForOrder takes every line of order out of stock using tx. The
// caller owns tx: any error returned here must roll it back, and the returned
// batch must only be published after commit.
func (s *Service) DecrementForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, globalLow int, userID *int64) ([]events.StockChanged, error) {
	lines := mergeLines(order.Items)
	batch := make([]events.StockChanged, 0, len(lines))
	now := s.now()
	orderID := order.ID

	for _, line := range lines {
		product, err := s.findProduct(ctx, tx, line.productID)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", order.ID, err)
		}

		// Clamp in SQL so a concurrent writer can't push the count negative.
		res := tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("count_in_stock", gorm.Expr(
				"CASE WHEN count_in_stock > ? THEN count_in_stock - ? ELSE 0 END",
				line.quantity, line.quantity))
		if res.Error != nil {
			return nil, fmt.Errorf("decrement product %d: %w", product.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("order %d: %w: %d", order.ID, ErrProductNotFound, product.ID)
		}

		var reloaded models.Product
		if err := tx.WithContext(ctx).Select("id", "count_in_stock").First(&reloaded, product.ID).Error; err != nil {
			return nil, fmt.Errorf("reload product %d: %w", product.ID, err)
		}
		after := reloaded.CountInStock

		minLevel := EffectiveMinStockLevel(product.MinStockLevel, globalLow)
		status := CalculateStatus(after, minLevel)
		updates := status.columns()
		updates["last_stock_update"] = now
		if err := tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", product.ID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update status of product %d: %w", product.ID, err)
		}

		batch = append(batch, events.StockChanged{
			ProductID:      product.ID,
			ProductName:    product.Name,
			QuantityBefore: product.CountInStock,
			QuantityAfter:  after,
			MinBefore:      minLevel,
			MinAfter:       minLevel,
			StatusBefore:   product.StockStatus,
			StatusAfter:    status.StockStatus,
			Movement: &events.Movement{
				Type:    models.MovementSale,
				Reason:  fmt.Sprintf("Order #%d paid", order.ID),
				OrderID: &orderID,
				UserID:  userID,
				Metadata: map[string]string{
					"orderId":  strconv.FormatInt(order.ID, 10),
					"quantity": strconv.Itoa(line.quantity),
				},
			},
		})
	}

	return batch, nil
}
