package stock

import "storefront-system/internal/database/models"

// Status is the derived view of a stock count. It is the only source of the
// product's stock_status, is_low_stock and is_out_of_stock columns.
type Status struct {
	StockStatus  models.StockStatus `json:"stockStatus"`
	IsLowStock   bool               `json:"isLowStock"`
	IsOutOfStock bool               `json:"isOutOfStock"`
}

func CalculateStatus(countInStock, minStockLevel int) Status {
	switch {
	case countInStock <= 0:
		return Status{StockStatus: models.StockStatusOutOfStock, IsOutOfStock: true}
	case countInStock <= minStockLevel:
		return Status{StockStatus: models.StockStatusLowStock, IsLowStock: true}
	default:
		return Status{StockStatus: models.StockStatusInStock}
	}
}

// EffectiveMinStockLevel falls back to the global low threshold when the
// product has none of its own.
func EffectiveMinStockLevel(productMin, globalLow int) int {
	if productMin > 0 {
		return productMin
	}
	return globalLow
}

func (s Status) apply(p *models.Product) {
	p.StockStatus = s.StockStatus
	p.IsLowStock = s.IsLowStock
	p.IsOutOfStock = s.IsOutOfStock
}

func (s Status) columns() map[string]interface{} {
	return map[string]interface{}{
		"stock_status":    s.StockStatus,
		"is_low_stock":    s.IsLowStock,
		"is_out_of_stock": s.IsOutOfStock,
	}
}
