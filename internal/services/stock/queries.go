package stock

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront-system/internal/database/models"
)

type ProductsResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Products []models.Product `json:"products"`
}

func (s *Service) GetLowStockProducts(ctx context.Context) (*ProductsResponse, error) {
	return s.listByStatus(ctx, models.StockStatusLowStock, "count_in_stock ASC")
}

func (s *Service) GetOutOfStockProducts(ctx context.Context) (*ProductsResponse, error) {
	return s.listByStatus(ctx, models.StockStatusOutOfStock, "updated_at DESC")
}

func (s *Service) listByStatus(ctx context.Context, status models.StockStatus, order string) (*ProductsResponse, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("stock_status = ? AND is_published = ?", status, true).
		Order(order).
		Find(&products).Error; err != nil {
		return &ProductsResponse{Success: false, Message: "database error"}, err
	}

	return &ProductsResponse{
		Success:  true,
		Message:  "Products retrieved successfully",
		Products: products,
	}, nil
}

type Statistics struct {
	TotalProducts  int64  `json:"totalProducts"`
	InStock        int64  `json:"inStock"`
	LowStock       int64  `json:"lowStock"`
	OutOfStock     int64  `json:"outOfStock"`
	Discontinued   int64  `json:"discontinued"`
	TotalUnits     int64  `json:"totalUnits"`
	InventoryValue string `json:"inventoryValue"`
}

type StatisticsResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Statistics *Statistics `json:"statistics,omitempty"`
}

type statusCount struct {
	StockStatus models.StockStatus
	Products    int64
	Units       int64
}

// GetStockStatistics summarises published products by status. Inventory value
// is summed in Go because prices are stored as decimal strings.
func (s *Service) GetStockStatistics(ctx context.Context) (*StatisticsResponse, error) {
	var rows []statusCount
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Select("stock_status, COUNT(*) AS products, COALESCE(SUM(count_in_stock), 0) AS units").
		Where("is_published = ?", true).
		Group("stock_status").
		Scan(&rows).Error; err != nil {
		return &StatisticsResponse{Success: false, Message: "database error"}, err
	}

	stats := &Statistics{}
	for _, r := range rows {
		stats.TotalProducts += r.Products
		stats.TotalUnits += r.Units
		switch r.StockStatus {
		case models.StockStatusInStock:
			stats.InStock = r.Products
		case models.StockStatusLowStock:
			stats.LowStock = r.Products
		case models.StockStatusOutOfStock:
			stats.OutOfStock = r.Products
		case models.StockStatusDiscontinued:
			stats.Discontinued = r.Products
		}
	}

	var priced []models.Product
	if err := s.db.WithContext(ctx).
		Select("id", "price", "count_in_stock").
		Where("is_published = ? AND count_in_stock > 0", true).
		Find(&priced).Error; err != nil {
		return &StatisticsResponse{Success: false, Message: "database error"}, err
	}

	value := decimal.Zero
	for _, p := range priced {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			s.log.Warn("skipping unparseable price", zap.Int64("productId", p.ID), zap.String("price", p.Price))
			continue
		}
		value = value.Add(price.Mul(decimal.NewFromInt(int64(p.CountInStock))))
	}
	stats.InventoryValue = value.StringFixed(2)

	return &StatisticsResponse{
		Success:    true,
		Message:    "Stock statistics retrieved successfully",
		Statistics: stats,
	}, nil
}
