package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-system/internal/database/models"
)

func TestCalculateStatus(t *testing.T) {
	tests := []struct {
		name  string
		count int
		min   int
		want  Status
	}{
		{"zero is out of stock", 0, 5, Status{StockStatus: models.StockStatusOutOfStock, IsOutOfStock: true}},
		{"negative is out of stock", -3, 5, Status{StockStatus: models.StockStatusOutOfStock, IsOutOfStock: true}},
		{"one unit under min", 1, 5, Status{StockStatus: models.StockStatusLowStock, IsLowStock: true}},
		{"equal to min is low", 5, 5, Status{StockStatus: models.StockStatusLowStock, IsLowStock: true}},
		{"above min", 6, 5, Status{StockStatus: models.StockStatusInStock}},
		{"zero min never low", 1, 0, Status{StockStatus: models.StockStatusInStock}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateStatus(tt.count, tt.min))
		})
	}
}

func TestCalculateStatus_FlagsAgreeWithStatus(t *testing.T) {
	for count := -2; count <= 20; count++ {
		for min := 0; min <= 10; min++ {
			s := CalculateStatus(count, min)
			assert.Equal(t, s.StockStatus == models.StockStatusOutOfStock, s.IsOutOfStock)
			assert.Equal(t, s.StockStatus == models.StockStatusLowStock, s.IsLowStock)
			assert.False(t, s.IsLowStock && s.IsOutOfStock)
		}
	}
}

func TestEffectiveMinStockLevel(t *testing.T) {
	assert.Equal(t, 4, EffectiveMinStockLevel(4, 10))
	assert.Equal(t, 10, EffectiveMinStockLevel(0, 10))
	assert.Equal(t, 10, EffectiveMinStockLevel(-1, 10))
}
