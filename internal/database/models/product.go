package models

import "time"

type StockStatus string

const (
	StockStatusInStock      StockStatus = "in_stock"
	StockStatusLowStock     StockStatus = "low_stock"
	StockStatusOutOfStock   StockStatus = "out_of_stock"
	StockStatusDiscontinued StockStatus = "discontinued"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Slug        string `gorm:"size:255;uniqueIndex" json:"slug"`
	Price       string `gorm:"type:varchar(32);not null;default:'0'" json:"price"`
	IsPublished bool   `gorm:"index" json:"isPublished"`

	CountInStock        int         `gorm:"not null;default:0" json:"countInStock"`
	MinStockLevel       int         `gorm:"not null;default:0" json:"minStockLevel"`
	MaxStockLevel       int         `gorm:"not null;default:0" json:"maxStockLevel"`
	HasCustomThresholds bool        `gorm:"not null;default:false" json:"hasCustomThresholds"`
	StockStatus         StockStatus `gorm:"type:varchar(32);index;not null;default:'out_of_stock'" json:"stockStatus"`
	IsLowStock          bool        `gorm:"index" json:"isLowStock"`
	IsOutOfStock        bool        `gorm:"index" json:"isOutOfStock"`
	LastStockUpdate     *time.Time  `json:"lastStockUpdate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
