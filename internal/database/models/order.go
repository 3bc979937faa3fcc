package models

import "time"

type Order struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"index;not null" json:"userId"`

	ItemsPrice    string `gorm:"type:varchar(32);not null" json:"itemsPrice"`
	ShippingPrice string `gorm:"type:varchar(32);not null" json:"shippingPrice"`
	TaxPrice      string `gorm:"type:varchar(32);not null" json:"taxPrice"`
	TotalPrice    string `gorm:"type:varchar(32);not null" json:"totalPrice"`

	IsPaid      bool       `gorm:"not null;default:false" json:"isPaid"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	IsDelivered bool       `gorm:"not null;default:false" json:"isDelivered"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	IsCancelled bool       `gorm:"not null;default:false" json:"isCancelled"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type OrderItem struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64  `gorm:"index;not null" json:"orderId"`
	ProductID int64  `gorm:"index;not null" json:"productId"`
	Name      string `gorm:"size:255;not null" json:"name"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	Price     string `gorm:"type:varchar(32);not null" json:"price"`
}
