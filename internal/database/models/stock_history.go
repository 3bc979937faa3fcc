package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementAdjustment MovementType = "adjustment"

	// Reserved kinds. Not accepted by the ledger yet.
	MovementRestock  MovementType = "restock"
	MovementReturn   MovementType = "return"
	MovementDamage   MovementType = "damage"
	MovementTransfer MovementType = "transfer"
)

func (m MovementType) Supported() bool {
	return m == MovementSale || m == MovementAdjustment
}

// Metadata is a string map persisted as JSON text.
type Metadata map[string]string

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to scan Metadata: %v", value)
	}
	if len(raw) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// StockHistory is one immutable ledger entry.
type StockHistory struct {
	ID             int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID      int64        `gorm:"index;not null" json:"productId"`
	ProductName    string       `gorm:"size:255" json:"productName"`
	MovementType   MovementType `gorm:"type:varchar(32);index;not null" json:"movementType"`
	QuantityBefore int          `gorm:"not null" json:"quantityBefore"`
	QuantityAfter  int          `gorm:"not null" json:"quantityAfter"`
	QuantityChange int          `gorm:"not null" json:"quantityChange"`
	Reason         string       `gorm:"type:text" json:"reason"`
	OrderID        *int64       `gorm:"index" json:"orderId,omitempty"`
	UserID         *int64       `gorm:"index" json:"userId,omitempty"`
	Metadata       Metadata     `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time    `gorm:"index;autoCreateTime" json:"createdAt"`
}
