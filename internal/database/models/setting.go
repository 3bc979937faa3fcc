package models

import "time"

// Setting is a keyed JSON document. Value is decoded by the owning service.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Version   int       `gorm:"not null;default:0" json:"version"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
