package models

import (
	"time"
)

type Bar struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"column:name;size:255;not null" json:"name"`
	MpesaEnabled bool      `gorm:"column:mpesa_enabled;default:false" json:"mpesa_enabled"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Bar) TableName() string {
	return "bars"
}
