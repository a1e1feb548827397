package models

import (
	"time"
)

// Tab statuses.
const (
	TabOpen    = "open"
	TabOverdue = "overdue"
	TabClosed  = "closed"
)

// Who closed a tab.
const (
	ClosedBySystem = "system"
	ClosedByStaff  = "staff"
)

type Tab struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	BarID       string    `gorm:"column:bar_id;size:36;index" json:"bar_id"`
	CustomerID  string    `gorm:"column:customer_id;size:36" json:"customer_id"`
	Status      string    `gorm:"column:status;size:20;default:open;index" json:"status"`
	TotalAmount float64   `gorm:"column:total_amount;type:decimal(20,2);default:0.00" json:"total_amount"`
	ClosedBy    string    `gorm:"column:closed_by;size:20" json:"closed_by"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Tab) TableName() string {
	return "tabs"
}
