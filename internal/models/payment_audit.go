package models

import (
	"time"
)

// PaymentAudit records every staff-initiated status override so reconciled
// payments keep a trail of who changed what and why.
type PaymentAudit struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID  string    `gorm:"column:payment_id;size:36;not null;index" json:"payment_id"`
	Action     string    `gorm:"column:action;size:50;not null" json:"action"`
	FromStatus string    `gorm:"column:from_status;size:20" json:"from_status"`
	ToStatus   string    `gorm:"column:to_status;size:20" json:"to_status"`
	Actor      string    `gorm:"column:actor;size:100" json:"actor"`
	Note       string    `gorm:"column:note;size:255" json:"note"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PaymentAudit) TableName() string {
	return "payment_audits"
}
