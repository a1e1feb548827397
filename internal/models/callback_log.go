package models

import (
	"time"
)

type CallbackLog struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TabID         string    `gorm:"column:tab_id;size:36" json:"tab_id"`
	Request       string    `gorm:"column:request;type:text" json:"request"`
	Response      string    `gorm:"column:response;type:text" json:"response"`
	Status        int       `gorm:"column:status;default:0" json:"status"`
	RequestType   string    `gorm:"column:request_type;size:255" json:"request_type"`
	TransactionID string    `gorm:"column:transaction_id;size:255" json:"transaction_id"`
	PaymentMethod string    `gorm:"column:payment_method;size:255" json:"payment_method"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CallbackLog) TableName() string {
	return "callback_logs"
}
