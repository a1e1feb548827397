package models

import (
	"time"
)

// Payment lifecycle states. A payment leaves "pending" exactly once.
const (
	PaymentPending   = "pending"
	PaymentSuccess   = "success"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
	PaymentTimeout   = "timeout"
)

const MethodMpesa = "mpesa"

type TabPayment struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	TabID         string    `gorm:"column:tab_id;size:36;not null;index" json:"tab_id"`
	Amount        float64   `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Method        string    `gorm:"column:method;size:20;not null" json:"method"`
	Status        string    `gorm:"column:status;size:20;default:pending;index" json:"status"`
	PhoneNumber   string    `gorm:"column:phone_number;size:20" json:"phone_number"`
	TrxNo         string    `gorm:"column:trx_no;size:20" json:"trx_no"`
	Reference     string    `gorm:"column:reference;size:100;index" json:"reference"`
	MerchantRef   string    `gorm:"column:merchant_ref;size:100" json:"merchant_ref"`
	FailureReason string    `gorm:"column:failure_reason;size:255" json:"failure_reason"`
	Metadata      string    `gorm:"column:metadata;type:text" json:"metadata"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TabPayment) TableName() string {
	return "tab_payments"
}

// Terminal reports whether the payment has reached a final state.
func (p *TabPayment) Terminal() bool {
	return p.Status != PaymentPending
}
