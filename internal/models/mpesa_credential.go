package models

import (
	"time"
)

// Provider environments.
const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

// MpesaCredential stores a bar's Daraja credentials. The three secret fields
// hold AES-GCM ciphertext and are never returned to clients or written to
// logs in plaintext.
type MpesaCredential struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BarID             string    `gorm:"column:bar_id;size:36;not null;uniqueIndex:idx_cred_bar_env" json:"bar_id"`
	Environment       string    `gorm:"column:environment;size:20;not null;uniqueIndex:idx_cred_bar_env" json:"environment"`
	BusinessShortCode string    `gorm:"column:business_short_code;size:20;not null" json:"business_short_code"`
	ConsumerKeyEnc    string    `gorm:"column:consumer_key_enc;type:text;not null" json:"-"`
	ConsumerSecretEnc string    `gorm:"column:consumer_secret_enc;type:text;not null" json:"-"`
	PasskeyEnc        string    `gorm:"column:passkey_enc;type:text;not null" json:"-"`
	CallbackURL       string    `gorm:"column:callback_url;size:255" json:"callback_url"`
	IsActive          bool      `gorm:"column:is_active;default:false" json:"is_active"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (MpesaCredential) TableName() string {
	return "mpesa_credentials"
}
