package consumers

import (
	"encoding/json"
	"log"
	"os"

	"gorm.io/gorm"

	"tab-service/internal/models"
	"tab-service/internal/services"
	"tab-service/pkg/common"
)

// PaymentProcessor runs the settlement side effects that must not block the
// callback response: balance recompute, overdue auto-closure and the
// notification webhook.
type PaymentProcessor struct {
	DB   *gorm.DB
	Tabs *services.TabService
}

func NewPaymentProcessor(db *gorm.DB, tabs *services.TabService) *PaymentProcessor {
	return &PaymentProcessor{DB: db, Tabs: tabs}
}

func (p *PaymentProcessor) ProcessPaymentSettled(payload services.PaymentSettledPayload) {
	if payload.Status == models.PaymentSuccess {
		closed, err := p.Tabs.AutoCloseIfSettled(payload.TabID)
		if err != nil {
			log.Printf("auto-close check failed for tab %s: %v", payload.TabID, err)
		} else if closed {
			log.Printf("tab %s auto-closed after payment %s", payload.TabID, payload.PaymentID)
		}
	}

	p.notify(payload)
}

type paymentNotification struct {
	PaymentID       string `json:"paymentId"`
	TabID           string `json:"tabId"`
	Status          string `json:"status"`
	Receipt         string `json:"receipt,omitempty"`
	Phone           string `json:"phone,omitempty"`
	TransactionDate string `json:"transactionDate,omitempty"`
}

// notify posts the settlement event to the configured webhook. Successful
// payments carry the provider receipt details pulled from the raw callback.
func (p *PaymentProcessor) notify(payload services.PaymentSettledPayload) {
	webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL")
	if webhookURL == "" {
		return
	}

	notification := paymentNotification{
		PaymentID: payload.PaymentID,
		TabID:     payload.TabID,
		Status:    payload.Status,
	}

	if payload.Status == models.PaymentSuccess {
		var payment models.TabPayment
		if err := p.DB.Where("id = ?", payload.PaymentID).First(&payment).Error; err == nil && payment.Metadata != "" {
			var cb services.StkCallback
			if err := json.Unmarshal([]byte(payment.Metadata), &cb); err == nil {
				meta := cb.Body.StkCallback.CallbackMetadata
				notification.Receipt = meta.Get("MpesaReceiptNumber")
				notification.Phone = meta.Get("PhoneNumber")
				notification.TransactionDate = meta.Get("TransactionDate")
			}
		}
	}

	resp, err := common.Post(webhookURL, notification, nil)
	if err != nil {
		log.Printf("failed to deliver payment notification for %s: %v", payload.PaymentID, err)
		return
	}
	if !resp.OK() {
		log.Printf("payment notification for %s rejected with status %d", payload.PaymentID, resp.StatusCode)
	}
}
