package services

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"tab-service/internal/models"
)

// StkCallback is the provider's asynchronous result envelope.
type StkCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string            `json:"MerchantRequestID"`
			CheckoutRequestID string            `json:"CheckoutRequestID"`
			ResultCode        *int              `json:"ResultCode"`
			ResultDesc        string            `json:"ResultDesc"`
			CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// Get returns the named metadata item as a string, or empty when absent.
func (m *CallbackMetadata) Get(name string) string {
	if m == nil {
		return ""
	}
	for _, item := range m.Item {
		if item.Name != name {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v
		case float64:
			b, _ := json.Marshal(item.Value)
			return string(b)
		}
	}
	return ""
}

// ParseCallback validates the envelope. A body without a checkout id or
// result code is malformed and gets a 400; anything else is acknowledged.
func ParseCallback(raw []byte) (*StkCallback, error) {
	var cb StkCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, wrapError(CodeCallbackMalformed, "callback body is not valid JSON", err)
	}
	inner := cb.Body.StkCallback
	if inner.CheckoutRequestID == "" {
		return nil, newError(CodeCallbackMalformed, "callback is missing CheckoutRequestID")
	}
	if inner.ResultCode == nil {
		return nil, newError(CodeCallbackMalformed, "callback is missing ResultCode")
	}
	return &cb, nil
}

// MapResultCode translates the provider result code to a payment status.
// Zero means the customer authorized the charge; every other code is a
// failure. The mapping is total and deliberately not extended per code.
func MapResultCode(code int) string {
	if code == 0 {
		return models.PaymentSuccess
	}
	return models.PaymentFailed
}

// CallbackService reconciles provider callbacks against stored payments.
type CallbackService struct {
	DB    *gorm.DB
	Tasks *asynq.Client
}

func NewCallbackService(db *gorm.DB, tasks *asynq.Client) *CallbackService {
	return &CallbackService{DB: db, Tasks: tasks}
}

// Outcome of processing one delivery, mostly for logging and tests; the
// provider always receives the same acknowledgment.
type CallbackOutcome string

const (
	OutcomeApplied   CallbackOutcome = "applied"
	OutcomeDuplicate CallbackOutcome = "duplicate"
	OutcomeUnmatched CallbackOutcome = "unmatched"
)

// FindDuplicate reports whether a callback for this checkout id has already
// been applied: the matching payment exists and is no longer pending.
func (s *CallbackService) FindDuplicate(checkoutRequestID string) (*models.TabPayment, bool, error) {
	var payment models.TabPayment
	err := s.DB.Where("reference = ? AND method = ?", checkoutRequestID, models.MethodMpesa).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &payment, payment.Terminal(), nil
}

// Process applies a callback exactly once. Duplicate and unmatched
// deliveries are logged and acknowledged without mutating anything.
func (s *CallbackService) Process(cb *StkCallback, raw []byte) CallbackOutcome {
	inner := cb.Body.StkCallback
	checkoutID := inner.CheckoutRequestID

	payment, duplicate, err := s.FindDuplicate(checkoutID)
	if err != nil {
		log.Printf("callback lookup failed for %s: %v", checkoutID, err)
		return OutcomeUnmatched
	}
	if payment == nil {
		log.Printf("callback for unknown checkout id %s, acknowledging without state change", checkoutID)
		s.logCallback("", "Unmatched callback", raw, 0, checkoutID)
		return OutcomeUnmatched
	}
	if duplicate {
		log.Printf("duplicate callback for checkout id %s (payment %s already %s)", checkoutID, payment.ID, payment.Status)
		s.logCallback(payment.TabID, "Duplicate delivery", raw, 1, checkoutID)
		return OutcomeDuplicate
	}

	status := MapResultCode(*inner.ResultCode)
	updates := map[string]interface{}{
		"status":   status,
		"metadata": string(raw),
	}
	if status == models.PaymentFailed {
		updates["failure_reason"] = inner.ResultDesc
	}

	// Guarded by the pending status: exactly one concurrent delivery wins.
	result := s.DB.Model(&models.TabPayment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
		Updates(updates)
	if result.Error != nil {
		log.Printf("callback update failed for payment %s: %v", payment.ID, result.Error)
		return OutcomeUnmatched
	}
	if result.RowsAffected == 0 {
		log.Printf("lost the transition race for payment %s, treating as duplicate", payment.ID)
		s.logCallback(payment.TabID, "Duplicate delivery", raw, 1, checkoutID)
		return OutcomeDuplicate
	}

	s.logCallback(payment.TabID, "Completed", raw, 1, checkoutID)
	s.enqueueSideEffects(payment, status)
	return OutcomeApplied
}

// enqueueSideEffects hands balance recompute, auto-closure and notification
// to the worker. Failures are logged only; the callback response must not
// depend on them.
func (s *CallbackService) enqueueSideEffects(payment *models.TabPayment, status string) {
	if s.Tasks == nil {
		return
	}
	payload, err := json.Marshal(PaymentSettledPayload{
		PaymentID: payment.ID,
		TabID:     payment.TabID,
		Status:    status,
	})
	if err != nil {
		log.Printf("failed to marshal settlement task for payment %s: %v", payment.ID, err)
		return
	}
	task := asynq.NewTask(TypePaymentSettled, payload)
	if _, err := s.Tasks.Enqueue(task, asynq.TaskID("payment-settled:"+payment.ID)); err != nil {
		log.Printf("failed to enqueue settlement task for payment %s: %v", payment.ID, err)
	}
}

func (s *CallbackService) logCallback(tabID, request string, raw []byte, status int, trxID string) {
	entry := models.CallbackLog{
		TabID:         tabID,
		Request:       request,
		Response:      string(raw),
		Status:        status,
		RequestType:   "Webhook",
		TransactionID: trxID,
		PaymentMethod: "Mpesa",
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		log.Printf("failed to record callback log: %v", err)
	}
}

// Task types and payloads shared with the worker.
const (
	TypePaymentSettled = "payment-settled"
)

type PaymentSettledPayload struct {
	PaymentID string `json:"paymentId"`
	TabID     string `json:"tabId"`
	Status    string `json:"status"`
}
