package services

import (
	"log"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"tab-service/internal/models"
	"tab-service/pkg/common"
)

type PaymentService struct {
	DB          *gorm.DB
	Credentials *CredentialService
	Mpesa       *MpesaClient
	Tabs        *TabService
}

func NewPaymentService(db *gorm.DB, creds *CredentialService, mpesa *MpesaClient, tabs *TabService) *PaymentService {
	return &PaymentService{DB: db, Credentials: creds, Mpesa: mpesa, Tabs: tabs}
}

type InitiatePaymentRequest struct {
	TabID       string  `json:"tabId" binding:"required"`
	PhoneNumber string  `json:"phoneNumber" binding:"required"`
	Amount      float64 `json:"amount" binding:"required"`
}

type InitiatePaymentResponse struct {
	Success           bool   `json:"success"`
	TransactionID     string `json:"transactionId"`
	CheckoutRequestID string `json:"checkoutRequestId"`
	CustomerMessage   string `json:"customerMessage"`
}

// pendingWindow is how long an STK prompt can stay unanswered before the
// sweeper writes it off as timed out. Daraja stops retrying well before this.
const pendingWindow = 3 * time.Minute

// InitiateTabPayment validates the request, resolves the owning bar's
// credentials, records a pending payment and fires the STK push. The
// checkout ids are persisted before the caller gets a response so the later
// callback can be correlated.
func (s *PaymentService) InitiateTabPayment(req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	phone, err := common.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, newError(CodeInvalidPhoneNumber, "phone number must be a valid Kenyan mobile number")
	}

	if req.Amount <= 0 {
		return nil, newError(CodeInvalidAmount, "amount must be greater than zero")
	}
	// M-Pesa only accepts whole units; round to nearest.
	amount := int64(math.Round(req.Amount))
	if amount < 1 {
		return nil, newError(CodeInvalidAmount, "amount must round to at least one whole unit")
	}

	tab, err := s.Tabs.GetTab(req.TabID)
	if err != nil {
		return nil, err
	}
	if tab.BarID == "" {
		return nil, newError(CodeOrphanedTab, "tab has no owning bar")
	}

	// Refuse a second concurrent charge attempt on the same tab.
	var pendingCount int64
	s.DB.Model(&models.TabPayment{}).
		Where("tab_id = ? AND method = ? AND status = ? AND created_at > ?",
			tab.ID, models.MethodMpesa, models.PaymentPending, time.Now().Add(-pendingWindow)).
		Count(&pendingCount)
	if pendingCount > 0 {
		return nil, newError(CodePaymentInProgress, "a payment for this tab is already awaiting confirmation")
	}

	creds, err := s.Credentials.ResolveForBar(tab.BarID, s.environment())
	if err != nil {
		return nil, err
	}
	if creds.CallbackURL == "" {
		creds.CallbackURL = defaultCallbackURL()
	}

	payment := models.TabPayment{
		ID:          uuid.NewString(),
		TabID:       tab.ID,
		Amount:      float64(amount),
		Method:      models.MethodMpesa,
		Status:      models.PaymentPending,
		PhoneNumber: phone,
		TrxNo:       common.GenerateTrxNo(),
	}
	if err := s.DB.Create(&payment).Error; err != nil {
		return nil, err
	}

	accountRef := common.AccountReference(tab.BarID, tab.ID)
	result, err := s.Mpesa.StkPush(creds, phone, amount, accountRef, "Tab payment")
	if err != nil {
		reason := MessageOf(err)
		s.DB.Model(&models.TabPayment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
			Updates(map[string]interface{}{
				"status":         models.PaymentFailed,
				"failure_reason": reason,
			})
		return nil, err
	}

	// Persist the correlation ids before responding; the callback may arrive
	// within seconds.
	err = s.DB.Model(&models.TabPayment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]interface{}{
			"reference":    result.CheckoutRequestID,
			"merchant_ref": result.MerchantRequestID,
		}).Error
	if err != nil {
		return nil, err
	}

	return &InitiatePaymentResponse{
		Success:           true,
		TransactionID:     payment.ID,
		CheckoutRequestID: result.CheckoutRequestID,
		CustomerMessage:   result.CustomerMessage,
	}, nil
}

func (s *PaymentService) environment() string {
	if env := os.Getenv("MPESA_ENVIRONMENT"); env == models.EnvProduction {
		return models.EnvProduction
	}
	return models.EnvSandbox
}

func defaultCallbackURL() string {
	base := os.Getenv("CALLBACK_BASE_URL")
	if base == "" {
		return ""
	}
	return base + "/payments/mpesa/callback"
}

type ReconcileRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
	Actor  string `json:"actor" binding:"required"`
}

// Reconcile applies a staff-initiated status override with an audit entry.
// This is the only path that may move a payment out of a terminal state.
func (s *PaymentService) Reconcile(paymentID string, req ReconcileRequest) (*models.TabPayment, error) {
	switch req.Status {
	case models.PaymentSuccess, models.PaymentFailed, models.PaymentCancelled:
	default:
		return nil, newError(CodeInvalidStatus, "status must be success, failed or cancelled")
	}

	var payment models.TabPayment
	if err := s.DB.Where("id = ?", paymentID).First(&payment).Error; err != nil {
		return nil, newError(CodePaymentNotFound, "payment not found")
	}

	fromStatus := payment.Status
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": req.Status}
		if req.Status != models.PaymentSuccess {
			updates["failure_reason"] = req.Reason
		}
		if err := tx.Model(&models.TabPayment{}).Where("id = ?", paymentID).Updates(updates).Error; err != nil {
			return err
		}
		audit := models.PaymentAudit{
			PaymentID:  paymentID,
			Action:     "manual_reconciliation",
			FromStatus: fromStatus,
			ToStatus:   req.Status,
			Actor:      req.Actor,
			Note:       req.Reason,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, err
	}

	payment.Status = req.Status
	return &payment, nil
}

type ListPaymentsQuery struct {
	TabID  string
	Status string
	Page   int
	Limit  int
}

func (s *PaymentService) ListPayments(q ListPaymentsQuery) ([]models.TabPayment, *common.Pagination, error) {
	query := s.DB.Model(&models.TabPayment{})
	if q.TabID != "" {
		query = query.Where("tab_id = ?", q.TabID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	pagination := common.Pagination{Page: q.Page, Limit: q.Limit, Total: int(total)}
	var payments []models.TabPayment
	err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(q.Limit).
		Find(&payments).Error
	if err != nil {
		return nil, nil, err
	}
	return payments, &pagination, nil
}

// SweepExpiredPayments marks stale pending M-Pesa payments as timed out. The
// status guard keeps a late callback from being clobbered: whichever update
// runs first wins and the other becomes a no-op.
func (s *PaymentService) SweepExpiredPayments() {
	cutoff := time.Now().Add(-pendingWindow)
	result := s.DB.Model(&models.TabPayment{}).
		Where("method = ? AND status = ? AND created_at < ?", models.MethodMpesa, models.PaymentPending, cutoff).
		Updates(map[string]interface{}{
			"status":         models.PaymentTimeout,
			"failure_reason": "no confirmation received from provider",
		})
	if result.Error != nil {
		log.Printf("payment sweep failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("payment sweep: %d pending payments marked as timed out", result.RowsAffected)
	}
}

// StartScheduler runs the pending-payment sweeper every minute.
func (s *PaymentService) StartScheduler() {
	c := cron.New()
	_, err := c.AddFunc("* * * * *", s.SweepExpiredPayments)
	if err != nil {
		log.Printf("Error scheduling payment sweep: %v", err)
		return
	}
	c.Start()
	log.Println("Payment timeout sweeper started (every minute)")
}
