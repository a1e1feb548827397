package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tab-service/internal/services"
	"tab-service/pkg/common"
)

type PaymentHandler struct {
	Payments  *services.PaymentService
	Callbacks *services.CallbackService
}

func NewPaymentHandler(payments *services.PaymentService, callbacks *services.CallbackService) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Callbacks: callbacks}
}

// statusFor maps service error codes to HTTP statuses. Credential and
// decryption failures deliberately surface as 503 with a generic message.
func statusFor(err error) int {
	switch services.CodeOf(err) {
	case services.CodeTabNotFound, services.CodeBarNotFound, services.CodePaymentNotFound:
		return http.StatusNotFound
	case services.CodeInvalidPhoneNumber, services.CodeInvalidAmount, services.CodeInvalidStatus,
		services.CodeOrphanedTab, services.CodeCallbackMalformed:
		return http.StatusBadRequest
	case services.CodePaymentInProgress:
		return http.StatusConflict
	case services.CodeRateLimited:
		return http.StatusTooManyRequests
	case services.CodeCredentialsNotConfigured, services.CodeDecryptionFailed,
		services.CodeIncompleteCredentials, services.CodeProviderAuthFailed,
		services.CodeNetworkError, services.CodeStkPushFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, common.NewErrorResponse(services.MessageOf(err), nil, status))
}

// Initiate handles POST /payments/mpesa/initiate.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req services.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tabId, phoneNumber and amount are required"})
		return
	}

	resp, err := h.Payments.InitiateTabPayment(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Callback handles POST /payments/mpesa/callback. The provider is always
// acknowledged with ResultCode 0, even when internal processing fails,
// except for malformed bodies which get a 400 so genuinely broken senders
// notice.
func (h *PaymentHandler) Callback(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "Unreadable body"})
		return
	}

	cb, err := services.ParseCallback(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "Invalid callback payload"})
		return
	}

	h.Callbacks.Process(cb, raw)
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// Reconcile handles POST /payments/reconcile/:id, the staff override path.
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	var req services.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status and actor are required"})
		return
	}

	payment, err := h.Payments.Reconcile(c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(payment, "payment reconciled"))
}

// List handles GET /payments.
func (h *PaymentHandler) List(c *gin.Context) {
	page, limit := common.ParsePagination(c.Query("page"), c.Query("limit"))
	payments, pagination, err := h.Payments.ListPayments(services.ListPaymentsQuery{
		TabID:  c.Query("tab_id"),
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		var se *services.ServiceError
		if errors.As(err, &se) {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments, "pagination": pagination})
}
