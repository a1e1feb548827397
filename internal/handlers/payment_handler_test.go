package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tab-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCallbackRejectsMalformedBody(t *testing.T) {
	handler := NewPaymentHandler(nil, nil)
	r := gin.New()
	r.POST("/payments/mpesa/callback", handler.Callback)

	cases := []string{
		`not json`,
		`{}`,
		`{"Body":{"stkCallback":{"ResultCode":0}}}`,
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payments/mpesa/callback", strings.NewReader(body))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
		assert.Contains(t, w.Body.String(), `"ResultCode":1`, "body %s", body)
	}
}

func TestInitiateRejectsMissingFields(t *testing.T) {
	handler := NewPaymentHandler(nil, nil)
	r := gin.New()
	r.POST("/payments/mpesa/initiate", handler.Initiate)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/mpesa/initiate", strings.NewReader(`{"tabId":"t1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusForMapping(t *testing.T) {
	cases := []struct {
		code services.ErrorCode
		want int
	}{
		{services.CodeTabNotFound, http.StatusNotFound},
		{services.CodeInvalidPhoneNumber, http.StatusBadRequest},
		{services.CodePaymentInProgress, http.StatusConflict},
		{services.CodeRateLimited, http.StatusTooManyRequests},
		{services.CodeDecryptionFailed, http.StatusServiceUnavailable},
		{services.CodeStkPushFailed, http.StatusServiceUnavailable},
		{services.CodeNetworkError, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		err := &services.ServiceError{Code: tc.code, Message: "x"}
		assert.Equal(t, tc.want, statusFor(err), "code %s", tc.code)
	}
}
