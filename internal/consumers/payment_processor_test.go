package consumers

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tab-service/internal/models"
	"tab-service/internal/services"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		var err error
		testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			log.Printf("Failed to connect to database: %v", err)
			testDB = nil
		} else {
			testDB.AutoMigrate(&models.Bar{}, &models.Tab{}, &models.TabPayment{})
		}
	}
	code := m.Run()
	if testDB != nil {
		testDB.Exec("DELETE FROM tab_payments")
		testDB.Exec("DELETE FROM tabs")
	}
	os.Exit(code)
}

func TestProcessPaymentSettledClosesOverdueTab(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}

	tabID := uuid.NewString()
	require.NoError(t, testDB.Create(&models.Tab{
		ID: tabID, BarID: uuid.NewString(), CustomerID: uuid.NewString(),
		Status: models.TabOverdue, TotalAmount: 100,
	}).Error)

	paymentID := uuid.NewString()
	require.NoError(t, testDB.Create(&models.TabPayment{
		ID: paymentID, TabID: tabID, Amount: 100,
		Method: models.MethodMpesa, Status: models.PaymentSuccess,
	}).Error)

	processor := NewPaymentProcessor(testDB, services.NewTabService(testDB))
	processor.ProcessPaymentSettled(services.PaymentSettledPayload{
		PaymentID: paymentID,
		TabID:     tabID,
		Status:    models.PaymentSuccess,
	})

	var tab models.Tab
	require.NoError(t, testDB.Where("id = ?", tabID).First(&tab).Error)
	assert.Equal(t, models.TabClosed, tab.Status)
	assert.Equal(t, models.ClosedBySystem, tab.ClosedBy)
}

func TestNotifyCarriesReceiptDetails(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}

	metadata := `{"Body":{"stkCallback":{
		"MerchantRequestID":"mr-1",
		"CheckoutRequestID":"ws_CO_1",
		"ResultCode":0,
		"ResultDesc":"ok",
		"CallbackMetadata":{"Item":[
			{"Name":"MpesaReceiptNumber","Value":"ABC123"},
			{"Name":"PhoneNumber","Value":254712345678},
			{"Name":"TransactionDate","Value":20240601134505}
		]}
	}}}`

	tabID := uuid.NewString()
	paymentID := uuid.NewString()
	require.NoError(t, testDB.Create(&models.TabPayment{
		ID: paymentID, TabID: tabID, Amount: 100,
		Method: models.MethodMpesa, Status: models.PaymentSuccess,
		Metadata: metadata,
	}).Error)

	received := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("NOTIFY_WEBHOOK_URL", srv.URL)

	processor := NewPaymentProcessor(testDB, services.NewTabService(testDB))
	processor.notify(services.PaymentSettledPayload{
		PaymentID: paymentID,
		TabID:     tabID,
		Status:    models.PaymentSuccess,
	})

	body := <-received
	assert.Equal(t, paymentID, body["paymentId"])
	assert.Equal(t, "ABC123", body["receipt"])
	assert.Equal(t, "254712345678", body["phone"])
	assert.Equal(t, "20240601134505", body["transactionDate"])
}
