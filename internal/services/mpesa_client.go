package services

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"time"

	"tab-service/internal/models"
	"tab-service/pkg/common"
)

// MpesaClient talks to the Daraja API: OAuth token acquisition and STK push.
// All credentials are passed in per call; the client holds no tenant state.
type MpesaClient struct {
	SandboxBaseURL    string
	ProductionBaseURL string
}

func NewMpesaClient() *MpesaClient {
	sandbox := os.Getenv("MPESA_SANDBOX_BASE_URL")
	if sandbox == "" {
		sandbox = "https://sandbox.safaricom.co.ke"
	}
	production := os.Getenv("MPESA_PRODUCTION_BASE_URL")
	if production == "" {
		production = "https://api.safaricom.co.ke"
	}
	return &MpesaClient{SandboxBaseURL: sandbox, ProductionBaseURL: production}
}

func (c *MpesaClient) baseURL(environment string) string {
	if environment == models.EnvProduction {
		return c.ProductionBaseURL
	}
	return c.SandboxBaseURL
}

// StkPushResult carries the provider correlation ids returned on a successful
// initiation.
type StkPushResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	CustomerMessage   string
}

// stkPassword builds the timestamped request password:
// base64(shortcode + passkey + timestamp).
func stkPassword(shortCode, passkey string, t time.Time) (password, timestamp string) {
	timestamp = t.Format("20060102150405")
	password = base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
	return password, timestamp
}

// AccessToken authorizes against the token endpoint with HTTP Basic auth of
// the consumer key and secret. Network errors are retried once.
func (c *MpesaClient) AccessToken(creds *Credentials) (string, error) {
	url := fmt.Sprintf("%s/oauth/v1/generate?grant_type=client_credentials", c.baseURL(creds.Environment))
	auth := base64.StdEncoding.EncodeToString([]byte(creds.ConsumerKey + ":" + creds.ConsumerSecret))
	headers := map[string]string{"Authorization": "Basic " + auth}

	resp, err := common.Get(url, headers)
	if err != nil {
		log.Printf("mpesa token request failed, retrying once: %v", err)
		resp, err = common.Get(url, headers)
	}
	if err != nil {
		return "", wrapError(CodeNetworkError, "token endpoint unreachable", err)
	}
	if !resp.OK() {
		return "", newError(CodeProviderAuthFailed, fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	body := resp.BodyMap()
	token, _ := body["access_token"].(string)
	if token == "" {
		return "", newError(CodeProviderAuthFailed, "token endpoint returned no access token")
	}
	return token, nil
}

// StkPush submits a charge initiation. The phone number must already be in
// canonical 2547XXXXXXXX form and the amount a whole unit.
func (c *MpesaClient) StkPush(creds *Credentials, phone string, amount int64, accountRef, description string) (*StkPushResult, error) {
	token, err := c.AccessToken(creds)
	if err != nil {
		return nil, err
	}

	password, timestamp := stkPassword(creds.ShortCode, creds.Passkey, time.Now())
	payload := map[string]interface{}{
		"BusinessShortCode": creds.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phone,
		"PartyB":            creds.ShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       creds.CallbackURL,
		"AccountReference":  accountRef,
		"TransactionDesc":   description,
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	url := fmt.Sprintf("%s/mpesa/stkpush/v1/processrequest", c.baseURL(creds.Environment))
	resp, err := common.Post(url, payload, headers)
	if err != nil {
		return nil, wrapError(CodeNetworkError, "stk push endpoint unreachable", err)
	}

	body := resp.BodyMap()
	if !resp.OK() {
		desc, _ := body["errorMessage"].(string)
		if desc == "" {
			desc = fmt.Sprintf("provider returned status %d", resp.StatusCode)
		}
		return nil, newError(CodeStkPushFailed, desc)
	}

	// A 2xx body can still signal rejection via ResponseCode != "0".
	if code, _ := body["ResponseCode"].(string); code != "0" {
		desc, _ := body["ResponseDescription"].(string)
		if desc == "" {
			desc = "stk push rejected by provider"
		}
		return nil, newError(CodeStkPushFailed, desc)
	}

	result := &StkPushResult{}
	result.MerchantRequestID, _ = body["MerchantRequestID"].(string)
	result.CheckoutRequestID, _ = body["CheckoutRequestID"].(string)
	result.CustomerMessage, _ = body["CustomerMessage"].(string)
	if result.CheckoutRequestID == "" {
		return nil, newError(CodeStkPushFailed, "provider response is missing CheckoutRequestID")
	}
	return result, nil
}
