package services

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a payment pipeline failure category. Handlers map
// codes to HTTP statuses; internal detail stays in the wrapped error.
type ErrorCode string

const (
	CodeTabNotFound              ErrorCode = "TAB_NOT_FOUND"
	CodeOrphanedTab              ErrorCode = "ORPHANED_TAB"
	CodeCredentialsNotConfigured ErrorCode = "CREDENTIALS_NOT_CONFIGURED"
	CodeDecryptionFailed         ErrorCode = "DECRYPTION_FAILED"
	CodeIncompleteCredentials    ErrorCode = "INCOMPLETE_CREDENTIALS"
	CodeInvalidPhoneNumber       ErrorCode = "INVALID_PHONE_NUMBER"
	CodeInvalidAmount            ErrorCode = "INVALID_AMOUNT"
	CodeNetworkError             ErrorCode = "NETWORK_ERROR"
	CodeStkPushFailed            ErrorCode = "STK_PUSH_FAILED"
	CodeProviderAuthFailed       ErrorCode = "PROVIDER_AUTH_FAILED"
	CodeRateLimited              ErrorCode = "RATE_LIMITED"
	CodeCallbackMalformed        ErrorCode = "CALLBACK_MALFORMED"
	CodeSyncInconsistency        ErrorCode = "SYNC_INCONSISTENCY"
	CodePaymentNotFound          ErrorCode = "PAYMENT_NOT_FOUND"
	CodePaymentInProgress        ErrorCode = "PAYMENT_IN_PROGRESS"
	CodeInvalidStatus            ErrorCode = "INVALID_STATUS"
	CodeBarNotFound              ErrorCode = "BAR_NOT_FOUND"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

func wrapError(code ErrorCode, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the error code, or empty string for untyped errors.
func CodeOf(err error) ErrorCode {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// MessageOf returns the client-safe message for an error. Credential and
// decryption failures are collapsed into a generic message so internal
// detail never reaches a caller.
func MessageOf(err error) string {
	var se *ServiceError
	if !errors.As(err, &se) {
		return "payment service unavailable"
	}
	switch se.Code {
	case CodeDecryptionFailed, CodeCredentialsNotConfigured, CodeIncompleteCredentials, CodeProviderAuthFailed:
		return "payment service unavailable"
	default:
		return se.Message
	}
}
