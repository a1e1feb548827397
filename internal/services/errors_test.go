package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageOfSanitizesInternalErrors(t *testing.T) {
	// Credential-layer failures never leak detail to clients.
	internal := []*ServiceError{
		wrapError(CodeDecryptionFailed, "cannot decrypt passkey", errors.New("cipher: message authentication failed")),
		newError(CodeCredentialsNotConfigured, "m-pesa is not configured for this bar"),
		newError(CodeIncompleteCredentials, "credential record is missing required fields"),
		newError(CodeProviderAuthFailed, "token endpoint returned status 401"),
	}
	for _, err := range internal {
		assert.Equal(t, "payment service unavailable", MessageOf(err), "code %s", err.Code)
	}
}

func TestMessageOfPassesValidationErrors(t *testing.T) {
	err := newError(CodeInvalidPhoneNumber, "phone number must be a valid Kenyan mobile number")
	assert.Equal(t, "phone number must be a valid Kenyan mobile number", MessageOf(err))
}

func TestCodeOf(t *testing.T) {
	err := newError(CodeTabNotFound, "tab not found")
	assert.Equal(t, CodeTabNotFound, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))

	wrapped := wrapError(CodeNetworkError, "unreachable", errors.New("dial tcp: timeout"))
	assert.Equal(t, CodeNetworkError, CodeOf(wrapped))
	assert.Contains(t, wrapped.Error(), "NETWORK_ERROR")
}
