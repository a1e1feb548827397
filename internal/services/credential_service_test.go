package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tab-service/internal/models"
)

func TestResolveForTab(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	barID, tabID := seedBarWithCredentials(t, true)
	svc := NewCredentialService(testDB, testCipher())

	creds, err := svc.ResolveForTab(tabID, models.EnvSandbox)
	require.NoError(t, err)
	assert.Equal(t, barID, creds.BarID)
	assert.Equal(t, "174379", creds.ShortCode)
	assert.Equal(t, "consumer-key", creds.ConsumerKey)
	assert.Equal(t, "consumer-secret", creds.ConsumerSecret)
	assert.Equal(t, "passkey", creds.Passkey)
	assert.Equal(t, models.EnvSandbox, creds.Environment)
}

func TestResolveForTabNotFound(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	svc := NewCredentialService(testDB, testCipher())
	_, err := svc.ResolveForTab(uuid.NewString(), models.EnvSandbox)
	assert.Equal(t, CodeTabNotFound, CodeOf(err))
}

func TestResolveOrphanedTab(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	tabID := uuid.NewString()
	require.NoError(t, testDB.Create(&models.Tab{
		ID: tabID, BarID: "", CustomerID: uuid.NewString(), Status: models.TabOpen,
	}).Error)

	svc := NewCredentialService(testDB, testCipher())
	_, err := svc.ResolveForTab(tabID, models.EnvSandbox)
	assert.Equal(t, CodeOrphanedTab, CodeOf(err))
}

func TestResolveWithoutActiveCredentials(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	_, tabID := seedBarWithCredentials(t, false)

	svc := NewCredentialService(testDB, testCipher())
	_, err := svc.ResolveForTab(tabID, models.EnvSandbox)
	assert.Equal(t, CodeCredentialsNotConfigured, CodeOf(err))
}

func TestResolveWithCorruptCiphertext(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	barID, tabID := seedBarWithCredentials(t, true)
	require.NoError(t, testDB.Model(&models.MpesaCredential{}).
		Where("bar_id = ?", barID).
		Update("consumer_secret_enc", "Y29ycnVwdGVk").Error)

	svc := NewCredentialService(testDB, testCipher())
	_, err := svc.ResolveForTab(tabID, models.EnvSandbox)
	assert.Equal(t, CodeDecryptionFailed, CodeOf(err))
	// The client-safe rendering stays generic.
	assert.Equal(t, "payment service unavailable", MessageOf(err))
}

func TestResolveUsesCacheUntilInvalidated(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	barID, tabID := seedBarWithCredentials(t, true)
	svc := NewCredentialService(testDB, testCipher())

	first, err := svc.ResolveForTab(tabID, models.EnvSandbox)
	require.NoError(t, err)

	// Deactivate the row behind the cache's back; the cached copy still
	// serves until invalidated.
	require.NoError(t, testDB.Model(&models.MpesaCredential{}).
		Where("bar_id = ?", barID).
		Update("is_active", false).Error)

	cached, err := svc.ResolveForTab(tabID, models.EnvSandbox)
	require.NoError(t, err)
	assert.Equal(t, first.ConsumerKey, cached.ConsumerKey)

	svc.Invalidate(barID)
	_, err = svc.ResolveForTab(tabID, models.EnvSandbox)
	assert.Equal(t, CodeCredentialsNotConfigured, CodeOf(err))
}
