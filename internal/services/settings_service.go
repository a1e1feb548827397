package services

import (
	"errors"

	"gorm.io/gorm"

	"tab-service/internal/crypto"
	"tab-service/internal/models"
)

// SettingsService is the only writer of credential rows. Secrets are
// encrypted on the way in and never handed back out.
type SettingsService struct {
	DB          *gorm.DB
	Cipher      *crypto.Cipher
	Credentials *CredentialService
	Sync        *SyncService
	Mpesa       *MpesaClient
}

func NewSettingsService(db *gorm.DB, cipher *crypto.Cipher, creds *CredentialService, sync *SyncService, mpesa *MpesaClient) *SettingsService {
	return &SettingsService{DB: db, Cipher: cipher, Credentials: creds, Sync: sync, Mpesa: mpesa}
}

type UpsertCredentialsRequest struct {
	Environment       string `json:"environment" binding:"required"`
	BusinessShortCode string `json:"businessShortCode" binding:"required"`
	ConsumerKey       string `json:"consumerKey" binding:"required"`
	ConsumerSecret    string `json:"consumerSecret" binding:"required"`
	Passkey           string `json:"passkey" binding:"required"`
	CallbackURL       string `json:"callbackUrl"`
	IsActive          *bool  `json:"isActive"`
}

// UpsertCredentials encrypts and stores a bar's credentials for one
// environment, then syncs the enabled flags.
func (s *SettingsService) UpsertCredentials(barID string, req UpsertCredentialsRequest) (*models.MpesaCredential, error) {
	if req.Environment != models.EnvSandbox && req.Environment != models.EnvProduction {
		return nil, newError(CodeInvalidStatus, "environment must be sandbox or production")
	}

	var bar models.Bar
	if err := s.DB.Where("id = ?", barID).First(&bar).Error; err != nil {
		return nil, newError(CodeBarNotFound, "bar not found")
	}

	keyEnc, err := s.Cipher.Encrypt(req.ConsumerKey)
	if err != nil {
		return nil, err
	}
	secretEnc, err := s.Cipher.Encrypt(req.ConsumerSecret)
	if err != nil {
		return nil, err
	}
	passkeyEnc, err := s.Cipher.Encrypt(req.Passkey)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	var row models.MpesaCredential
	err = s.DB.Where("bar_id = ? AND environment = ?", barID, req.Environment).First(&row).Error
	switch {
	case err == nil:
		row.BusinessShortCode = req.BusinessShortCode
		row.ConsumerKeyEnc = keyEnc
		row.ConsumerSecretEnc = secretEnc
		row.PasskeyEnc = passkeyEnc
		row.CallbackURL = req.CallbackURL
		row.IsActive = active
		if err := s.DB.Save(&row).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.MpesaCredential{
			BarID:             barID,
			Environment:       req.Environment,
			BusinessShortCode: req.BusinessShortCode,
			ConsumerKeyEnc:    keyEnc,
			ConsumerSecretEnc: secretEnc,
			PasskeyEnc:        passkeyEnc,
			CallbackURL:       req.CallbackURL,
			IsActive:          active,
		}
		if err := s.DB.Create(&row).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.Credentials.Invalidate(barID)

	if err := s.Sync.SyncStatus(barID, active); err != nil {
		return nil, err
	}
	return &row, nil
}

type CredentialTestResult struct {
	Environment string `json:"environment"`
	Reachable   bool   `json:"reachable"`
	Message     string `json:"message"`
}

// TestCredentials performs a live OAuth call with the stored credentials.
// Each call spends real provider quota.
func (s *SettingsService) TestCredentials(barID, environment string) (*CredentialTestResult, error) {
	creds, err := s.Credentials.ResolveForBar(barID, environment)
	if err != nil {
		return nil, err
	}

	if _, err := s.Mpesa.AccessToken(creds); err != nil {
		return &CredentialTestResult{
			Environment: environment,
			Reachable:   false,
			Message:     MessageOf(err),
		}, nil
	}
	return &CredentialTestResult{
		Environment: environment,
		Reachable:   true,
		Message:     "credentials accepted by provider",
	}, nil
}

// SetEnabled toggles a bar's M-Pesa availability through the sync manager.
func (s *SettingsService) SetEnabled(barID string, enabled bool) error {
	var count int64
	s.DB.Model(&models.MpesaCredential{}).Where("bar_id = ?", barID).Count(&count)
	if enabled && count == 0 {
		return newError(CodeCredentialsNotConfigured, "cannot enable m-pesa without stored credentials")
	}
	s.Credentials.Invalidate(barID)
	return s.Sync.SyncStatus(barID, enabled)
}
