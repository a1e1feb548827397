package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"tab-service/internal/crypto"
	"tab-service/internal/models"
)

// Credentials is the decrypted bundle handed to the STK client. Instances are
// short-lived; callers must not retain them past the request that resolved
// them.
type Credentials struct {
	BarID          string
	Environment    string
	ShortCode      string
	ConsumerKey    string
	ConsumerSecret string
	Passkey        string
	CallbackURL    string
}

type cachedCredentials struct {
	creds     Credentials
	expiresAt time.Time
}

// CredentialService resolves a tab to its owning bar's decrypted M-Pesa
// credentials. Tenant secrets come exclusively from the credential store;
// this service performs no environment-variable reads.
type CredentialService struct {
	DB     *gorm.DB
	Cipher *crypto.Cipher

	mu    sync.Mutex
	cache map[string]cachedCredentials
}

const credentialCacheTTL = 30 * time.Second

func NewCredentialService(db *gorm.DB, cipher *crypto.Cipher) *CredentialService {
	return &CredentialService{
		DB:     db,
		Cipher: cipher,
		cache:  make(map[string]cachedCredentials),
	}
}

// ResolveForTab maps a tab to its bar and returns that bar's decrypted
// credentials for the given environment.
func (s *CredentialService) ResolveForTab(tabID, environment string) (*Credentials, error) {
	var tab models.Tab
	if err := s.DB.Where("id = ?", tabID).First(&tab).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeTabNotFound, "tab not found")
		}
		return nil, wrapError(CodeTabNotFound, "tab lookup failed", err)
	}
	if tab.BarID == "" {
		return nil, newError(CodeOrphanedTab, "tab has no owning bar")
	}
	return s.ResolveForBar(tab.BarID, environment)
}

// ResolveForBar fetches, decrypts and validates the active credential row for
// (barID, environment).
func (s *CredentialService) ResolveForBar(barID, environment string) (*Credentials, error) {
	key := barID + ":" + environment
	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		creds := entry.creds
		s.mu.Unlock()
		return &creds, nil
	}
	s.mu.Unlock()

	var row models.MpesaCredential
	err := s.DB.Where("bar_id = ? AND environment = ? AND is_active = ?", barID, environment, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeCredentialsNotConfigured, "m-pesa is not configured for this bar")
		}
		return nil, wrapError(CodeCredentialsNotConfigured, "credential lookup failed", err)
	}

	creds := Credentials{
		BarID:       barID,
		Environment: environment,
		ShortCode:   row.BusinessShortCode,
		CallbackURL: row.CallbackURL,
	}

	fields := []struct {
		name string
		enc  string
		dst  *string
	}{
		{"consumer_key", row.ConsumerKeyEnc, &creds.ConsumerKey},
		{"consumer_secret", row.ConsumerSecretEnc, &creds.ConsumerSecret},
		{"passkey", row.PasskeyEnc, &creds.Passkey},
	}
	for _, f := range fields {
		plain, err := s.Cipher.Decrypt(f.enc)
		if err != nil {
			// Field name only; never the ciphertext.
			return nil, wrapError(CodeDecryptionFailed, fmt.Sprintf("cannot decrypt %s", f.name), err)
		}
		*f.dst = plain
	}

	if creds.ShortCode == "" || creds.ConsumerKey == "" || creds.ConsumerSecret == "" || creds.Passkey == "" {
		return nil, newError(CodeIncompleteCredentials, "credential record is missing required fields")
	}

	s.mu.Lock()
	s.cache[key] = cachedCredentials{creds: creds, expiresAt: time.Now().Add(credentialCacheTTL)}
	s.mu.Unlock()

	return &creds, nil
}

// Invalidate drops cached credentials for a bar after a settings write.
func (s *CredentialService) Invalidate(barID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, barID+":"+models.EnvSandbox)
	delete(s.cache, barID+":"+models.EnvProduction)
}
