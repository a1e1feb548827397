package services

import (
	"errors"
	"log"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"tab-service/internal/models"
)

// SyncService keeps bars.mpesa_enabled mirroring the bar's active-credential
// flag. mpesa_credentials.is_active is the sole authority; repairs only ever
// flow from the credential row to the bar row.
type SyncService struct {
	DB *gorm.DB
}

func NewSyncService(db *gorm.DB) *SyncService {
	return &SyncService{DB: db}
}

// SyncStatus sets both flags inside one transaction so a partial write
// cannot leave them disagreeing.
func (s *SyncService) SyncStatus(barID string, isActive bool) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MpesaCredential{}).
			Where("bar_id = ?", barID).
			Update("is_active", isActive).Error; err != nil {
			return err
		}
		return tx.Model(&models.Bar{}).
			Where("id = ?", barID).
			Update("mpesa_enabled", isActive).Error
	})
	if err != nil {
		log.Printf("credential flag sync failed for bar %s: %v", barID, err)
		return wrapError(CodeSyncInconsistency, "flag sync failed, state may be inconsistent", err)
	}
	return nil
}

type ConsistencyReport struct {
	BarID            string `json:"bar_id"`
	CredentialActive bool   `json:"credential_active"`
	BarEnabled       bool   `json:"bar_enabled"`
	Consistent       bool   `json:"consistent"`
}

// ValidateConsistency reads both flags and reports whether they agree. A bar
// with no credential row at all counts as active=false.
func (s *SyncService) ValidateConsistency(barID string) (*ConsistencyReport, error) {
	var bar models.Bar
	if err := s.DB.Where("id = ?", barID).First(&bar).Error; err != nil {
		return nil, wrapError(CodeSyncInconsistency, "bar not found", err)
	}

	credentialActive := false
	var cred models.MpesaCredential
	err := s.DB.Where("bar_id = ? AND is_active = ?", barID, true).First(&cred).Error
	if err == nil {
		credentialActive = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return &ConsistencyReport{
		BarID:            barID,
		CredentialActive: credentialActive,
		BarEnabled:       bar.MpesaEnabled,
		Consistent:       credentialActive == bar.MpesaEnabled,
	}, nil
}

// RepairInconsistency overwrites bars.mpesa_enabled with the authoritative
// credential flag. Running it when already consistent changes nothing.
func (s *SyncService) RepairInconsistency(barID string) (*ConsistencyReport, error) {
	report, err := s.ValidateConsistency(barID)
	if err != nil {
		return nil, err
	}
	if report.Consistent {
		return report, nil
	}

	err = s.DB.Model(&models.Bar{}).
		Where("id = ?", barID).
		Update("mpesa_enabled", report.CredentialActive).Error
	if err != nil {
		return nil, wrapError(CodeSyncInconsistency, "repair update failed", err)
	}

	log.Printf("repaired mpesa_enabled for bar %s: %v -> %v", barID, report.BarEnabled, report.CredentialActive)
	report.BarEnabled = report.CredentialActive
	report.Consistent = true
	return report, nil
}

// CheckAllBars scans every bar and logs disagreements for out-of-band repair.
func (s *SyncService) CheckAllBars() {
	var bars []models.Bar
	if err := s.DB.Find(&bars).Error; err != nil {
		log.Printf("consistency scan failed: %v", err)
		return
	}
	inconsistent := 0
	for _, bar := range bars {
		report, err := s.ValidateConsistency(bar.ID)
		if err != nil {
			log.Printf("consistency check failed for bar %s: %v", bar.ID, err)
			continue
		}
		if !report.Consistent {
			inconsistent++
			log.Printf("inconsistent m-pesa flags for bar %s: credential_active=%v bar_enabled=%v",
				bar.ID, report.CredentialActive, report.BarEnabled)
		}
	}
	if inconsistent > 0 {
		log.Printf("consistency scan: %d of %d bars need repair", inconsistent, len(bars))
	}
}

// StartScheduler runs the consistency scan hourly.
func (s *SyncService) StartScheduler() {
	c := cron.New()
	_, err := c.AddFunc("0 * * * *", s.CheckAllBars)
	if err != nil {
		log.Printf("Error scheduling consistency scan: %v", err)
		return
	}
	c.Start()
	log.Println("Credential consistency scanner started (hourly)")
}
