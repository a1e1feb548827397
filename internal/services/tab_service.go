package services

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"tab-service/internal/models"
)

type TabService struct {
	DB *gorm.DB
}

func NewTabService(db *gorm.DB) *TabService {
	return &TabService{DB: db}
}

func (s *TabService) GetTab(tabID string) (*models.Tab, error) {
	var tab models.Tab
	if err := s.DB.Where("id = ?", tabID).First(&tab).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeTabNotFound, "tab not found")
		}
		return nil, wrapError(CodeTabNotFound, "tab lookup failed", err)
	}
	return &tab, nil
}

// OutstandingBalance recomputes what is still owed on a tab: its total less
// all successful payments.
func (s *TabService) OutstandingBalance(tabID string) (float64, error) {
	tab, err := s.GetTab(tabID)
	if err != nil {
		return 0, err
	}

	var paid float64
	err = s.DB.Model(&models.TabPayment{}).
		Where("tab_id = ? AND status = ?", tabID, models.PaymentSuccess).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&paid).Error
	if err != nil {
		return 0, err
	}

	return tab.TotalAmount - paid, nil
}

// AutoCloseIfSettled closes an overdue tab whose balance has dropped to zero
// or below. The update is guarded by the current status so a concurrent
// staff closure cannot be overwritten. Returns whether the tab was closed by
// this call.
func (s *TabService) AutoCloseIfSettled(tabID string) (bool, error) {
	balance, err := s.OutstandingBalance(tabID)
	if err != nil {
		return false, err
	}
	if balance > 0 {
		return false, nil
	}

	result := s.DB.Model(&models.Tab{}).
		Where("id = ? AND status = ?", tabID, models.TabOverdue).
		Updates(map[string]interface{}{
			"status":    models.TabClosed,
			"closed_by": models.ClosedBySystem,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("tab %s settled and auto-closed", tabID)
		return true, nil
	}
	return false, nil
}
