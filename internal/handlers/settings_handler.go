package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tab-service/internal/models"
	"tab-service/internal/services"
	"tab-service/pkg/common"
)

type SettingsHandler struct {
	Settings *services.SettingsService
	Sync     *services.SyncService
}

func NewSettingsHandler(settings *services.SettingsService, sync *services.SyncService) *SettingsHandler {
	return &SettingsHandler{Settings: settings, Sync: sync}
}

// UpsertCredentials handles PUT /bars/:id/mpesa/credentials. The response
// never includes secret fields, encrypted or otherwise.
func (h *SettingsHandler) UpsertCredentials(c *gin.Context) {
	var req services.UpsertCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "environment, businessShortCode, consumerKey, consumerSecret and passkey are required"})
		return
	}

	row, err := h.Settings.UpsertCredentials(c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"environment":       row.Environment,
		"businessShortCode": row.BusinessShortCode,
		"callbackUrl":       row.CallbackURL,
		"isActive":          row.IsActive,
	}, "credentials saved"))
}

// TestCredentials handles POST /bars/:id/mpesa/credentials/test.
func (h *SettingsHandler) TestCredentials(c *gin.Context) {
	environment := c.Query("environment")
	if environment == "" {
		environment = models.EnvSandbox
	}

	result, err := h.Settings.TestCredentials(c.Param("id"), environment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(result, "credential test completed"))
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetEnabled handles PUT /bars/:id/mpesa/enabled.
func (h *SettingsHandler) SetEnabled(c *gin.Context) {
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	if err := h.Settings.SetEnabled(c.Param("id"), *req.Enabled); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "m-pesa availability updated"))
}

// Status handles GET /bars/:id/mpesa/status.
func (h *SettingsHandler) Status(c *gin.Context) {
	report, err := h.Sync.ValidateConsistency(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(report, "consistency checked"))
}

// Repair handles POST /bars/:id/mpesa/repair.
func (h *SettingsHandler) Repair(c *gin.Context) {
	report, err := h.Sync.RepairInconsistency(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(report, "repair completed"))
}
