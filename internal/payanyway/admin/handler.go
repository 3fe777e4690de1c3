package admin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ms-payanyway/internal/logger"
	"ms-payanyway/internal/models"
	"ms-payanyway/internal/utils"
)

// SettingsService is what the configure endpoints need from the settings
// layer.
type SettingsService interface {
	Load(ctx context.Context, storeID int) (models.PaymentSettings, error)
	Save(ctx context.Context, storeID int, settings models.PaymentSettings, overrides models.SettingOverrides) error
	Overrides(ctx context.Context, storeID int) (models.SettingOverrides, error)
}

type Handler struct {
	settings SettingsService
	log      *logger.Logger
}

func NewHandler(settings SettingsService, log *logger.Logger) *Handler {
	return &Handler{settings: settings, log: log}
}

// Register mounts the configure routes on a gin engine.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/payanyway/config", h.GetConfiguration)
	r.POST("/api/payanyway/config", h.SaveConfiguration)
}

// GetConfiguration returns the effective settings for a store scope plus the
// per-field override flags for that scope.
func (h *Handler) GetConfiguration(c *gin.Context) {
	storeID, err := strconv.Atoi(c.DefaultQuery("store", "0"))
	if err != nil || storeID < 0 {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid store scope", c.Query("store")))
		return
	}

	settings, err := h.settings.Load(c.Request.Context(), storeID)
	if err != nil {
		h.log.Error("ADMIN", fmt.Sprintf("GetConfiguration: failed to load settings: %v", err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load settings", err.Error()))
		return
	}

	overrides, err := h.settings.Overrides(c.Request.Context(), storeID)
	if err != nil {
		h.log.Error("ADMIN", fmt.Sprintf("GetConfiguration: failed to load override flags: %v", err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load settings", err.Error()))
		return
	}

	model := models.ConfigurationModel{
		StoreID:   storeID,
		Settings:  settings,
		Overrides: overrides,
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("PayAnyWay configuration", model))
}

// SaveConfiguration persists settings for a store scope. At a store scope the
// override flags decide which fields shadow the defaults.
func (h *Handler) SaveConfiguration(c *gin.Context) {
	var model models.ConfigurationModel
	if err := c.ShouldBindJSON(&model); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}
	if model.StoreID < 0 {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid store scope", strconv.Itoa(model.StoreID)))
		return
	}

	if err := h.settings.Save(c.Request.Context(), model.StoreID, model.Settings, model.Overrides); err != nil {
		h.log.Error("ADMIN", fmt.Sprintf("SaveConfiguration: failed to save settings: %v", err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to save settings", err.Error()))
		return
	}

	h.log.Info("ADMIN", fmt.Sprintf("SaveConfiguration: settings saved for store %d", model.StoreID))
	c.JSON(http.StatusOK, utils.SuccessResponse("Settings saved", nil))
}
