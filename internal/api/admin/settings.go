// settings.go implements the key/value settings endpoints.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/middleware"
)

// SettingService is the part of *admin.Service the settings endpoints use.
type SettingService interface {
	GetSetting(ctx context.Context, key string) (*models.AdminSetting, error)
	ListSettings(ctx context.Context) ([]*models.AdminSetting, error)
	UpdateAdminSetting(ctx context.Context, actor admin.Actor, key string, value json.RawMessage, reason string) admin.Result
}

// SettingsHandlers serves /admin/settings.
type SettingsHandlers struct {
	settings SettingService
}

// NewSettingsHandlers creates a new SettingsHandlers instance
func NewSettingsHandlers(settings SettingService) *SettingsHandlers {
	return &SettingsHandlers{settings: settings}
}

// UpdateSettingRequest is the body of PUT /settings/:key. Value is any JSON document.
type UpdateSettingRequest struct {
	Value  json.RawMessage `json:"value" binding:"required"`
	Reason string          `json:"reason" binding:"max=1000"`
}

// @Summary      List settings
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "settings: []models.AdminSetting"
// @Router       /api/v1/admin/settings [get]
// ListSettingsHandler lists every setting.
func (h *SettingsHandlers) ListSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := h.settings.ListSettings(c.Request.Context())
		if err != nil {
			slog.Error("failed to list admin settings", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list settings"})
			return
		}
		if settings == nil {
			settings = []*models.AdminSetting{}
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})
	}
}

// @Summary      Get setting
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        key  path  string  true  "Setting key"
// @Success      200  {object}  models.AdminSetting
// @Failure      404  {object}  map[string]interface{}  "Setting not found"
// @Router       /api/v1/admin/settings/{key} [get]
// GetSettingHandler returns one setting.
func (h *SettingsHandlers) GetSettingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		setting, err := h.settings.GetSetting(c.Request.Context(), c.Param("key"))
		if err != nil {
			slog.Error("failed to get admin setting", "key", c.Param("key"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get setting"})
			return
		}
		if setting == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Setting not found"})
			return
		}
		c.JSON(http.StatusOK, setting)
	}
}

// @Summary      Update setting
// @Description  Re-authenticates the caller, upserts the value and records setting.update with the old and new values.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        key   path  string                true  "Setting key"
// @Param        body  body  UpdateSettingRequest  true  "New value"
// @Success      200  {object}  map[string]interface{}  "key, audit_id"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      403  {object}  map[string]interface{}  "Super admin role required"
// @Failure      500  {object}  map[string]interface{}  "Failed to update setting"
// @Router       /api/v1/admin/settings/{key} [put]
// UpdateSettingHandler writes one setting.
func (h *SettingsHandlers) UpdateSettingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSettingRequest
		if !bindJSON(c, &req) {
			return
		}

		key := c.Param("key")
		res := h.settings.UpdateAdminSetting(c.Request.Context(), middleware.Actor(c), key, req.Value, req.Reason)
		if !res.OK() {
			writeFailure(c, res, "update setting")
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "audit_id": auditID(res)})
	}
}
