// feature_flags.go implements feature flag management and evaluation.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/middleware"
)

// FlagService is the part of *admin.Service the flag endpoints use.
type FlagService interface {
	ListFeatureFlags(ctx context.Context) ([]*models.FeatureFlag, error)
	GetFeatureFlag(ctx context.Context, name string) (*models.FeatureFlag, error)
	UpsertFeatureFlag(ctx context.Context, actor admin.Actor, in admin.FlagInput, reason string) (*models.FeatureFlag, admin.Result)
	DeleteFeatureFlag(ctx context.Context, actor admin.Actor, name, reason string) admin.Result
	IsFeatureFlagEnabled(ctx context.Context, name string, t admin.Target) bool
}

// FeatureFlagHandlers serves /admin/feature-flags.
type FeatureFlagHandlers struct {
	flags FlagService
}

// NewFeatureFlagHandlers creates a new FeatureFlagHandlers instance
func NewFeatureFlagHandlers(flags FlagService) *FeatureFlagHandlers {
	return &FeatureFlagHandlers{flags: flags}
}

// UpsertFlagRequest is the body of PUT /feature-flags/:name.
type UpsertFlagRequest struct {
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Enabled     bool     `json:"enabled"`
	Scope       string   `json:"scope" binding:"required,oneof=global church plan"`
	ChurchIDs   []string `json:"church_ids" binding:"omitempty,dive,uuid"`
	PlanIDs     []string `json:"plan_ids" binding:"omitempty,dive,required"`
	Reason      string   `json:"reason" binding:"max=1000"`
}

// DeleteFlagRequest is the optional body of DELETE /feature-flags/:name.
type DeleteFlagRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// @Summary      List feature flags
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "flags: []models.FeatureFlag"
// @Router       /api/v1/admin/feature-flags [get]
// ListFlagsHandler lists every feature flag.
func (h *FeatureFlagHandlers) ListFlagsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		flags, err := h.flags.ListFeatureFlags(c.Request.Context())
		if err != nil {
			slog.Error("failed to list feature flags", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list feature flags"})
			return
		}
		if flags == nil {
			flags = []*models.FeatureFlag{}
		}
		c.JSON(http.StatusOK, gin.H{"flags": flags})
	}
}

// @Summary      Get feature flag
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        name  path  string  true  "Flag name"
// @Success      200  {object}  models.FeatureFlag
// @Failure      404  {object}  map[string]interface{}  "Feature flag not found"
// @Router       /api/v1/admin/feature-flags/{name} [get]
// GetFlagHandler returns one feature flag.
func (h *FeatureFlagHandlers) GetFlagHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		flag, err := h.flags.GetFeatureFlag(c.Request.Context(), c.Param("name"))
		if err != nil {
			slog.Error("failed to get feature flag", "flag", c.Param("name"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get feature flag"})
			return
		}
		if flag == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feature flag not found"})
			return
		}
		c.JSON(http.StatusOK, flag)
	}
}

// @Summary      Create or update feature flag
// @Description  Re-authenticates the caller, stores the flag and records feature_flag.create or feature_flag.update.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        name  path  string             true  "Flag name"
// @Param        body  body  UpsertFlagRequest  true  "Flag definition"
// @Success      200  {object}  map[string]interface{}  "flag: models.FeatureFlag, audit_id"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      403  {object}  map[string]interface{}  "Super admin role required"
// @Router       /api/v1/admin/feature-flags/{name} [put]
// UpsertFlagHandler creates or replaces a feature flag.
func (h *FeatureFlagHandlers) UpsertFlagHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpsertFlagRequest
		if !bindJSON(c, &req) {
			return
		}

		flag, res := h.flags.UpsertFeatureFlag(c.Request.Context(), middleware.Actor(c), admin.FlagInput{
			Name:        c.Param("name"),
			Description: req.Description,
			Enabled:     req.Enabled,
			Scope:       models.FlagScope(req.Scope),
			ChurchIDs:   req.ChurchIDs,
			PlanIDs:     req.PlanIDs,
		}, req.Reason)
		if !res.OK() {
			writeFailure(c, res, "save feature flag")
			return
		}
		c.JSON(http.StatusOK, gin.H{"flag": flag, "audit_id": auditID(res)})
	}
}

// @Summary      Delete feature flag
// @Tags         Admin
// @Security     Bearer
// @Param        name  path  string  true  "Flag name"
// @Success      200  {object}  map[string]interface{}  "audit_id"
// @Failure      404  {object}  map[string]interface{}  "Feature flag not found"
// @Router       /api/v1/admin/feature-flags/{name} [delete]
// DeleteFlagHandler removes a feature flag.
func (h *FeatureFlagHandlers) DeleteFlagHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DeleteFlagRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}

		res := h.flags.DeleteFeatureFlag(c.Request.Context(), middleware.Actor(c), c.Param("name"), req.Reason)
		if !res.OK() {
			writeFailure(c, res, "delete feature flag")
			return
		}
		c.JSON(http.StatusOK, gin.H{"audit_id": auditID(res)})
	}
}

// @Summary      Evaluate feature flag
// @Description  Reports whether the flag is on for a church and plan. Unknown flags evaluate to false.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        name       path   string  true   "Flag name"
// @Param        church_id  query  string  false  "Church UUID"
// @Param        plan_id    query  string  false  "Plan ID"
// @Success      200  {object}  map[string]interface{}  "name, enabled"
// @Router       /api/v1/admin/feature-flags/{name}/evaluate [get]
// EvaluateFlagHandler evaluates a flag for a target.
func (h *FeatureFlagHandlers) EvaluateFlagHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		enabled := h.flags.IsFeatureFlagEnabled(c.Request.Context(), name, admin.Target{
			ChurchID: c.Query("church_id"),
			PlanID:   c.Query("plan_id"),
		})
		c.JSON(http.StatusOK, gin.H{"name": name, "enabled": enabled})
	}
}
