// integrations.go implements the integration health endpoints.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/integrations"
	"github.com/ekkle/ekkle-admin/internal/middleware"
)

// IntegrationService is the part of *integrations.Checker the endpoints use.
type IntegrationService interface {
	List(ctx context.Context) ([]*models.IntegrationStatus, error)
	Check(ctx context.Context, name string, actorID uuid.UUID) (integrations.CheckResult, error)
	CheckAll(ctx context.Context, actorID uuid.UUID) map[string]integrations.CheckResult
	SetOverride(ctx context.Context, actor admin.Actor, adminID uuid.UUID, name string, in integrations.Credentials, reason string) error
}

// IntegrationHandlers serves /admin/integrations.
type IntegrationHandlers struct {
	checker IntegrationService
}

// NewIntegrationHandlers creates a new IntegrationHandlers instance
func NewIntegrationHandlers(checker IntegrationService) *IntegrationHandlers {
	return &IntegrationHandlers{checker: checker}
}

// IntegrationConfigRequest is the body of PUT /integrations/:name/config. Empty
// fields fall back to the environment credentials.
type IntegrationConfigRequest struct {
	BaseURL string `json:"base_url" binding:"omitempty,url,max=2048"`
	APIKey  string `json:"api_key" binding:"max=4096"`
	Secret  string `json:"secret" binding:"max=4096"`
	Reason  string `json:"reason" binding:"max=1000"`
}

// actorID returns the caller's profile id as stored by RequireSuperAdmin.
func actorID(c *gin.Context) uuid.UUID {
	if p := middleware.GetProfile(c); p != nil {
		return p.ID
	}
	id, _ := uuid.Parse(c.GetString(middleware.UserIDKey))
	return id
}

// @Summary      List integration status
// @Description  Latest stored status per provider. Providers never checked are reported as unknown.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "integrations: []models.IntegrationStatus"
// @Router       /api/v1/admin/integrations [get]
// ListIntegrationsHandler lists provider status.
func (h *IntegrationHandlers) ListIntegrationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.checker.List(c.Request.Context())
		if err != nil {
			slog.Error("failed to list integration status", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list integrations"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"integrations": rows})
	}
}

// @Summary      Check every integration
// @Description  Probes every provider concurrently. Probe failures are reported per provider, never as an error response.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "results: map[string]integrations.CheckResult"
// @Router       /api/v1/admin/integrations/check-all [post]
// CheckAllHandler checks all providers.
func (h *IntegrationHandlers) CheckAllHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		results := h.checker.CheckAll(c.Request.Context(), actorID(c))
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// @Summary      Check one integration
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        name  path  string  true  "Provider name"
// @Success      200  {object}  integrations.CheckResult
// @Failure      404  {object}  map[string]interface{}  "Unknown integration"
// @Router       /api/v1/admin/integrations/{name}/check [post]
// CheckHandler checks one provider.
func (h *IntegrationHandlers) CheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.checker.Check(c.Request.Context(), c.Param("name"), actorID(c))
		if err != nil {
			if errors.Is(err, integrations.ErrUnknownIntegration) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Unknown integration"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check integration"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// @Summary      Override integration credentials
// @Description  Stores credentials that take precedence over the environment. Secrets are encrypted at rest.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        name  path  string                    true  "Provider name"
// @Param        body  body  IntegrationConfigRequest  true  "Override"
// @Success      200  {object}  map[string]interface{}  "name, message"
// @Failure      400  {object}  map[string]interface{}  "Invalid request or encryption not configured"
// @Failure      404  {object}  map[string]interface{}  "Unknown integration"
// @Router       /api/v1/admin/integrations/{name}/config [put]
// UpdateConfigHandler stores a credential override.
func (h *IntegrationHandlers) UpdateConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IntegrationConfigRequest
		if !bindJSON(c, &req) {
			return
		}

		name := c.Param("name")
		err := h.checker.SetOverride(c.Request.Context(), middleware.Actor(c), actorID(c), name, integrations.Credentials{
			BaseURL: req.BaseURL,
			APIKey:  req.APIKey,
			Secret:  req.Secret,
		}, req.Reason)
		switch {
		case errors.Is(err, integrations.ErrUnknownIntegration):
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown integration"})
			return
		case errors.Is(err, integrations.ErrNoCipher):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Secrets cannot be stored: " + err.Error()})
			return
		case err != nil:
			slog.Error("failed to store integration override", "integration", name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store integration config"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": name, "message": "Integration config updated"})
	}
}
