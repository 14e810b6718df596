// alerts.go implements the system alert endpoints.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/db/repositories"
	"github.com/ekkle/ekkle-admin/internal/middleware"
)

// AlertService is the part of *admin.Service the alert endpoints use.
type AlertService interface {
	ListAlerts(ctx context.Context, filters repositories.AlertFilters, limit, offset int) ([]*models.SystemAlert, error)
	CreateSystemAlert(ctx context.Context, in admin.AlertInput) (*models.SystemAlert, error)
	GetUnresolvedAlertsCount(ctx context.Context) (models.AlertCounts, error)
	ResolveAlert(ctx context.Context, actor admin.Actor, id uuid.UUID, reason string) admin.Result
}

// AlertHandlers serves /admin/alerts.
type AlertHandlers struct {
	alerts AlertService
}

// NewAlertHandlers creates a new AlertHandlers instance
func NewAlertHandlers(alerts AlertService) *AlertHandlers {
	return &AlertHandlers{alerts: alerts}
}

// CreateAlertRequest is the body of POST /alerts.
type CreateAlertRequest struct {
	Type        string                 `json:"type" binding:"required,oneof=critical warning info"`
	Category    string                 `json:"category" binding:"required,max=64"`
	Title       string                 `json:"title" binding:"required,max=255"`
	Description string                 `json:"description" binding:"max=4000"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// ResolveAlertRequest is the optional body of POST /alerts/:id/resolve.
type ResolveAlertRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// @Summary      List system alerts
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        resolved  query  bool    false  "Filter by resolved state"
// @Param        type      query  string  false  "critical, warning or info"
// @Param        category  query  string  false  "Alert category"
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Items per page, max 200 (default 50)"
// @Success      200  {object}  map[string]interface{}  "alerts: []models.SystemAlert, pagination"
// @Failure      400  {object}  map[string]interface{}  "Invalid filter"
// @Router       /api/v1/admin/alerts [get]
// ListAlertsHandler lists alerts newest first.
func (h *AlertHandlers) ListAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters repositories.AlertFilters
		if v := c.Query("resolved"); v != "" {
			resolved, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resolved filter"})
				return
			}
			filters.Resolved = &resolved
		}
		if v := c.Query("type"); v != "" {
			t := models.AlertType(v)
			if !t.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert type"})
				return
			}
			filters.Type = &t
		}
		if v := c.Query("category"); v != "" {
			filters.Category = &v
		}

		page, perPage, offset := pagination(c)
		alerts, err := h.alerts.ListAlerts(c.Request.Context(), filters, perPage, offset)
		if err != nil {
			slog.Error("failed to list system alerts", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
			return
		}
		if alerts == nil {
			alerts = []*models.SystemAlert{}
		}
		c.JSON(http.StatusOK, gin.H{
			"alerts": alerts,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
			},
		})
	}
}

// @Summary      Raise a system alert
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateAlertRequest  true  "Alert"
// @Success      201  {object}  models.SystemAlert
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Router       /api/v1/admin/alerts [post]
// CreateAlertHandler stores a new unresolved alert.
func (h *AlertHandlers) CreateAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAlertRequest
		if !bindJSON(c, &req) {
			return
		}

		alert, err := h.alerts.CreateSystemAlert(c.Request.Context(), admin.AlertInput{
			Type:        models.AlertType(req.Type),
			Category:    req.Category,
			Title:       req.Title,
			Description: req.Description,
			Metadata:    req.Metadata,
		})
		switch {
		case errors.Is(err, admin.ErrInvalidAlert):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
			return
		}
		c.JSON(http.StatusCreated, alert)
	}
}

// @Summary      Count unresolved alerts
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  models.AlertCounts
// @Router       /api/v1/admin/alerts/unresolved-count [get]
// UnresolvedCountHandler tallies unresolved alerts by type.
func (h *AlertHandlers) UnresolvedCountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := h.alerts.GetUnresolvedAlertsCount(c.Request.Context())
		if err != nil {
			slog.Error("failed to count unresolved alerts", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count alerts"})
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}

// @Summary      Resolve a system alert
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true   "Alert UUID"
// @Param        body  body  ResolveAlertRequest  false  "Reason"
// @Success      200  {object}  map[string]interface{}  "id, audit_id"
// @Failure      404  {object}  map[string]interface{}  "Alert not found or already resolved"
// @Router       /api/v1/admin/alerts/{id}/resolve [post]
// ResolveAlertHandler marks an alert resolved.
func (h *AlertHandlers) ResolveAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
			return
		}
		var req ResolveAlertRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}

		res := h.alerts.ResolveAlert(c.Request.Context(), middleware.Actor(c), id, req.Reason)
		if !res.OK() {
			writeFailure(c, res, "resolve alert")
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "audit_id": auditID(res)})
	}
}
