// audit_logs.go implements the read-only audit log browser.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/db/repositories"
)

// AuditLogReader lists audit rows. *repositories.AdminAuditRepository satisfies it.
type AuditLogReader interface {
	ListAuditLogs(ctx context.Context, filters repositories.AuditFilters, limit, offset int) ([]*models.AdminAuditLog, int, error)
}

// AuditLogHandlers serves the audit log.
type AuditLogHandlers struct {
	logs AuditLogReader
}

// NewAuditLogHandlers creates a new AuditLogHandlers instance
func NewAuditLogHandlers(logs AuditLogReader) *AuditLogHandlers {
	return &AuditLogHandlers{logs: logs}
}

// @Summary      List audit logs
// @Description  Paginated admin audit trail, newest first, with optional filters.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        action       query  string  false  "Action, e.g. setting.update"
// @Param        admin_id     query  string  false  "Admin UUID"
// @Param        church_id    query  string  false  "Church UUID"
// @Param        target_type  query  string  false  "Target type"
// @Param        target_id    query  string  false  "Target ID"
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        per_page     query  int     false  "Items per page, max 200 (default 50)"
// @Success      200  {object}  map[string]interface{}  "logs: []models.AdminAuditLog, pagination"
// @Failure      400  {object}  map[string]interface{}  "Invalid filter"
// @Router       /api/v1/admin/audit-logs [get]
// ListAuditLogsHandler lists audit log entries.
func (h *AuditLogHandlers) ListAuditLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters repositories.AuditFilters

		for param, dst := range map[string]**uuid.UUID{"admin_id": &filters.AdminID, "church_id": &filters.ChurchID} {
			raw := c.Query(param)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
				return
			}
			*dst = &id
		}
		if v := c.Query("action"); v != "" {
			filters.Action = &v
		}
		if v := c.Query("target_type"); v != "" {
			filters.TargetType = &v
		}
		if v := c.Query("target_id"); v != "" {
			filters.TargetID = &v
		}

		page, perPage, offset := pagination(c)
		logs, total, err := h.logs.ListAuditLogs(c.Request.Context(), filters, perPage, offset)
		if err != nil {
			slog.Error("failed to list audit logs", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit logs"})
			return
		}
		if logs == nil {
			logs = []*models.AdminAuditLog{}
		}

		c.JSON(http.StatusOK, gin.H{
			"logs": logs,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}
