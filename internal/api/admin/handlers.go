// Package admin implements the super-admin HTTP endpoints: audit log browsing, feature
// flags, settings, system alerts and integration health. Every route is mounted behind
// AuthMiddleware and RequireSuperAdmin; mutations additionally re-authenticate inside
// the admin service before they are applied and audited.
package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/validation"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// pagination parses ?page=&per_page=, clamping out-of-range values.
func pagination(c *gin.Context) (page, perPage, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	return page, perPage, (page - 1) * perPage
}

// bindJSON decodes and validates the request body, answering 400 on failure.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": validation.TranslateErrors(err),
		})
		return false
	}
	return true
}

// resultStatus maps the outcome of an audited mutation to an HTTP status.
func resultStatus(r admin.Result) int {
	switch r.Kind {
	case admin.ResultOK:
		return http.StatusOK
	case admin.ResultUnauthorized:
		return http.StatusForbidden
	case admin.ResultNotFound:
		return http.StatusNotFound
	case admin.ResultInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeFailure answers a failed mutation. Persistence errors are not echoed to the client.
func writeFailure(c *gin.Context, r admin.Result, what string) {
	status := resultStatus(r)
	body := gin.H{"error": "Failed to " + what, "result": r.Kind.String()}
	switch r.Kind {
	case admin.ResultUnauthorized:
		body["error"] = "Super admin role required"
	case admin.ResultNotFound, admin.ResultInvalid:
		if r.Err != nil {
			body["error"] = r.Err.Error()
		}
	default:
		slog.Error("admin mutation failed", "operation", what, "result", r.Kind.String(), "error", r.Err)
	}
	c.JSON(status, body)
}

// auditID renders the audit id of a successful mutation, nil when the audit row
// could not be written.
func auditID(r admin.Result) any {
	if r.AuditID == nil {
		return nil
	}
	return r.AuditID.String()
}
