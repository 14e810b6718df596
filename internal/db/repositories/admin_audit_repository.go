// admin_audit_repository.go implements AdminAuditRepository, the insert-only store behind
// the admin audit trail plus the filtered listing used by the back-office log viewer.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// AdminAuditRepository handles admin_audit_logs. Rows are append-only: there is
// no update or delete operation.
type AdminAuditRepository struct {
	db *sqlx.DB
}

// NewAdminAuditRepository creates a new AdminAuditRepository
func NewAdminAuditRepository(db *sqlx.DB) *AdminAuditRepository {
	return &AdminAuditRepository{db: db}
}

// AuditFilters narrows ListAuditLogs. Nil fields are ignored.
type AuditFilters struct {
	AdminID    *uuid.UUID
	ChurchID   *uuid.UUID
	Action     *string
	TargetType *string
	TargetID   *string
}

const auditColumns = `id, admin_id, action, target_type, target_id, church_id,
	old_value, new_value, reason, ip_address, user_agent, created_at`

// nullJSON maps an empty JSON document to SQL NULL.
func nullJSON(j types.JSONText) interface{} {
	if len(j) == 0 {
		return nil
	}
	return []byte(j)
}

// Insert appends entry. ID and CreatedAt must already be set.
func (r *AdminAuditRepository) Insert(ctx context.Context, entry *models.AdminAuditLog) error {
	query := `
		INSERT INTO admin_audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.AdminID,
		string(entry.Action),
		entry.TargetType,
		entry.TargetID,
		entry.ChurchID,
		nullJSON(entry.OldValue),
		nullJSON(entry.NewValue),
		entry.Reason,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)
	return err
}

// ListAuditLogs returns one page of entries, newest first, and the total match count.
func (r *AdminAuditRepository) ListAuditLogs(ctx context.Context, filters AuditFilters, limit, offset int) ([]*models.AdminAuditLog, int, error) {
	where := ` WHERE 1=1`
	args := make([]interface{}, 0, 7)
	add := func(column string, value interface{}) {
		args = append(args, value)
		where += fmt.Sprintf(` AND %s = $%d`, column, len(args))
	}

	if filters.AdminID != nil {
		add("admin_id", *filters.AdminID)
	}
	if filters.ChurchID != nil {
		add("church_id", *filters.ChurchID)
	}
	if filters.Action != nil {
		add("action", *filters.Action)
	}
	if filters.TargetType != nil {
		add("target_type", *filters.TargetType)
	}
	if filters.TargetID != nil {
		add("target_id", *filters.TargetID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM admin_audit_logs`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + auditColumns + ` FROM admin_audit_logs` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	logs := make([]*models.AdminAuditLog, 0)
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// GetAuditLog returns a single entry, or nil when absent.
func (r *AdminAuditRepository) GetAuditLog(ctx context.Context, id uuid.UUID) (*models.AdminAuditLog, error) {
	var entry models.AdminAuditLog
	err := r.db.GetContext(ctx, &entry, `SELECT `+auditColumns+` FROM admin_audit_logs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
