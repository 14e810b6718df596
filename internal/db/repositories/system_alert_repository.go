// system_alert_repository.go implements SystemAlertRepository: alert inserts, listing,
// resolution and the unresolved tally by type.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SystemAlertRepository handles system_alerts
type SystemAlertRepository struct {
	db *sqlx.DB
}

// NewSystemAlertRepository creates a new SystemAlertRepository
func NewSystemAlertRepository(db *sqlx.DB) *SystemAlertRepository {
	return &SystemAlertRepository{db: db}
}

// AlertFilters narrows List. Nil fields are ignored.
type AlertFilters struct {
	Resolved *bool
	Type     *models.AlertType
	Category *string
}

const alertColumns = `id, type, category, title, description, metadata, resolved, resolved_at, resolved_by, created_at`

// Create inserts alert, assigning its ID and CreatedAt.
func (r *SystemAlertRepository) Create(ctx context.Context, alert *models.SystemAlert) error {
	alert.ID = uuid.New()
	alert.CreatedAt = time.Now()
	if len(alert.Metadata) == 0 {
		alert.Metadata = []byte(`{}`)
	}

	query := `
		INSERT INTO system_alerts (id, type, category, title, description, metadata, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID, string(alert.Type), alert.Category, alert.Title, alert.Description,
		[]byte(alert.Metadata), alert.CreatedAt,
	)
	return err
}

// List returns alerts newest first.
func (r *SystemAlertRepository) List(ctx context.Context, filters AlertFilters, limit, offset int) ([]*models.SystemAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM system_alerts WHERE 1=1`
	args := make([]interface{}, 0, 5)

	if filters.Resolved != nil {
		args = append(args, *filters.Resolved)
		query += fmt.Sprintf(` AND resolved = $%d`, len(args))
	}
	if filters.Type != nil {
		args = append(args, string(*filters.Type))
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filters.Category != nil {
		args = append(args, *filters.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	alerts := make([]*models.SystemAlert, 0)
	err := r.db.SelectContext(ctx, &alerts, query, args...)
	return alerts, err
}

// Resolve marks an unresolved alert resolved. It reports false when the alert does not
// exist or was already resolved.
func (r *SystemAlertRepository) Resolve(ctx context.Context, id, resolvedBy uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE system_alerts SET resolved = true, resolved_at = $2, resolved_by = $3
		 WHERE id = $1 AND NOT resolved`,
		id, time.Now(), resolvedBy)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountUnresolvedByType tallies unresolved alerts per type.
func (r *SystemAlertRepository) CountUnresolvedByType(ctx context.Context) (models.AlertCounts, error) {
	var counts models.AlertCounts

	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM system_alerts WHERE NOT resolved GROUP BY type`)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var alertType string
		var n int
		if err := rows.Scan(&alertType, &n); err != nil {
			return counts, err
		}
		switch models.AlertType(alertType) {
		case models.AlertCritical:
			counts.Critical = n
		case models.AlertWarning:
			counts.Warning = n
		case models.AlertInfo:
			counts.Info = n
		}
		counts.Total += n
	}
	return counts, rows.Err()
}
