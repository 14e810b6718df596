// integration_status_repository.go implements IntegrationStatusRepository. Each provider owns
// exactly one row which every health check overwrites; no history is kept.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/jmoiron/sqlx"
)

// IntegrationStatusRepository handles integration_status
type IntegrationStatusRepository struct {
	db *sqlx.DB
}

// NewIntegrationStatusRepository creates a new IntegrationStatusRepository
func NewIntegrationStatusRepository(db *sqlx.DB) *IntegrationStatusRepository {
	return &IntegrationStatusRepository{db: db}
}

// CheckUpdate is the outcome of one health check as persisted.
type CheckUpdate struct {
	Name         string
	Status       models.HealthStatus
	CheckedAt    time.Time
	Succeeded    bool
	ErrorMessage *string
	Metrics      []byte
}

const integrationColumns = `name, status, last_check_at, last_success_at, error_message, metrics, config, updated_at`

// Get returns the provider row, or nil when it has never been written.
func (r *IntegrationStatusRepository) Get(ctx context.Context, name string) (*models.IntegrationStatus, error) {
	var status models.IntegrationStatus
	err := r.db.GetContext(ctx, &status, `SELECT `+integrationColumns+` FROM integration_status WHERE name = $1`, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// List returns every provider row ordered by name.
func (r *IntegrationStatusRepository) List(ctx context.Context) ([]*models.IntegrationStatus, error) {
	statuses := make([]*models.IntegrationStatus, 0)
	err := r.db.SelectContext(ctx, &statuses, `SELECT `+integrationColumns+` FROM integration_status ORDER BY name`)
	return statuses, err
}

// UpsertCheck overwrites the provider's status. last_success_at only moves when the
// check succeeded; otherwise the previous value is kept.
func (r *IntegrationStatusRepository) UpsertCheck(ctx context.Context, u CheckUpdate) error {
	var lastSuccess *time.Time
	if u.Succeeded {
		lastSuccess = &u.CheckedAt
	}
	metrics := u.Metrics
	if len(metrics) == 0 {
		metrics = []byte(`{}`)
	}

	query := `
		INSERT INTO integration_status (name, status, last_check_at, last_success_at, error_message, metrics, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $3)
		ON CONFLICT (name) DO UPDATE SET
			status = EXCLUDED.status,
			last_check_at = EXCLUDED.last_check_at,
			last_success_at = COALESCE(EXCLUDED.last_success_at, integration_status.last_success_at),
			error_message = EXCLUDED.error_message,
			metrics = EXCLUDED.metrics,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		u.Name, string(u.Status), u.CheckedAt, lastSuccess, u.ErrorMessage, metrics)
	return err
}

// SetConfig replaces the provider's stored configuration document.
func (r *IntegrationStatusRepository) SetConfig(ctx context.Context, name string, config []byte) error {
	query := `
		INSERT INTO integration_status (name, config, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, name, config, time.Now())
	return err
}
