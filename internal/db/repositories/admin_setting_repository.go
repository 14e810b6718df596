package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AdminSettingRepository handles the admin_settings key/value table
type AdminSettingRepository struct {
	db *sqlx.DB
}

// NewAdminSettingRepository creates a new AdminSettingRepository
func NewAdminSettingRepository(db *sqlx.DB) *AdminSettingRepository {
	return &AdminSettingRepository{db: db}
}

// Get returns the setting, or nil when the key has never been written.
func (r *AdminSettingRepository) Get(ctx context.Context, key string) (*models.AdminSetting, error) {
	var setting models.AdminSetting
	err := r.db.GetContext(ctx, &setting,
		`SELECT key, value, updated_by, updated_at FROM admin_settings WHERE key = $1`, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// List returns every setting ordered by key.
func (r *AdminSettingRepository) List(ctx context.Context) ([]*models.AdminSetting, error) {
	settings := make([]*models.AdminSetting, 0)
	err := r.db.SelectContext(ctx, &settings,
		`SELECT key, value, updated_by, updated_at FROM admin_settings ORDER BY key`)
	return settings, err
}

// Upsert writes value (a JSON document) under key.
func (r *AdminSettingRepository) Upsert(ctx context.Context, key string, value []byte, updatedBy uuid.UUID) error {
	query := `
		INSERT INTO admin_settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, key, value, updatedBy, time.Now())
	return err
}
