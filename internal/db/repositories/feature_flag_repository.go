// feature_flag_repository.go implements FeatureFlagRepository for reading and upserting
// feature flags by name.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// FeatureFlagRepository handles feature_flags
type FeatureFlagRepository struct {
	db *sqlx.DB
}

// NewFeatureFlagRepository creates a new FeatureFlagRepository
func NewFeatureFlagRepository(db *sqlx.DB) *FeatureFlagRepository {
	return &FeatureFlagRepository{db: db}
}

const flagColumns = `id, name, description, enabled, scope, church_ids, plan_ids, created_at, updated_at`

// GetByName returns the flag, or nil when no flag has that name.
func (r *FeatureFlagRepository) GetByName(ctx context.Context, name string) (*models.FeatureFlag, error) {
	var flag models.FeatureFlag
	err := r.db.GetContext(ctx, &flag, `SELECT `+flagColumns+` FROM feature_flags WHERE name = $1`, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &flag, nil
}

// List returns every flag ordered by name.
func (r *FeatureFlagRepository) List(ctx context.Context) ([]*models.FeatureFlag, error) {
	flags := make([]*models.FeatureFlag, 0)
	err := r.db.SelectContext(ctx, &flags, `SELECT `+flagColumns+` FROM feature_flags ORDER BY name`)
	return flags, err
}

// Upsert inserts or replaces the flag keyed by name and refreshes flag's ID and timestamps
// from the stored row.
func (r *FeatureFlagRepository) Upsert(ctx context.Context, flag *models.FeatureFlag) error {
	if flag.ID == uuid.Nil {
		flag.ID = uuid.New()
	}
	if flag.ChurchIDs == nil {
		flag.ChurchIDs = []string{}
	}
	if flag.PlanIDs == nil {
		flag.PlanIDs = []string{}
	}
	now := time.Now()

	query := `
		INSERT INTO feature_flags (id, name, description, enabled, scope, church_ids, plan_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			scope = EXCLUDED.scope,
			church_ids = EXCLUDED.church_ids,
			plan_ids = EXCLUDED.plan_ids,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		flag.ID, flag.Name, flag.Description, flag.Enabled, string(flag.Scope),
		flag.ChurchIDs, flag.PlanIDs, now,
	).Scan(&flag.ID, &flag.CreatedAt, &flag.UpdatedAt)
}

// Delete removes the flag and reports whether a row existed.
func (r *FeatureFlagRepository) Delete(ctx context.Context, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feature_flags WHERE name = $1`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
