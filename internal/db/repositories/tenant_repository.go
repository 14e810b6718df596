// tenant_repository.go implements TenantRepository, read-only access to the church
// application's tables (churches, cells, profiles).
package repositories

import (
	"context"
	"database/sql"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TenantRepository reads tenant data. It never writes.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetChurch returns the church, or nil when it does not exist.
func (r *TenantRepository) GetChurch(ctx context.Context, id uuid.UUID) (*models.Church, error) {
	var church models.Church
	err := r.db.GetContext(ctx, &church,
		`SELECT id, name, slug, plan_id, created_at FROM churches WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &church, nil
}

// CountCells returns the number of cells belonging to the church.
func (r *TenantRepository) CountCells(ctx context.Context, churchID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM cells WHERE church_id = $1`, churchID)
	return n, err
}

// CountActiveMembers returns the number of active profiles belonging to the church.
func (r *TenantRepository) CountActiveMembers(ctx context.Context, churchID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM profiles WHERE church_id = $1 AND is_active = true`, churchID)
	return n, err
}

// GetProfile returns the profile, or nil when it does not exist.
func (r *TenantRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile,
		`SELECT id, church_id, full_name, email, role, is_active, created_at FROM profiles WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
