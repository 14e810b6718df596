package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// OnboardingRepository handles whatsapp_agent_onboarding
type OnboardingRepository struct {
	db *sqlx.DB
}

// NewOnboardingRepository creates a new OnboardingRepository
func NewOnboardingRepository(db *sqlx.DB) *OnboardingRepository {
	return &OnboardingRepository{db: db}
}

const onboardingColumns = `id, church_id, pastor_id,
	step_church_name_completed, step_first_cell_completed,
	step_members_added_completed, step_site_configured_completed,
	completed, completed_at, created_at, updated_at`

// GetByChurch returns the church's onboarding row, or nil when none exists yet.
func (r *OnboardingRepository) GetByChurch(ctx context.Context, churchID uuid.UUID) (*models.OnboardingStatus, error) {
	var status models.OnboardingStatus
	err := r.db.GetContext(ctx, &status,
		`SELECT `+onboardingColumns+` FROM whatsapp_agent_onboarding WHERE church_id = $1`, churchID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Create inserts a new row, assigning ID and timestamps. It reports false, and
// leaves nothing written, when the church already has a row.
func (r *OnboardingRepository) Create(ctx context.Context, s *models.OnboardingStatus) (bool, error) {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	query := `
		INSERT INTO whatsapp_agent_onboarding (` + onboardingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (church_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.ChurchID, s.PastorID,
		s.StepChurchName, s.StepFirstCell, s.StepMembersAdded, s.StepSiteConfigured,
		s.Completed, s.CompletedAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateSteps persists the step flags and completion stamp of an existing row.
func (r *OnboardingRepository) UpdateSteps(ctx context.Context, s *models.OnboardingStatus) error {
	s.UpdatedAt = time.Now()

	query := `
		UPDATE whatsapp_agent_onboarding SET
			step_church_name_completed = $2,
			step_first_cell_completed = $3,
			step_members_added_completed = $4,
			step_site_configured_completed = $5,
			completed = $6,
			completed_at = $7,
			updated_at = $8
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.StepChurchName, s.StepFirstCell, s.StepMembersAdded, s.StepSiteConfigured,
		s.Completed, s.CompletedAt, s.UpdatedAt,
	)
	return err
}
