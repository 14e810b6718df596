package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/telemetry"
)

// DefaultChurchName is the placeholder name a church is created with.
const DefaultChurchName = "Minha Igreja"

// MinActiveMembers is how many active members complete the members step.
const MinActiveMembers = 3

// ErrChurchNotFound is returned when detection runs for a church that does not exist.
var ErrChurchNotFound = errors.New("onboarding: church not found")

// TenantReader reads the tenant data the steps are derived from.
type TenantReader interface {
	GetChurch(ctx context.Context, id uuid.UUID) (*models.Church, error)
	CountCells(ctx context.Context, churchID uuid.UUID) (int, error)
	CountActiveMembers(ctx context.Context, churchID uuid.UUID) (int, error)
}

// StatusStore persists onboarding rows.
type StatusStore interface {
	GetByChurch(ctx context.Context, churchID uuid.UUID) (*models.OnboardingStatus, error)
	// Create reports false when the church already has a row.
	Create(ctx context.Context, s *models.OnboardingStatus) (bool, error)
	UpdateSteps(ctx context.Context, s *models.OnboardingStatus) error
}

// Tracker detects onboarding progress from tenant data.
type Tracker struct {
	tenants     TenantReader
	store       StatusStore
	defaultName string
	now         func() time.Time
}

// NewTracker creates a Tracker. An empty defaultName means DefaultChurchName.
func NewTracker(tenants TenantReader, store StatusStore, defaultName string) *Tracker {
	if strings.TrimSpace(defaultName) == "" {
		defaultName = DefaultChurchName
	}
	return &Tracker{
		tenants:     tenants,
		store:       store,
		defaultName: strings.TrimSpace(defaultName),
		now:         time.Now,
	}
}

// Report is the onboarding state shown to the pastor.
type Report struct {
	Status      *models.OnboardingStatus `json:"status"`
	Steps       Steps                    `json:"steps"`
	Progress    int                      `json:"progress"`
	CurrentStep int                      `json:"current_step"`
	NextStep    string                   `json:"next_step_message"`
}

// NewReport derives the progress fields of status, which may be nil.
func NewReport(status *models.OnboardingStatus) Report {
	steps := StepsOf(status)
	return Report{
		Status:      status,
		Steps:       steps,
		Progress:    Progress(steps),
		CurrentStep: CurrentStep(steps),
		NextStep:    NextStepMessage(steps),
	}
}

// Status returns the stored onboarding row of a church, or nil when detection
// has never run for it.
func (t *Tracker) Status(ctx context.Context, churchID uuid.UUID) (*models.OnboardingStatus, error) {
	status, err := t.store.GetByChurch(ctx, churchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding status: %w", err)
	}
	return status, nil
}

// Detect re-reads the church's data, ratchets newly completed steps into its
// onboarding row and stamps completion the first time all four are done. The row
// is created on the first run. Steps already recorded as complete stay complete.
func (t *Tracker) Detect(ctx context.Context, churchID uuid.UUID, pastorID *uuid.UUID) (*models.OnboardingStatus, error) {
	detected, err := t.detect(ctx, churchID)
	if err != nil {
		return nil, err
	}

	status, err := t.store.GetByChurch(ctx, churchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding status: %w", err)
	}

	if status == nil {
		status = &models.OnboardingStatus{ChurchID: churchID, PastorID: pastorID}
		completed := t.apply(status, detected)
		created, err := t.store.Create(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to create onboarding status: %w", err)
		}
		if created {
			if completed {
				telemetry.OnboardingCompletionsTotal.Inc()
			}
			t.logProgress(status, Steps{})
			return status, nil
		}

		// Another detection inserted the row first; merge into it instead.
		status, err = t.store.GetByChurch(ctx, churchID)
		if err != nil {
			return nil, fmt.Errorf("failed to load onboarding status: %w", err)
		}
		if status == nil {
			return nil, fmt.Errorf("onboarding status for church %s missing after insert conflict", churchID)
		}
	}

	before := StepsOf(status)
	wasCompleted := status.CompletedAt != nil
	completed := t.apply(status, detected)
	if StepsOf(status) == before && (status.CompletedAt != nil) == wasCompleted {
		return status, nil
	}

	if err := t.store.UpdateSteps(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to update onboarding status: %w", err)
	}
	if completed {
		telemetry.OnboardingCompletionsTotal.Inc()
	}
	t.logProgress(status, before)
	return status, nil
}

// apply ORs detected into status and stamps completed_at once. It reports
// whether this call stamped it.
func (t *Tracker) apply(status *models.OnboardingStatus, detected Steps) bool {
	steps := StepsOf(status).Or(detected)
	status.StepChurchName = steps.ChurchName
	status.StepFirstCell = steps.FirstCell
	status.StepMembersAdded = steps.MembersAdded
	status.StepSiteConfigured = steps.SiteConfigured

	if !steps.Done() || status.CompletedAt != nil {
		return false
	}
	now := t.now().UTC()
	status.Completed = true
	status.CompletedAt = &now
	return true
}

func (t *Tracker) detect(ctx context.Context, churchID uuid.UUID) (Steps, error) {
	church, err := t.tenants.GetChurch(ctx, churchID)
	if err != nil {
		return Steps{}, fmt.Errorf("failed to load church: %w", err)
	}
	if church == nil {
		return Steps{}, ErrChurchNotFound
	}

	cells, err := t.tenants.CountCells(ctx, churchID)
	if err != nil {
		return Steps{}, fmt.Errorf("failed to count cells: %w", err)
	}
	members, err := t.tenants.CountActiveMembers(ctx, churchID)
	if err != nil {
		return Steps{}, fmt.Errorf("failed to count members: %w", err)
	}

	name := strings.TrimSpace(church.Name)
	return Steps{
		ChurchName:     name != "" && name != t.defaultName,
		FirstCell:      cells >= 1,
		MembersAdded:   members >= MinActiveMembers,
		SiteConfigured: church.Slug != nil && strings.TrimSpace(*church.Slug) != "",
	}, nil
}

func (t *Tracker) logProgress(status *models.OnboardingStatus, before Steps) {
	after := StepsOf(status)
	slog.Info("onboarding progress",
		"church_id", status.ChurchID,
		"progress", Progress(after),
		"previous_progress", Progress(before),
		"completed", status.Completed,
	)
}
