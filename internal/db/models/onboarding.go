// Package models - onboarding.go defines OnboardingStatus, the per-church record of which
// setup milestones the WhatsApp onboarding agent has observed.
package models

import (
	"time"

	"github.com/google/uuid"
)

// OnboardingStatus represents a row of whatsapp_agent_onboarding
type OnboardingStatus struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	ChurchID           uuid.UUID  `db:"church_id" json:"church_id"`
	PastorID           *uuid.UUID `db:"pastor_id" json:"pastor_id,omitempty"`
	StepChurchName     bool       `db:"step_church_name_completed" json:"step_church_name_completed"`
	StepFirstCell      bool       `db:"step_first_cell_completed" json:"step_first_cell_completed"`
	StepMembersAdded   bool       `db:"step_members_added_completed" json:"step_members_added_completed"`
	StepSiteConfigured bool       `db:"step_site_configured_completed" json:"step_site_configured_completed"`
	Completed          bool       `db:"completed" json:"completed"`
	CompletedAt        *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}
