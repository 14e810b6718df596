// Package models - feature_flag.go defines FeatureFlag, a named switch whose audience is
// everyone, a list of churches, or a list of subscription plans.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// FlagScope is the audience a feature flag applies to.
type FlagScope string

const (
	FlagScopeGlobal FlagScope = "global"
	FlagScopeChurch FlagScope = "church"
	FlagScopePlan   FlagScope = "plan"
)

// Valid reports whether s is a known scope.
func (s FlagScope) Valid() bool {
	switch s {
	case FlagScopeGlobal, FlagScopeChurch, FlagScopePlan:
		return true
	}
	return false
}

// FeatureFlag represents a row of feature_flags
type FeatureFlag struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description *string        `db:"description" json:"description,omitempty"`
	Enabled     bool           `db:"enabled" json:"enabled"`
	Scope       FlagScope      `db:"scope" json:"scope"`
	ChurchIDs   pq.StringArray `db:"church_ids" json:"church_ids"`
	PlanIDs     pq.StringArray `db:"plan_ids" json:"plan_ids"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
