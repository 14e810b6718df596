// Package models - tenant.go defines the read-only views of tenant tables owned by the
// church application: churches and member profiles.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleSuperAdmin is the platform operator role. Tenant roles (pastor, leader,
// member) never grant back-office access.
const RoleSuperAdmin = "super_admin"

// Church represents a tenant
type Church struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      *string   `db:"slug" json:"slug,omitempty"`
	PlanID    *string   `db:"plan_id" json:"plan_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Profile is a user profile; super admins have no church.
type Profile struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	ChurchID  *uuid.UUID `db:"church_id" json:"church_id,omitempty"`
	FullName  string     `db:"full_name" json:"full_name"`
	Email     string     `db:"email" json:"email"`
	Role      string     `db:"role" json:"role"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// IsSuperAdmin reports whether the profile carries the platform operator role.
func (p *Profile) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}
