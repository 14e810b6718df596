// Package models - system_alert.go defines SystemAlert, an anomaly raised by any part of the
// platform for the operators, and the per-type tally shown on the admin dashboard.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// AlertType is the severity of a system alert.
type AlertType string

const (
	AlertCritical AlertType = "critical"
	AlertWarning  AlertType = "warning"
	AlertInfo     AlertType = "info"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertCritical, AlertWarning, AlertInfo:
		return true
	}
	return false
}

// SystemAlert represents a row of system_alerts
type SystemAlert struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Type        AlertType      `db:"type" json:"type"`
	Category    string         `db:"category" json:"category"`
	Title       string         `db:"title" json:"title"`
	Description *string        `db:"description" json:"description,omitempty"`
	Metadata    types.JSONText `db:"metadata" json:"metadata"`
	Resolved    bool           `db:"resolved" json:"resolved"`
	ResolvedAt  *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy  *uuid.UUID     `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// AlertCounts tallies unresolved alerts by type.
type AlertCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}
