// Package models - integration_status.go defines IntegrationStatus, the single overwritten
// row per third-party provider describing the outcome of its latest health check.
package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// HealthStatus is the coarse state of an external integration.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusDown     HealthStatus = "down"
	StatusUnknown  HealthStatus = "unknown"
)

// IntegrationStatus represents a row of integration_status
type IntegrationStatus struct {
	Name          string         `db:"name" json:"name"`
	Status        HealthStatus   `db:"status" json:"status"`
	LastCheckAt   *time.Time     `db:"last_check_at" json:"last_check_at,omitempty"`
	LastSuccessAt *time.Time     `db:"last_success_at" json:"last_success_at,omitempty"`
	ErrorMessage  *string        `db:"error_message" json:"error_message,omitempty"`
	Metrics       types.JSONText `db:"metrics" json:"metrics"`
	Config        types.JSONText `db:"config" json:"-"` // may hold encrypted credentials
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// IntegrationConfig is the decoded form of IntegrationStatus.Config. Secret fields
// are stored encrypted and never returned by the API.
type IntegrationConfig struct {
	BaseURL         string `json:"base_url,omitempty"`
	APIKeyEncrypted string `json:"api_key_encrypted,omitempty"`
	SecretEncrypted string `json:"secret_encrypted,omitempty"`
}
