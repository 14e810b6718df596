package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// AdminSetting is a platform-wide key with an arbitrary JSON value.
type AdminSetting struct {
	Key       string         `db:"key" json:"key"`
	Value     types.JSONText `db:"value" json:"value"`
	UpdatedBy *uuid.UUID     `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
