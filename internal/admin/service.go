package admin

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/db/repositories"
)

// FlagStore persists feature flags.
type FlagStore interface {
	GetByName(ctx context.Context, name string) (*models.FeatureFlag, error)
	List(ctx context.Context) ([]*models.FeatureFlag, error)
	Upsert(ctx context.Context, flag *models.FeatureFlag) error
	Delete(ctx context.Context, name string) (bool, error)
}

// SettingStore persists key/value settings.
type SettingStore interface {
	Get(ctx context.Context, key string) (*models.AdminSetting, error)
	List(ctx context.Context) ([]*models.AdminSetting, error)
	Upsert(ctx context.Context, key string, value []byte, updatedBy uuid.UUID) error
}

// AlertStore persists system alerts.
type AlertStore interface {
	Create(ctx context.Context, alert *models.SystemAlert) error
	List(ctx context.Context, filters repositories.AlertFilters, limit, offset int) ([]*models.SystemAlert, error)
	Resolve(ctx context.Context, id, resolvedBy uuid.UUID) (bool, error)
	CountUnresolvedByType(ctx context.Context) (models.AlertCounts, error)
}

// Deps wires a Service. Cache is optional.
type Deps struct {
	Profiles ProfileReader
	Recorder *Recorder
	Flags    FlagStore
	Cache    FlagCache
	Settings SettingStore
	Alerts   AlertStore
}

// Service implements the super-admin operations.
type Service struct {
	profiles ProfileReader
	recorder *Recorder
	flags    FlagStore
	cache    FlagCache
	settings SettingStore
	alerts   AlertStore
	validate *validator.Validate
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	return &Service{
		profiles: d.Profiles,
		recorder: d.Recorder,
		flags:    d.Flags,
		cache:    d.Cache,
		settings: d.Settings,
		alerts:   d.Alerts,
		validate: newEventValidator(),
	}
}

// Recorder returns the audit recorder shared by the service.
func (s *Service) Recorder() *Recorder { return s.recorder }

// RequireSuperAdmin checks that userID belongs to a super admin.
func (s *Service) RequireSuperAdmin(ctx context.Context, userID string) (*models.Profile, error) {
	return RequireSuperAdmin(ctx, s.profiles, userID)
}

func (s *Service) record(ctx context.Context, admin *models.Profile, actor Actor, action models.AuditAction, targetType, targetID string, oldValue, newValue map[string]interface{}, reason string) *uuid.UUID {
	return s.recorder.LogAdminAction(ctx, admin.ID, action, targetType, ActionOptions{
		TargetID:  targetID,
		OldValue:  oldValue,
		NewValue:  newValue,
		Reason:    reason,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
}

// snapshot converts a model into the map form stored in old_value / new_value.
func snapshot(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		// Scalars and arrays are wrapped so every snapshot is an object.
		var raw interface{}
		if json.Unmarshal(data, &raw) != nil {
			return nil
		}
		return map[string]interface{}{"value": raw}
	}
	return m
}
