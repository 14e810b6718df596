package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ekkle/ekkle-admin/internal/db/models"
)

// ErrInvalidSetting is returned for an empty key or a value that is not JSON.
var ErrInvalidSetting = errors.New("admin: invalid setting")

// GetSetting returns the stored setting or nil.
func (s *Service) GetSetting(ctx context.Context, key string) (*models.AdminSetting, error) {
	return s.settings.Get(ctx, key)
}

// ListSettings returns every setting ordered by key.
func (s *Service) ListSettings(ctx context.Context) ([]*models.AdminSetting, error) {
	return s.settings.List(ctx)
}

// UpdateAdminSetting re-authenticates, reads the prior value, upserts value and
// records setting.update with both values. Unauthorized callers and storage
// failures are distinguished in the returned Result.
func (s *Service) UpdateAdminSetting(ctx context.Context, actor Actor, key string, value json.RawMessage, reason string) Result {
	admin, err := s.RequireSuperAdmin(ctx, actor.UserID)
	if err != nil {
		return authResult(err)
	}
	if strings.TrimSpace(key) == "" {
		return failed(ResultInvalid, fmt.Errorf("%w: key is required", ErrInvalidSetting))
	}
	if !json.Valid(value) {
		return failed(ResultInvalid, fmt.Errorf("%w: value must be JSON", ErrInvalidSetting))
	}

	prior, err := s.settings.Get(ctx, key)
	if err != nil {
		slog.Error("failed to read admin setting", "key", key, "error", err)
		return failed(ResultPersistenceError, err)
	}

	if err := s.settings.Upsert(ctx, key, value, admin.ID); err != nil {
		slog.Error("failed to update admin setting", "key", key, "error", err)
		return failed(ResultPersistenceError, err)
	}

	var oldValue map[string]interface{}
	if prior != nil {
		oldValue = valueSnapshot(prior.Value)
	}
	auditID := s.record(ctx, admin, actor, models.ActionSettingUpdate, models.TargetSetting, key, oldValue, valueSnapshot(value), reason)
	return ok(auditID)
}

func valueSnapshot(raw []byte) map[string]interface{} {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return map[string]interface{}{"value": v}
}
