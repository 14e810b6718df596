package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/db/repositories"
)

// ErrInvalidAlert is returned for alert input that fails validation.
var ErrInvalidAlert = errors.New("admin: invalid alert")

// AlertInput describes an anomaly raised by any collaborator.
type AlertInput struct {
	Type        models.AlertType       `validate:"required,oneof=critical warning info"`
	Category    string                 `validate:"required,max=64"`
	Title       string                 `validate:"required,max=255"`
	Description string                 `validate:"max=4000"`
	Metadata    map[string]interface{} `validate:"-"`
}

// CreateSystemAlert stores an unresolved alert. Repeated alerts are not deduplicated.
func (s *Service) CreateSystemAlert(ctx context.Context, in AlertInput) (*models.SystemAlert, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAlert, err)
	}

	alert := &models.SystemAlert{
		Type:        in.Type,
		Category:    in.Category,
		Title:       in.Title,
		Description: optional(in.Description),
	}
	if in.Metadata != nil {
		data, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidAlert, err)
		}
		alert.Metadata = data
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		slog.Error("failed to create system alert", "type", in.Type, "category", in.Category, "error", err)
		return nil, fmt.Errorf("failed to create system alert: %w", err)
	}
	slog.Info("system alert created", "id", alert.ID, "type", alert.Type, "category", alert.Category, "title", alert.Title)
	return alert, nil
}

// GetUnresolvedAlertsCount tallies unresolved alerts by type.
func (s *Service) GetUnresolvedAlertsCount(ctx context.Context) (models.AlertCounts, error) {
	counts, err := s.alerts.CountUnresolvedByType(ctx)
	if err != nil {
		return models.AlertCounts{}, fmt.Errorf("failed to count unresolved alerts: %w", err)
	}
	return counts, nil
}

// ListAlerts returns alerts newest first.
func (s *Service) ListAlerts(ctx context.Context, filters repositories.AlertFilters, limit, offset int) ([]*models.SystemAlert, error) {
	return s.alerts.List(ctx, filters, limit, offset)
}

// ResolveAlert re-authenticates, marks id resolved and records alert.resolve.
// Already-resolved and unknown alerts are NotFound.
func (s *Service) ResolveAlert(ctx context.Context, actor Actor, id uuid.UUID, reason string) Result {
	admin, err := s.RequireSuperAdmin(ctx, actor.UserID)
	if err != nil {
		return authResult(err)
	}

	resolved, err := s.alerts.Resolve(ctx, id, admin.ID)
	if err != nil {
		slog.Error("failed to resolve system alert", "id", id, "error", err)
		return failed(ResultPersistenceError, err)
	}
	if !resolved {
		return failed(ResultNotFound, fmt.Errorf("unresolved alert %s not found", id))
	}

	return ok(s.record(ctx, admin, actor, models.ActionAlertResolve, models.TargetAlert, id.String(),
		map[string]interface{}{"resolved": false}, map[string]interface{}{"resolved": true}, reason))
}
