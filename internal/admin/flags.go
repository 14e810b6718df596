package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/telemetry"
)

// ErrInvalidFlag is returned for flag input that fails validation.
var ErrInvalidFlag = errors.New("admin: invalid feature flag")

// Target is the audience a flag is evaluated for. Empty ids mean "not supplied".
type Target struct {
	ChurchID string
	PlanID   string
}

// EvaluateFlag applies the scope rules in fixed order: a missing or disabled flag
// is off, a global flag is on for everyone, and church/plan flags are on only for
// a supplied id present in the flag's list.
func EvaluateFlag(flag *models.FeatureFlag, t Target) bool {
	if flag == nil || !flag.Enabled {
		return false
	}
	switch flag.Scope {
	case models.FlagScopeGlobal:
		return true
	case models.FlagScopeChurch:
		return t.ChurchID != "" && slices.Contains(flag.ChurchIDs, t.ChurchID)
	case models.FlagScopePlan:
		return t.PlanID != "" && slices.Contains(flag.PlanIDs, t.PlanID)
	}
	return false
}

// IsFeatureFlagEnabled loads name (cache first when configured) and evaluates it.
// Lookup failures evaluate to false.
func (s *Service) IsFeatureFlagEnabled(ctx context.Context, name string, t Target) bool {
	flag, err := s.lookupFlag(ctx, name)
	if err != nil {
		telemetry.FlagEvaluationsTotal.WithLabelValues("error").Inc()
		slog.Warn("feature flag lookup failed", "flag", name, "error", err)
		return false
	}
	return EvaluateFlag(flag, t)
}

func (s *Service) lookupFlag(ctx context.Context, name string) (*models.FeatureFlag, error) {
	if s.cache != nil {
		flag, found, err := s.cache.Get(ctx, name)
		switch {
		case err != nil:
			slog.Debug("feature flag cache unavailable", "flag", name, "error", err)
		case found:
			telemetry.FlagEvaluationsTotal.WithLabelValues("cache").Inc()
			return flag, nil
		}
	}

	flag, err := s.flags.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	telemetry.FlagEvaluationsTotal.WithLabelValues("db").Inc()

	if s.cache != nil && flag != nil {
		if err := s.cache.Set(ctx, flag); err != nil {
			slog.Debug("failed to cache feature flag", "flag", name, "error", err)
		}
	}
	return flag, nil
}

// GetFeatureFlag returns the stored flag or nil.
func (s *Service) GetFeatureFlag(ctx context.Context, name string) (*models.FeatureFlag, error) {
	return s.flags.GetByName(ctx, name)
}

// ListFeatureFlags returns every flag ordered by name.
func (s *Service) ListFeatureFlags(ctx context.Context) ([]*models.FeatureFlag, error) {
	return s.flags.List(ctx)
}

// FlagInput is the writable part of a feature flag.
type FlagInput struct {
	Name        string
	Description *string
	Enabled     bool
	Scope       models.FlagScope
	ChurchIDs   []string
	PlanIDs     []string
}

func (in FlagInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFlag)
	}
	if !in.Scope.Valid() {
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidFlag, in.Scope)
	}
	return nil
}

// UpsertFeatureFlag re-authenticates, reads the prior flag, writes the new one and
// records feature_flag.create or feature_flag.update. On success the stored flag
// is returned alongside the result.
func (s *Service) UpsertFeatureFlag(ctx context.Context, actor Actor, in FlagInput, reason string) (*models.FeatureFlag, Result) {
	admin, err := s.RequireSuperAdmin(ctx, actor.UserID)
	if err != nil {
		return nil, authResult(err)
	}
	if err := in.validate(); err != nil {
		return nil, failed(ResultInvalid, err)
	}

	prior, err := s.flags.GetByName(ctx, in.Name)
	if err != nil {
		slog.Error("failed to read feature flag", "flag", in.Name, "error", err)
		return nil, failed(ResultPersistenceError, err)
	}

	flag := &models.FeatureFlag{
		Name:        in.Name,
		Description: in.Description,
		Enabled:     in.Enabled,
		Scope:       in.Scope,
		ChurchIDs:   in.ChurchIDs,
		PlanIDs:     in.PlanIDs,
	}
	if err := s.flags.Upsert(ctx, flag); err != nil {
		slog.Error("failed to save feature flag", "flag", in.Name, "error", err)
		return nil, failed(ResultPersistenceError, err)
	}
	s.invalidateFlag(ctx, in.Name)

	action := models.ActionFeatureFlagUpdate
	if prior == nil {
		action = models.ActionFeatureFlagCreate
	}
	auditID := s.record(ctx, admin, actor, action, models.TargetFeatureFlag, flag.Name, snapshot(prior), snapshot(flag), reason)
	return flag, ok(auditID)
}

// DeleteFeatureFlag re-authenticates, removes name and records feature_flag.delete.
func (s *Service) DeleteFeatureFlag(ctx context.Context, actor Actor, name, reason string) Result {
	admin, err := s.RequireSuperAdmin(ctx, actor.UserID)
	if err != nil {
		return authResult(err)
	}

	prior, err := s.flags.GetByName(ctx, name)
	if err != nil {
		return failed(ResultPersistenceError, err)
	}
	if prior == nil {
		return failed(ResultNotFound, fmt.Errorf("feature flag %q not found", name))
	}

	deleted, err := s.flags.Delete(ctx, name)
	if err != nil {
		slog.Error("failed to delete feature flag", "flag", name, "error", err)
		return failed(ResultPersistenceError, err)
	}
	if !deleted {
		return failed(ResultNotFound, fmt.Errorf("feature flag %q not found", name))
	}
	s.invalidateFlag(ctx, name)

	return ok(s.record(ctx, admin, actor, models.ActionFeatureFlagDelete, models.TargetFeatureFlag, name, snapshot(prior), nil, reason))
}

func (s *Service) invalidateFlag(ctx context.Context, name string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, name); err != nil {
		slog.Warn("failed to invalidate cached feature flag", "flag", name, "error", err)
	}
}
