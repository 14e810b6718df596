// Package admin is the single choke point for super-admin operations: it checks the
// caller's role, records every privileged mutation in the append-only audit log, and
// owns feature flags, key/value settings and system alerts.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/db/models"
)

var (
	// ErrUnauthenticated means there is no session or the session's profile no longer exists.
	ErrUnauthenticated = errors.New("admin: not authenticated")
	// ErrForbidden means the caller is authenticated but is not a super admin.
	ErrForbidden = errors.New("admin: super admin role required")
)

// SystemActorID is recorded as the admin for actions no person initiated,
// such as scheduled integration checks.
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// ProfileReader loads user profiles.
type ProfileReader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Actor identifies the caller of a mutating operation.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// RequireSuperAdmin returns the caller's profile when userID belongs to a super admin.
// Lookup failures other than "not found" are returned wrapped, so callers can tell
// an authorization failure from an unavailable database.
func RequireSuperAdmin(ctx context.Context, profiles ProfileReader, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	profile, err := profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrUnauthenticated
	}
	if !profile.IsSuperAdmin() {
		return nil, ErrForbidden
	}
	return profile, nil
}

// IsAuthError reports whether err is one of the authorization sentinels.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden)
}
