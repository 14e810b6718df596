package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSuperAdmin(t *testing.T) {
	profiles := newFakeProfiles()

	tests := []struct {
		name    string
		userID  string
		wantErr error
	}{
		{"no session", "", ErrUnauthenticated},
		{"malformed id", "not-a-uuid", ErrUnauthenticated},
		{"unknown profile", uuid.NewString(), ErrUnauthenticated},
		{"tenant role", pastorID.String(), ErrForbidden},
		{"super admin", superAdminID.String(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := RequireSuperAdmin(context.Background(), profiles, tt.userID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, profile)
				assert.True(t, IsAuthError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, superAdminID, profile.ID)
		})
	}
}

func TestRequireSuperAdmin_LookupFailureIsNotAuthError(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.err = errStore

	_, err := RequireSuperAdmin(context.Background(), profiles, superAdminID.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errStore))
	assert.False(t, IsAuthError(err))
	assert.Equal(t, ResultPersistenceError, authResult(err).Kind)
}

func TestResultKind_String(t *testing.T) {
	assert.Equal(t, "ok", ResultOK.String())
	assert.Equal(t, "unauthorized", ResultUnauthorized.String())
	assert.Equal(t, "persistence_error", ResultPersistenceError.String())
	assert.Equal(t, "not_found", ResultNotFound.String())
	assert.Equal(t, "invalid", ResultInvalid.String())
	assert.Equal(t, "unknown", ResultKind(99).String())
}
