// Package middleware provides Gin HTTP middleware for authentication, authorization,
// rate limiting, security headers, metrics and request logging.
//
// Ordering is enforced in router.go:
//
//	Recovery → Sentry → RequestID → Metrics → Logger → Security/CORS → RateLimit → Auth → SuperAdmin → Handler
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/auth"
	"github.com/ekkle/ekkle-admin/internal/db/models"
)

// Context keys set by the auth middleware.
const (
	UserIDKey  = "user_id"
	ClaimsKey  = "claims"
	ProfileKey = "profile"
)

// TokenValidator verifies a bearer token. *auth.Verifier satisfies it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// AuthMiddleware requires a valid bearer session token and stores the caller's
// user id in the context. It does not authorize; see RequireSuperAdmin.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with 'Bearer '"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is empty"})
			return
		}

		claims, err := validator.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireSuperAdmin loads the caller's profile and rejects anyone who is not a
// super admin: 401 for an unknown profile, 403 for another role, 500 when the
// profile cannot be read.
func RequireSuperAdmin(profiles admin.ProfileReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := admin.RequireSuperAdmin(c.Request.Context(), profiles, c.GetString(UserIDKey))
		switch {
		case errors.Is(err, admin.ErrUnauthenticated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		case errors.Is(err, admin.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Super admin role required"})
			return
		case err != nil:
			slog.Error("failed to authorize admin request", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
			return
		}

		setProfile(c, profile)
		c.Next()
	}
}

// RequireChurchAccess allows members of the church named by the param route
// parameter, and super admins.
func RequireChurchAccess(profiles admin.ProfileReader, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetString(UserIDKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		profile, err := profiles.GetProfile(c.Request.Context(), id)
		if err != nil {
			slog.Error("failed to load profile", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
			return
		}
		if profile == nil || !profile.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		if !profile.IsSuperAdmin() {
			churchID, err := uuid.Parse(c.Param(param))
			if err != nil || profile.ChurchID == nil || *profile.ChurchID != churchID {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access to this church is not allowed"})
				return
			}
		}

		setProfile(c, profile)
		c.Next()
	}
}

func setProfile(c *gin.Context, profile *models.Profile) {
	c.Set(ProfileKey, profile)
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.Scope().SetUser(sentry.User{ID: profile.ID.String(), Email: profile.Email})
	}
}

// GetProfile returns the profile stored by RequireSuperAdmin or RequireChurchAccess.
func GetProfile(c *gin.Context) *models.Profile {
	v, ok := c.Get(ProfileKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Profile)
	return p
}

// Actor describes the caller for audit purposes.
func Actor(c *gin.Context) admin.Actor {
	return admin.Actor{
		UserID:    c.GetString(UserIDKey),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
