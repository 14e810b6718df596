// Package auth verifies the session tokens the church application issues. Tokens
// are HS256 JWTs whose subject is the user's profile id; authorization (the
// super admin check) happens later against the profiles table, never from claims.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSecret is returned outside dev mode when no secret is configured.
	ErrMissingSecret = errors.New("auth.jwt_secret (EKKLE_AUTH_JWT_SECRET or SUPABASE_JWT_SECRET) is required. " +
		"Generate a secure secret with: openssl rand -hex 32")
	// ErrInvalidToken covers every token that fails parsing or verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims represents the JWT claims structure
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID is the profile id carried in the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// Verifier signs and validates tokens with a shared secret.
type Verifier struct {
	secret []byte
}

// generateRandomSecret creates a cryptographically secure random secret
func generateRandomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewVerifier builds a Verifier. An empty secret is an error unless devMode is
// set, in which case a random one is generated and sessions do not survive restarts.
func NewVerifier(secret string, devMode bool) (*Verifier, error) {
	if secret == "" {
		if !devMode {
			return nil, ErrMissingSecret
		}
		generated, err := generateRandomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate dev secret: %w", err)
		}
		slog.Warn("jwt secret not set, using an auto-generated secret for development")
		secret = generated
	} else if len(secret) < 32 {
		slog.Warn("jwt secret is shorter than the recommended 32 characters")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Generate creates a token for userID. The server never issues sessions; this
// exists for the CLI and tests.
func (v *Verifier) Generate(userID, email string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = time.Hour
	}
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "ekkle-admin",
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Validate parses tokenString and verifies signature, expiry and subject.
func (v *Verifier) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
