// Package integrations actively probes the third-party platforms the church
// application depends on (payments, email, AI, WhatsApp, video) and records a coarse
// health status per provider.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ekkle/ekkle-admin/internal/db/models"
)

var (
	// ErrUnknownIntegration is returned for a name with no registered probe.
	ErrUnknownIntegration = errors.New("unknown integration")
	// ErrNotConfigured is wrapped when a provider lacks its key or base URL.
	ErrNotConfigured = errors.New("not configured")
)

// Doer executes HTTP requests. *http.Client satisfies it; tests substitute fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials are what a probe needs to reach its provider.
type Credentials struct {
	BaseURL string
	APIKey  string
	Secret  string
}

// Outcome is a completed probe. A probe that could not complete returns an error instead.
type Outcome struct {
	Status     models.HealthStatus
	HTTPStatus int
	Message    string
}

// Prober checks one provider.
type Prober interface {
	Probe(ctx context.Context, client Doer, creds Credentials) (Outcome, error)
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc func(ctx context.Context, client Doer, creds Credentials) (Outcome, error)

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context, client Doer, creds Credentials) (Outcome, error) {
	return f(ctx, client, creds)
}

// Classify maps a completed response code: 2xx is healthy, anything else degraded.
func Classify(code int) Outcome {
	if code >= 200 && code < 300 {
		return Outcome{Status: models.StatusHealthy, HTTPStatus: code}
	}
	return Outcome{Status: models.StatusDegraded, HTTPStatus: code, Message: fmt.Sprintf("HTTP %d", code)}
}

// AuthStyle is how a provider expects its credentials on the probe request.
type AuthStyle int

const (
	// AuthBearer sends "Authorization: Bearer <key>".
	AuthBearer AuthStyle = iota
	// AuthBasicKeySecret sends basic auth with key as user and secret as password.
	AuthBasicKeySecret
	// AuthBasicKeyOnly sends basic auth with key as user and an empty password.
	AuthBasicKeyOnly
	// AuthAPIKeyHeader sends "apikey: <key>".
	AuthAPIKeyHeader
)

// HTTPProbe issues one authenticated GET against a cheap read-only endpoint.
type HTTPProbe struct {
	Name        string
	DefaultBase string
	Path        string
	Auth        AuthStyle
	// NeedsSecret marks providers whose basic auth requires both halves.
	NeedsSecret bool
}

// Probe implements Prober.
func (p HTTPProbe) Probe(ctx context.Context, client Doer, creds Credentials) (Outcome, error) {
	base := creds.BaseURL
	if base == "" {
		base = p.DefaultBase
	}
	if base == "" || creds.APIKey == "" || (p.NeedsSecret && creds.Secret == "") {
		return Outcome{}, fmt.Errorf("%s %w", p.Name, ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+p.Path, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build %s probe: %w", p.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ekkle-admin-healthcheck")

	switch p.Auth {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	case AuthBasicKeySecret:
		req.SetBasicAuth(creds.APIKey, creds.Secret)
	case AuthBasicKeyOnly:
		req.SetBasicAuth(creds.APIKey, "")
	case AuthAPIKeyHeader:
		req.Header.Set("apikey", creds.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()
	// Drain a bounded amount so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return Classify(resp.StatusCode), nil
}

// StaticProbe reports a fixed status without any network call.
type StaticProbe struct {
	Status models.HealthStatus
}

// Probe implements Prober.
func (p StaticProbe) Probe(context.Context, Doer, Credentials) (Outcome, error) {
	return Outcome{Status: p.Status}, nil
}
