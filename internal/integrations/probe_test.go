package integrations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekkle/ekkle-admin/internal/db/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestClassify(t *testing.T) {
	tests := []struct {
		code    int
		status  models.HealthStatus
		message string
	}{
		{200, models.StatusHealthy, ""},
		{204, models.StatusHealthy, ""},
		{301, models.StatusDegraded, "HTTP 301"},
		{401, models.StatusDegraded, "HTTP 401"},
		{503, models.StatusDegraded, "HTTP 503"},
	}
	for _, tt := range tests {
		got := Classify(tt.code)
		assert.Equal(t, tt.status, got.Status, "code %d", tt.code)
		assert.Equal(t, tt.message, got.Message, "code %d", tt.code)
		assert.Equal(t, tt.code, got.HTTPStatus)
	}
}

func TestHTTPProbe_AuthHeaders(t *testing.T) {
	tests := []struct {
		name  string
		probe HTTPProbe
		creds Credentials
		check func(t *testing.T, r *http.Request)
	}{
		{
			name:  "stripe bearer",
			probe: HTTPProbe{Name: Stripe, Path: "/v1/balance", Auth: AuthBearer},
			creds: Credentials{APIKey: "sk_test_1"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "/v1/balance", r.URL.Path)
				assert.Equal(t, "Bearer sk_test_1", r.Header.Get("Authorization"))
			},
		},
		{
			name:  "evolution apikey header",
			probe: HTTPProbe{Name: Evolution, Path: "/instance/fetchInstances", Auth: AuthAPIKeyHeader},
			creds: Credentials{APIKey: "evo"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "evo", r.Header.Get("apikey"))
				assert.Empty(t, r.Header.Get("Authorization"))
			},
		},
		{
			name:  "mux basic id and secret",
			probe: HTTPProbe{Name: Mux, Path: "/video/v1/assets", Auth: AuthBasicKeySecret, NeedsSecret: true},
			creds: Credentials{APIKey: "token-id", Secret: "token-secret"},
			check: func(t *testing.T, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				require.True(t, ok)
				assert.Equal(t, "token-id", user)
				assert.Equal(t, "token-secret", pass)
			},
		},
		{
			name:  "pagarme basic key only",
			probe: HTTPProbe{Name: Pagarme, Path: "/core/v5/balance", Auth: AuthBasicKeyOnly},
			creds: Credentials{APIKey: "sk_pagarme"},
			check: func(t *testing.T, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				require.True(t, ok)
				assert.Equal(t, "sk_pagarme", user)
				assert.Empty(t, pass)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *http.Request
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			tt.creds.BaseURL = srv.URL + "/"
			out, err := tt.probe.Probe(context.Background(), srv.Client(), tt.creds)
			require.NoError(t, err)
			assert.Equal(t, models.StatusHealthy, out.Status)
			require.NotNil(t, seen)
			assert.Equal(t, http.MethodGet, seen.Method)
			tt.check(t, seen)
		})
	}
}

func TestHTTPProbe_Non2xxIsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := HTTPProbe{Name: Resend, Path: "/domains", Auth: AuthBearer}
	out, err := p.Probe(context.Background(), srv.Client(), Credentials{BaseURL: srv.URL, APIKey: "re_1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDegraded, out.Status)
	assert.Equal(t, "HTTP 500", out.Message)
}

func TestHTTPProbe_TransportError(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	client := roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, boom })

	p := HTTPProbe{Name: OpenAI, DefaultBase: "https://api.openai.com", Path: "/v1/models", Auth: AuthBearer}
	_, err := p.Probe(context.Background(), client, Credentials{APIKey: "sk"})
	assert.ErrorIs(t, err, boom)
}

func TestHTTPProbe_NotConfigured(t *testing.T) {
	called := false
	client := roundTripFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unexpected call")
	})

	tests := []struct {
		name  string
		probe HTTPProbe
		creds Credentials
	}{
		{"missing key", HTTPProbe{Name: Stripe, DefaultBase: "https://api.stripe.com"}, Credentials{}},
		{"missing base", HTTPProbe{Name: Evolution}, Credentials{APIKey: "k"}},
		{"missing secret", HTTPProbe{Name: Mux, DefaultBase: "https://api.mux.com", NeedsSecret: true}, Credentials{APIKey: "id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.probe.Probe(context.Background(), client, tt.creds)
			assert.ErrorIs(t, err, ErrNotConfigured)
			assert.Equal(t, tt.probe.Name+" not configured", err.Error())
		})
	}
	assert.False(t, called)
}

func TestStaticProbe(t *testing.T) {
	out, err := StaticProbe{Status: models.StatusHealthy}.Probe(context.Background(), nil, Credentials{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusHealthy, out.Status)
}
