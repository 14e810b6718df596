package integrations

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ekkle/ekkle-admin/internal/db/models"
)

// Provider names.
const (
	Stripe    = "stripe"
	Resend    = "resend"
	OpenAI    = "openai"
	Evolution = "evolution"
	Mux       = "mux"
	Pagarme   = "pagarme"
	LiveKit   = "livekit"
)

// Registry maps provider names to probes.
type Registry struct {
	mu     sync.RWMutex
	probes map[string]Prober
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{probes: make(map[string]Prober)}
}

// Register adds or replaces the probe for name.
func (r *Registry) Register(name string, p Prober) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[name] = p
}

// Get returns the probe for name.
func (r *Registry) Get(name string) (Prober, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, found := r.probes[name]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegration, name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.probes))
	for n := range r.probes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the built-in probes.
//
// LiveKit has no cheap authenticated read endpoint, so it always reports healthy.
// Evolution is self-hosted and has no default base URL.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Stripe, HTTPProbe{Name: Stripe, DefaultBase: "https://api.stripe.com", Path: "/v1/balance", Auth: AuthBearer})
	r.Register(Resend, HTTPProbe{Name: Resend, DefaultBase: "https://api.resend.com", Path: "/domains", Auth: AuthBearer})
	r.Register(OpenAI, HTTPProbe{Name: OpenAI, DefaultBase: "https://api.openai.com", Path: "/v1/models", Auth: AuthBearer})
	r.Register(Evolution, HTTPProbe{Name: Evolution, Path: "/instance/fetchInstances", Auth: AuthAPIKeyHeader})
	r.Register(Mux, HTTPProbe{Name: Mux, DefaultBase: "https://api.mux.com", Path: "/video/v1/assets", Auth: AuthBasicKeySecret, NeedsSecret: true})
	r.Register(Pagarme, HTTPProbe{Name: Pagarme, DefaultBase: "https://api.pagar.me", Path: "/core/v5/balance", Auth: AuthBasicKeyOnly})
	r.Register(LiveKit, StaticProbe{Status: models.StatusHealthy})
	return r
}
