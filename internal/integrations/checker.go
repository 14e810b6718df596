package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/crypto"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/db/repositories"
	"github.com/ekkle/ekkle-admin/internal/safego"
	"github.com/ekkle/ekkle-admin/internal/telemetry"
)

// DefaultTimeout bounds a single probe request.
const DefaultTimeout = 10 * time.Second

// StatusStore persists the latest outcome per provider.
type StatusStore interface {
	Get(ctx context.Context, name string) (*models.IntegrationStatus, error)
	List(ctx context.Context) ([]*models.IntegrationStatus, error)
	UpsertCheck(ctx context.Context, u repositories.CheckUpdate) error
	SetConfig(ctx context.Context, name string, config []byte) error
}

// Auditor records checks and config changes in the admin audit trail.
type Auditor interface {
	Record(ctx context.Context, ev admin.Event) (uuid.UUID, bool)
}

// Alerter raises a system alert when a provider starts failing.
type Alerter interface {
	CreateSystemAlert(ctx context.Context, in admin.AlertInput) (*models.SystemAlert, error)
}

// CheckResult is what a single check reports back to the caller.
type CheckResult struct {
	Name      string              `json:"name"`
	Status    models.HealthStatus `json:"status"`
	LatencyMS int64               `json:"latency_ms"`
	Error     string              `json:"error,omitempty"`
	CheckedAt time.Time           `json:"checked_at"`
}

// CheckerOptions configures a Checker. Only Store is required.
type CheckerOptions struct {
	Registry    *Registry
	Store       StatusStore
	Auditor     Auditor
	Alerter     Alerter
	Client      Doer
	Timeout     time.Duration
	Cipher      *crypto.SecretCipher
	Credentials map[string]Credentials
}

// Checker runs provider probes and records their outcome.
type Checker struct {
	registry *Registry
	store    StatusStore
	auditor  Auditor
	alerter  Alerter
	client   Doer
	cipher   *crypto.SecretCipher
	now      func() time.Time

	mu    sync.RWMutex
	creds map[string]Credentials
}

// NewChecker builds a Checker, falling back to the built-in registry and an
// http.Client with DefaultTimeout.
func NewChecker(opts CheckerOptions) *Checker {
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	c := &Checker{
		registry: registry,
		store:    opts.Store,
		auditor:  opts.Auditor,
		alerter:  opts.Alerter,
		client:   client,
		cipher:   opts.Cipher,
		now:      time.Now,
	}
	c.SetCredentials(opts.Credentials)
	return c
}

// SetCredentials replaces the env-provided credentials, e.g. after a config reload.
func (c *Checker) SetCredentials(creds map[string]Credentials) {
	copied := make(map[string]Credentials, len(creds))
	for k, v := range creds {
		copied[k] = v
	}
	c.mu.Lock()
	c.creds = copied
	c.mu.Unlock()
}

// Names returns the providers this checker knows about.
func (c *Checker) Names() []string {
	return c.registry.Names()
}

// Check probes one provider. The only error is ErrUnknownIntegration; every
// probe failure is reported through the result's status. Cancellation of ctx is
// ignored: once issued, a probe runs to completion or to the client timeout, and
// its outcome is always persisted and audited.
func (c *Checker) Check(ctx context.Context, name string, actorID uuid.UUID) (CheckResult, error) {
	ctx = context.WithoutCancel(ctx)
	probe, err := c.registry.Get(name)
	if err != nil {
		return CheckResult{}, err
	}

	prev, err := c.store.Get(ctx, name)
	if err != nil {
		slog.Warn("failed to load previous integration status", "integration", name, "error", err)
		prev = nil
	}

	c.mu.RLock()
	creds := c.creds[name]
	c.mu.RUnlock()

	var outcome Outcome
	start := time.Now()
	probeErr := safego.Run(func() error {
		if prev != nil {
			merged, err := mergeOverride(creds, prev.Config, c.cipher)
			if err != nil {
				return err
			}
			creds = merged
		}
		var err error
		outcome, err = probe.Probe(ctx, c.client, creds)
		return err
	})
	latency := time.Since(start)
	if probeErr != nil {
		outcome = Outcome{Status: models.StatusDown, Message: probeErr.Error()}
	}

	result := CheckResult{
		Name:      name,
		Status:    outcome.Status,
		LatencyMS: latency.Milliseconds(),
		Error:     outcome.Message,
		CheckedAt: c.now().UTC(),
	}
	if result.Status == models.StatusHealthy {
		result.Error = ""
	}

	telemetry.IntegrationCheckDuration.WithLabelValues(name).Observe(latency.Seconds())
	telemetry.IntegrationChecksTotal.WithLabelValues(name, string(result.Status)).Inc()
	if result.Status == models.StatusHealthy {
		telemetry.IntegrationUp.WithLabelValues(name).Set(1)
	} else {
		telemetry.IntegrationUp.WithLabelValues(name).Set(0)
	}

	c.persist(ctx, result)
	c.audit(ctx, result, actorID)
	c.alertOnTransition(ctx, prev, result)

	slog.Debug("integration checked", "integration", name, "status", result.Status, "latency_ms", result.LatencyMS)
	return result, nil
}

// CheckAll probes every registered provider concurrently. A failure or panic in
// one provider never affects another's result. Like Check, it does not stop when
// ctx is cancelled.
func (c *Checker) CheckAll(ctx context.Context, actorID uuid.UUID) map[string]CheckResult {
	ctx = context.WithoutCancel(ctx)
	names := c.registry.Names()
	results := make(map[string]CheckResult, len(names))
	var mu sync.Mutex

	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			var res CheckResult
			err := safego.Run(func() error {
				var err error
				res, err = c.Check(ctx, name, actorID)
				return err
			})
			if err != nil {
				res = CheckResult{Name: name, Status: models.StatusDown, Error: err.Error(), CheckedAt: c.now().UTC()}
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// List returns the stored status of every registered provider. Providers that
// were never checked are reported as unknown.
func (c *Checker) List(ctx context.Context) ([]*models.IntegrationStatus, error) {
	rows, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		seen[r.Name] = true
	}
	for _, name := range c.registry.Names() {
		if !seen[name] {
			rows = append(rows, &models.IntegrationStatus{Name: name, Status: models.StatusUnknown})
		}
	}
	return rows, nil
}

// SetOverride stores a credential override for a provider. Secret halves are
// encrypted; the audit entry records which fields changed, never their values.
func (c *Checker) SetOverride(ctx context.Context, actor admin.Actor, adminID uuid.UUID, name string, in Credentials, reason string) error {
	if _, err := c.registry.Get(name); err != nil {
		return err
	}
	raw, err := sealOverride(in, c.cipher)
	if err != nil {
		return err
	}
	if err := c.store.SetConfig(ctx, name, raw); err != nil {
		return fmt.Errorf("failed to store %s override: %w", name, err)
	}

	c.record(ctx, admin.Event{
		AdminID:    adminID,
		Action:     models.ActionIntegrationConfig,
		TargetType: models.TargetIntegration,
		TargetID:   name,
		NewValue: map[string]interface{}{
			"base_url":    in.BaseURL,
			"api_key_set": in.APIKey != "",
			"secret_set":  in.Secret != "",
		},
		Reason:    reason,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
	return nil
}

func (c *Checker) persist(ctx context.Context, r CheckResult) {
	metrics, _ := json.Marshal(map[string]int64{"latency_ms": r.LatencyMS})
	var msg *string
	if r.Error != "" {
		msg = &r.Error
	}
	err := c.store.UpsertCheck(ctx, repositories.CheckUpdate{
		Name:         r.Name,
		Status:       r.Status,
		CheckedAt:    r.CheckedAt,
		Succeeded:    r.Status == models.StatusHealthy,
		ErrorMessage: msg,
		Metrics:      metrics,
	})
	if err != nil {
		slog.Error("failed to persist integration status", "integration", r.Name, "error", err)
	}
}

func (c *Checker) audit(ctx context.Context, r CheckResult, actorID uuid.UUID) {
	newValue := map[string]interface{}{
		"status":     string(r.Status),
		"latency_ms": r.LatencyMS,
	}
	if r.Error != "" {
		newValue["error"] = r.Error
	}
	c.record(ctx, admin.Event{
		AdminID:    actorID,
		Action:     models.ActionIntegrationCheck,
		TargetType: models.TargetIntegration,
		TargetID:   r.Name,
		NewValue:   newValue,
	})
}

func (c *Checker) record(ctx context.Context, ev admin.Event) {
	if c.auditor == nil {
		return
	}
	c.auditor.Record(ctx, ev)
}

func (c *Checker) alertOnTransition(ctx context.Context, prev *models.IntegrationStatus, r CheckResult) {
	if c.alerter == nil {
		return
	}
	if prev != nil && prev.Status != models.StatusHealthy && prev.Status != models.StatusUnknown && prev.Status != "" {
		return
	}

	var typ models.AlertType
	switch r.Status {
	case models.StatusDegraded:
		typ = models.AlertWarning
	case models.StatusDown:
		typ = models.AlertCritical
	default:
		return
	}

	_, err := c.alerter.CreateSystemAlert(ctx, admin.AlertInput{
		Type:        typ,
		Category:    "integration",
		Title:       fmt.Sprintf("%s is %s", r.Name, r.Status),
		Description: r.Error,
		Metadata: map[string]interface{}{
			"integration": r.Name,
			"latency_ms":  r.LatencyMS,
		},
	})
	if err != nil {
		slog.Error("failed to raise integration alert", "integration", r.Name, "error", err)
	}
}
