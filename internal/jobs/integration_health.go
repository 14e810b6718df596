// Package jobs runs the back office's background work on a ticker.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/integrations"
	"github.com/ekkle/ekkle-admin/internal/safego"
)

// HealthChecker runs every provider probe once. *integrations.Checker satisfies it.
type HealthChecker interface {
	CheckAll(ctx context.Context, actorID uuid.UUID) map[string]integrations.CheckResult
}

// IntegrationHealthJob periodically checks every integration as the system actor.
type IntegrationHealthJob struct {
	checker  HealthChecker
	interval time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewIntegrationHealthJob creates the job. An interval of zero or less disables it.
func NewIntegrationHealthJob(checker HealthChecker, interval time.Duration) *IntegrationHealthJob {
	return &IntegrationHealthJob{
		checker:  checker,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs a check immediately, then on every tick, until ctx is cancelled or
// Stop is called. It blocks; run it in its own goroutine.
func (j *IntegrationHealthJob) Start(ctx context.Context) {
	if j.interval <= 0 {
		slog.Info("integration health job disabled", "interval", j.interval)
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	slog.Info("integration health job started", "interval", j.interval)
	j.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.stopChan:
			slog.Info("integration health job stopped")
			return
		case <-ctx.Done():
			slog.Info("integration health job context cancelled")
			return
		}
	}
}

// Stop signals the loop to exit. Safe to call more than once.
func (j *IntegrationHealthJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
}

// RunOnce checks every provider and logs a summary. A panic is recovered so the
// loop survives to the next tick.
func (j *IntegrationHealthJob) RunOnce(ctx context.Context) {
	err := safego.Run(func() error {
		results := j.checker.CheckAll(ctx, admin.SystemActorID)

		unhealthy := make([]string, 0)
		for name, r := range results {
			if r.Status != models.StatusHealthy {
				unhealthy = append(unhealthy, name)
			}
		}
		if len(unhealthy) > 0 {
			slog.Warn("integration health check found unhealthy providers", "checked", len(results), "unhealthy", unhealthy)
		} else {
			slog.Debug("integration health check passed", "checked", len(results))
		}
		return nil
	})
	if err != nil {
		slog.Error("integration health check run failed", "error", err)
	}
}
