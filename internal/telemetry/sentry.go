package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds error reporting settings.
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
}

// InitSentry configures the global Sentry client. An empty DSN leaves reporting
// disabled and returns a no-op flush, so callers never need to branch on it.
func InitSentry(cfg SentryConfig) (flush func(), err error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return func() {}, fmt.Errorf("failed to initialise sentry: %w", err)
	}

	slog.Info("sentry error reporting enabled", "environment", cfg.Environment)
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureError reports err to Sentry with the given tags. It is a no-op while
// Sentry is not initialised.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

// CaptureMessage reports a non-error event such as a recovered panic value.
func CaptureMessage(msg string, tags map[string]string) {
	CaptureError(errors.New(msg), tags)
}
