// Package safego runs functions with panic recovery: fire-and-forget goroutines
// (audit shipping, scheduled checks) and fan-out tasks whose panic must become a
// per-task error instead of crashing the process.
package safego

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ekkle/ekkle-admin/internal/telemetry"
)

// PanicError is returned by Run when fn panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Go launches fn in a new goroutine. A panic is recovered, logged and reported.
func Go(fn func()) {
	go func() {
		if err := Run(func() error { fn(); return nil }); err != nil {
			slog.Error("recovered panic in background goroutine", "panic", err)
		}
	}()
}

// Run calls fn on the current goroutine and converts a panic into a *PanicError.
func Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r, Stack: debug.Stack()}
			telemetry.CaptureMessage(pe.Error(), map[string]string{"component": "safego"})
			err = pe
		}
	}()
	return fn()
}
