// Package audit forwards committed admin audit entries to external destinations
// (append-only file, webhook, S3 archive). The admin_audit_logs table stays the
// system of record; shippers give security and finance teams a copy they can
// retain and query independently of the application database.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Entry is the shipped form of one admin audit log row.
type Entry struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	AdminID    string                 `json:"admin_id"`
	Action     string                 `json:"action"`
	TargetType string                 `json:"target_type"`
	TargetID   string                 `json:"target_id,omitempty"`
	ChurchID   string                 `json:"church_id,omitempty"`
	OldValue   map[string]interface{} `json:"old_value,omitempty"`
	NewValue   map[string]interface{} `json:"new_value,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
}

// Shipper delivers audit entries to one destination.
type Shipper interface {
	Ship(ctx context.Context, entry *Entry) error
	Close() error
}

// ShipperConfig selects and configures one shipper.
type ShipperConfig struct {
	Enabled bool
	Type    string // file, webhook, s3
	File    *FileConfig
	Webhook *WebhookConfig
	S3      *S3Config
}

// MultiShipper fans an entry out to every configured shipper.
type MultiShipper struct {
	mu       sync.RWMutex
	shippers []Shipper
}

// NewMultiShipper builds the enabled shippers from configs.
func NewMultiShipper(ctx context.Context, configs []ShipperConfig) (*MultiShipper, error) {
	ms := &MultiShipper{}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var (
			shipper Shipper
			err     error
		)
		switch cfg.Type {
		case "file":
			if cfg.File == nil {
				return nil, fmt.Errorf("file config is required for file shipper")
			}
			shipper, err = NewFileShipper(cfg.File)
		case "webhook":
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("webhook config is required for webhook shipper")
			}
			shipper, err = NewWebhookShipper(cfg.Webhook)
		case "s3":
			if cfg.S3 == nil {
				return nil, fmt.Errorf("s3 config is required for s3 shipper")
			}
			shipper, err = NewS3Shipper(ctx, cfg.S3)
		default:
			return nil, fmt.Errorf("unknown shipper type: %s", cfg.Type)
		}
		if err != nil {
			_ = ms.Close()
			return nil, fmt.Errorf("failed to create %s shipper: %w", cfg.Type, err)
		}

		ms.shippers = append(ms.shippers, shipper)
	}

	return ms, nil
}

// Add appends a shipper. Used to plug in destinations built outside configuration.
func (ms *MultiShipper) Add(s Shipper) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.shippers = append(ms.shippers, s)
}

// Len returns the number of active shippers.
func (ms *MultiShipper) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.shippers)
}

// Ship delivers entry to every shipper. A failing shipper does not stop the others;
// all failures are joined into the returned error.
func (ms *MultiShipper) Ship(ctx context.Context, entry *Entry) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var errs []error
	for _, shipper := range ms.shippers {
		if err := shipper.Ship(ctx, entry); err != nil {
			slog.Warn("audit shipper failed", "action", entry.Action, "audit_id", entry.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every shipper.
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var errs []error
	for _, shipper := range ms.shippers {
		if err := shipper.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	ms.shippers = nil
	return errors.Join(errs...)
}
