package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"

	"github.com/ekkle/ekkle-admin/internal/audit"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/safego"
	"github.com/ekkle/ekkle-admin/internal/telemetry"
)

// AuditStore appends audit rows. It has no update or delete methods.
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AdminAuditLog) error
}

// Event is one privileged action to record.
type Event struct {
	AdminID    uuid.UUID          `validate:"required"`
	Action     models.AuditAction `validate:"required,audit_action"`
	TargetType string             `validate:"required,max=64"`
	TargetID   string             `validate:"max=255"`
	ChurchID   *uuid.UUID
	OldValue   map[string]interface{}
	NewValue   map[string]interface{}
	Reason     string `validate:"max=2000"`
	IPAddress  string `validate:"omitempty,ip"`
	UserAgent  string
}

// ActionOptions are the optional fields of LogAdminAction.
type ActionOptions struct {
	TargetID  string
	ChurchID  *uuid.UUID
	OldValue  map[string]interface{}
	NewValue  map[string]interface{}
	Reason    string
	IPAddress string
	UserAgent string
}

// Recorder is the only write path into admin_audit_logs. Recording is best-effort:
// a failure is logged, counted and reported, and never blocks the admin action.
type Recorder struct {
	store    AuditStore
	shipper  audit.Shipper
	validate *validator.Validate
	now      func() time.Time

	shipTimeout time.Duration
}

// NewRecorder creates a recorder. shipper may be nil.
func NewRecorder(store AuditStore, shipper audit.Shipper) *Recorder {
	return &Recorder{
		store:       store,
		shipper:     shipper,
		validate:    newEventValidator(),
		now:         time.Now,
		shipTimeout: 30 * time.Second,
	}
}

func newEventValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("audit_action", func(fl validator.FieldLevel) bool {
		return models.AuditAction(fl.Field().String()).Valid()
	})
	return v
}

// Record validates and inserts ev, then forwards it to the shippers in the
// background. It returns the new row id and true, or uuid.Nil and false.
func (r *Recorder) Record(ctx context.Context, ev Event) (id uuid.UUID, recorded bool) {
	err := safego.Run(func() error {
		var err error
		id, err = r.record(ctx, ev)
		return err
	})
	if err != nil {
		slog.Error("failed to record admin action",
			"action", ev.Action, "target_type", ev.TargetType, "target_id", ev.TargetID,
			"admin_id", ev.AdminID, "error", err)
		return uuid.Nil, false
	}
	return id, true
}

func (r *Recorder) record(ctx context.Context, ev Event) (uuid.UUID, error) {
	if err := r.validate.Struct(ev); err != nil {
		telemetry.AuditRecordsTotal.WithLabelValues(telemetry.AuditOutcomeInvalid).Inc()
		return uuid.Nil, fmt.Errorf("invalid audit event: %w", err)
	}

	oldValue, err := marshalSnapshot(ev.OldValue)
	if err != nil {
		telemetry.AuditRecordsTotal.WithLabelValues(telemetry.AuditOutcomeInvalid).Inc()
		return uuid.Nil, fmt.Errorf("old_value: %w", err)
	}
	newValue, err := marshalSnapshot(ev.NewValue)
	if err != nil {
		telemetry.AuditRecordsTotal.WithLabelValues(telemetry.AuditOutcomeInvalid).Inc()
		return uuid.Nil, fmt.Errorf("new_value: %w", err)
	}

	row := &models.AdminAuditLog{
		ID:         uuid.New(),
		AdminID:    ev.AdminID,
		Action:     ev.Action,
		TargetType: ev.TargetType,
		TargetID:   optional(ev.TargetID),
		ChurchID:   ev.ChurchID,
		OldValue:   oldValue,
		NewValue:   newValue,
		Reason:     optional(ev.Reason),
		IPAddress:  optional(ev.IPAddress),
		UserAgent:  optional(ev.UserAgent),
		CreatedAt:  r.now().UTC(),
	}

	if err := r.store.Insert(ctx, row); err != nil {
		telemetry.AuditRecordsTotal.WithLabelValues(telemetry.AuditOutcomeFailed).Inc()
		telemetry.CaptureError(err, map[string]string{"component": "audit", "action": string(ev.Action)})
		return uuid.Nil, err
	}
	telemetry.AuditRecordsTotal.WithLabelValues(telemetry.AuditOutcomeRecorded).Inc()

	r.ship(ev, row)
	return row.ID, nil
}

func (r *Recorder) ship(ev Event, row *models.AdminAuditLog) {
	if r.shipper == nil {
		return
	}
	entry := &audit.Entry{
		ID:         row.ID.String(),
		Timestamp:  row.CreatedAt,
		AdminID:    row.AdminID.String(),
		Action:     string(row.Action),
		TargetType: row.TargetType,
		TargetID:   ev.TargetID,
		OldValue:   ev.OldValue,
		NewValue:   ev.NewValue,
		Reason:     ev.Reason,
		IPAddress:  ev.IPAddress,
	}
	if row.ChurchID != nil {
		entry.ChurchID = row.ChurchID.String()
	}

	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.shipTimeout)
		defer cancel()
		if err := r.shipper.Ship(ctx, entry); err != nil {
			telemetry.AuditShipFailuresTotal.Inc()
			slog.Warn("failed to ship audit entry", "id", entry.ID, "action", entry.Action, "error", err)
		}
	})
}

// LogAdminAction records action by adminID and returns the new audit id, or nil
// when the action could not be recorded.
func (r *Recorder) LogAdminAction(ctx context.Context, adminID uuid.UUID, action models.AuditAction, targetType string, opts ActionOptions) *uuid.UUID {
	id, recorded := r.Record(ctx, Event{
		AdminID:    adminID,
		Action:     action,
		TargetType: targetType,
		TargetID:   opts.TargetID,
		ChurchID:   opts.ChurchID,
		OldValue:   opts.OldValue,
		NewValue:   opts.NewValue,
		Reason:     opts.Reason,
		IPAddress:  opts.IPAddress,
		UserAgent:  opts.UserAgent,
	})
	if !recorded {
		return nil
	}
	return &id
}

func marshalSnapshot(v map[string]interface{}) (types.JSONText, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(data), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
