package models

import (
	"encoding/json"
	"testing"
)

// ---------------------------------------------------------------------------
// AuditAction
// ---------------------------------------------------------------------------

func TestAuditAction_Valid(t *testing.T) {
	for _, a := range []AuditAction{
		ActionFeatureFlagCreate, ActionSettingUpdate, ActionAlertResolve,
		ActionIntegrationCheck, ActionIntegrationConfig, ActionWhatsAppAgentReset,
	} {
		if !a.Valid() {
			t.Errorf("%q.Valid() = false, want true", a)
		}
	}
}

func TestAuditAction_Invalid(t *testing.T) {
	for _, a := range []AuditAction{"", "church", "feature_flag.toggle", "CHURCH.CREATE"} {
		if a.Valid() {
			t.Errorf("%q.Valid() = true, want false", a)
		}
	}
}

func TestKnownActions_CoversEveryConstant(t *testing.T) {
	if len(knownActions) != 37 {
		t.Errorf("len(knownActions) = %d, want 37", len(knownActions))
	}
}

// ---------------------------------------------------------------------------
// FlagScope / AlertType
// ---------------------------------------------------------------------------

func TestFlagScope_Valid(t *testing.T) {
	tests := map[FlagScope]bool{
		FlagScopeGlobal: true,
		FlagScopeChurch: true,
		FlagScopePlan:   true,
		"tenant":        false,
		"":              false,
	}
	for scope, want := range tests {
		if got := scope.Valid(); got != want {
			t.Errorf("%q.Valid() = %v, want %v", scope, got, want)
		}
	}
}

func TestAlertType_Valid(t *testing.T) {
	tests := map[AlertType]bool{
		AlertCritical: true,
		AlertWarning:  true,
		AlertInfo:     true,
		"error":       false,
		"":            false,
	}
	for typ, want := range tests {
		if got := typ.Valid(); got != want {
			t.Errorf("%q.Valid() = %v, want %v", typ, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

func TestProfile_IsSuperAdmin(t *testing.T) {
	var nilProfile *Profile
	if nilProfile.IsSuperAdmin() {
		t.Error("nil profile should not be super admin")
	}
	if (&Profile{Role: "pastor"}).IsSuperAdmin() {
		t.Error("pastor should not be super admin")
	}
	if !(&Profile{Role: RoleSuperAdmin}).IsSuperAdmin() {
		t.Error("super_admin role should be super admin")
	}
}

// ---------------------------------------------------------------------------
// IntegrationStatus
// ---------------------------------------------------------------------------

func TestIntegrationStatus_ConfigNotSerialized(t *testing.T) {
	s := IntegrationStatus{
		Name:   "stripe",
		Status: StatusHealthy,
		Config: []byte(`{"api_key":"enc:secret"}`),
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := out["config"]; ok {
		t.Error("config must not be serialized")
	}
	if out["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", out["status"])
	}
}
