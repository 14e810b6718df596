package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/integrations"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func TestPagination(t *testing.T) {
	tests := []struct {
		query             string
		page, per, offset int
	}{
		{"", 1, 50, 0},
		{"?page=3&per_page=20", 3, 20, 40},
		{"?page=0&per_page=1000", 1, 50, 0},
		{"?page=abc", 1, 50, 0},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request, _ = http.NewRequest(http.MethodGet, "/"+tt.query, nil)
		page, per, offset := pagination(c)
		if page != tt.page || per != tt.per || offset != tt.offset {
			t.Errorf("pagination(%q) = %d,%d,%d want %d,%d,%d", tt.query, page, per, offset, tt.page, tt.per, tt.offset)
		}
	}
}

func TestResultStatus(t *testing.T) {
	tests := []struct {
		kind admin.ResultKind
		want int
	}{
		{admin.ResultOK, http.StatusOK},
		{admin.ResultUnauthorized, http.StatusForbidden},
		{admin.ResultNotFound, http.StatusNotFound},
		{admin.ResultInvalid, http.StatusBadRequest},
		{admin.ResultPersistenceError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := resultStatus(admin.Result{Kind: tt.kind}); got != tt.want {
			t.Errorf("resultStatus(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// audit logs
// ---------------------------------------------------------------------------

func TestListAuditLogs(t *testing.T) {
	church := uuid.New()
	logs := &fakeAuditLogs{
		rows:  []*models.AdminAuditLog{{ID: uuid.New(), AdminID: testAdmin, Action: models.ActionSettingUpdate, CreatedAt: time.Now()}},
		total: 7,
	}
	r := newRouter()
	r.GET("/audit-logs", NewAuditLogHandlers(logs).ListAuditLogsHandler())

	w := do(r, http.MethodGet, "/audit-logs?action=setting.update&church_id="+church.String()+"&target_type=setting&page=2&per_page=5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NotNil(t, logs.filters.Action)
	assert.Equal(t, "setting.update", *logs.filters.Action)
	require.NotNil(t, logs.filters.ChurchID)
	assert.Equal(t, church, *logs.filters.ChurchID)
	assert.Equal(t, "setting", *logs.filters.TargetType)
	assert.Nil(t, logs.filters.AdminID)
	assert.Equal(t, 5, logs.limit)
	assert.Equal(t, 5, logs.offset)

	body := decode(t, w)
	assert.Len(t, body["logs"], 1)
	assert.Equal(t, float64(7), body["pagination"].(map[string]interface{})["total"])
}

func TestListAuditLogs_Errors(t *testing.T) {
	r := newRouter()
	r.GET("/audit-logs", NewAuditLogHandlers(&fakeAuditLogs{err: errDB}).ListAuditLogsHandler())

	if w := do(r, http.MethodGet, "/audit-logs?admin_id=nope", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid admin_id status = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodGet, "/audit-logs", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", w.Code)
	}
}

func TestListAuditLogs_EmptyIsArray(t *testing.T) {
	r := newRouter()
	r.GET("/audit-logs", NewAuditLogHandlers(&fakeAuditLogs{}).ListAuditLogsHandler())

	w := do(r, http.MethodGet, "/audit-logs", "")
	assert.JSONEq(t, `[]`, mustJSON(t, decode(t, w)["logs"]))
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

// ---------------------------------------------------------------------------
// feature flags
// ---------------------------------------------------------------------------

func newFlagRouter(f *fakeFlags) *gin.Engine {
	h := NewFeatureFlagHandlers(f)
	r := newRouter()
	r.GET("/feature-flags", h.ListFlagsHandler())
	r.GET("/feature-flags/:name", h.GetFlagHandler())
	r.PUT("/feature-flags/:name", h.UpsertFlagHandler())
	r.DELETE("/feature-flags/:name", h.DeleteFlagHandler())
	r.GET("/feature-flags/:name/evaluate", h.EvaluateFlagHandler())
	return r
}

func TestFlags_ListAndGet(t *testing.T) {
	f := &fakeFlags{flags: map[string]*models.FeatureFlag{
		"live_streaming": {Name: "live_streaming", Enabled: true, Scope: models.FlagScopeGlobal},
	}}
	r := newFlagRouter(f)

	w := do(r, http.MethodGet, "/feature-flags", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["flags"], 1)

	w = do(r, http.MethodGet, "/feature-flags/live_streaming", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "live_streaming", decode(t, w)["name"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/feature-flags/missing", "").Code)

	f.err = errDB
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/feature-flags", "").Code)
}

func TestFlags_Upsert(t *testing.T) {
	f := &fakeFlags{result: okResult()}
	r := newFlagRouter(f)
	church := uuid.NewString()

	w := do(r, http.MethodPut, "/feature-flags/courses",
		`{"enabled":true,"scope":"church","church_ids":["`+church+`"],"reason":"pilot"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "courses", f.input.Name)
	assert.Equal(t, models.FlagScopeChurch, f.input.Scope)
	assert.Equal(t, []string{church}, f.input.ChurchIDs)
	assert.Equal(t, "pilot", f.reason)
	assert.Equal(t, testAdmin.String(), f.actor.UserID)
	assert.Equal(t, "admin-test", f.actor.UserAgent)
	assert.Equal(t, testAudit.String(), decode(t, w)["audit_id"])
}

func TestFlags_UpsertValidation(t *testing.T) {
	r := newFlagRouter(&fakeFlags{result: okResult()})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing scope", `{"enabled":true}`, "scope is required"},
		{"bad scope", `{"scope":"everyone"}`, "scope must be one of"},
		{"bad church id", `{"scope":"church","church_ids":["x"]}`, "must be a valid UUID"},
		{"malformed", `{"scope":`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPut, "/feature-flags/x", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			if tt.want != "" {
				assert.Contains(t, w.Body.String(), tt.want)
			}
		})
	}
}

func TestFlags_UpsertFailures(t *testing.T) {
	tests := []struct {
		result admin.Result
		want   int
	}{
		{admin.Result{Kind: admin.ResultUnauthorized, Err: admin.ErrForbidden}, http.StatusForbidden},
		{admin.Result{Kind: admin.ResultPersistenceError, Err: errDB}, http.StatusInternalServerError},
		{admin.Result{Kind: admin.ResultInvalid, Err: admin.ErrInvalidFlag}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.result.Kind.String(), func(t *testing.T) {
			r := newFlagRouter(&fakeFlags{result: tt.result})
			w := do(r, http.MethodPut, "/feature-flags/x", `{"scope":"global"}`)
			assert.Equal(t, tt.want, w.Code)
			assert.NotContains(t, w.Body.String(), errDB.Error())
		})
	}
}

func TestFlags_Delete(t *testing.T) {
	f := &fakeFlags{result: okResult()}
	r := newFlagRouter(f)

	w := do(r, http.MethodDelete, "/feature-flags/courses", `{"reason":"cleanup"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "courses", f.input.Name)
	assert.Equal(t, "cleanup", f.reason)

	w = do(r, http.MethodDelete, "/feature-flags/courses", "")
	assert.Equal(t, http.StatusOK, w.Code)

	f.result = admin.Result{Kind: admin.ResultNotFound, Err: errors.New(`feature flag "ghost" not found`)}
	w = do(r, http.MethodDelete, "/feature-flags/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ghost")
}

func TestFlags_Evaluate(t *testing.T) {
	f := &fakeFlags{enabled: true}
	r := newFlagRouter(f)

	w := do(r, http.MethodGet, "/feature-flags/courses/evaluate?church_id=c1&plan_id=pro", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, admin.Target{ChurchID: "c1", PlanID: "pro"}, f.target)
	assert.Equal(t, true, decode(t, w)["enabled"])
}

// ---------------------------------------------------------------------------
// settings
// ---------------------------------------------------------------------------

func newSettingsRouter(f *fakeSettings) *gin.Engine {
	h := NewSettingsHandlers(f)
	r := newRouter()
	r.GET("/settings", h.ListSettingsHandler())
	r.GET("/settings/:key", h.GetSettingHandler())
	r.PUT("/settings/:key", h.UpdateSettingHandler())
	return r
}

func TestSettings_Read(t *testing.T) {
	f := &fakeSettings{settings: map[string]*models.AdminSetting{
		"maintenance_mode": {Key: "maintenance_mode", Value: []byte(`false`)},
	}}
	r := newSettingsRouter(f)

	w := do(r, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["settings"], 1)

	w = do(r, http.MethodGet, "/settings/maintenance_mode", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["value"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/settings/missing", "").Code)
}

func TestSettings_Update(t *testing.T) {
	f := &fakeSettings{result: okResult()}
	r := newSettingsRouter(f)

	w := do(r, http.MethodPut, "/settings/trial_days", `{"value":{"days":14},"reason":"promo"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "trial_days", f.key)
	assert.JSONEq(t, `{"days":14}`, string(f.value))
	assert.Equal(t, "promo", f.reason)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/settings/trial_days", `{"reason":"no value"}`).Code)

	f.result = admin.Result{Kind: admin.ResultPersistenceError, Err: errDB}
	w = do(r, http.MethodPut, "/settings/trial_days", `{"value":1}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "persistence_error", decode(t, w)["result"])

	f.result = admin.Result{Kind: admin.ResultUnauthorized, Err: admin.ErrForbidden}
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/settings/trial_days", `{"value":1}`).Code)
}

func TestSettings_UpdateWithoutAuditRow(t *testing.T) {
	r := newSettingsRouter(&fakeSettings{result: admin.Result{Kind: admin.ResultOK}})

	w := do(r, http.MethodPut, "/settings/k", `{"value":"v"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["audit_id"])
}

// ---------------------------------------------------------------------------
// alerts
// ---------------------------------------------------------------------------

func newAlertRouter(f *fakeAlerts) *gin.Engine {
	h := NewAlertHandlers(f)
	r := newRouter()
	r.GET("/alerts", h.ListAlertsHandler())
	r.POST("/alerts", h.CreateAlertHandler())
	r.GET("/alerts/unresolved-count", h.UnresolvedCountHandler())
	r.POST("/alerts/:id/resolve", h.ResolveAlertHandler())
	return r
}

func TestAlerts_ListFilters(t *testing.T) {
	f := &fakeAlerts{alerts: []*models.SystemAlert{{ID: uuid.New(), Type: models.AlertWarning}}}
	r := newAlertRouter(f)

	w := do(r, http.MethodGet, "/alerts?resolved=false&type=warning&category=integration", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.filters.Resolved)
	assert.False(t, *f.filters.Resolved)
	assert.Equal(t, models.AlertWarning, *f.filters.Type)
	assert.Equal(t, "integration", *f.filters.Category)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/alerts?resolved=maybe", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/alerts?type=fatal", "").Code)
}

func TestAlerts_Create(t *testing.T) {
	f := &fakeAlerts{}
	r := newAlertRouter(f)

	w := do(r, http.MethodPost, "/alerts", `{"type":"critical","category":"billing","title":"Webhook backlog","metadata":{"pending":12}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.AlertCritical, f.input.Type)
	assert.Equal(t, float64(12), f.input.Metadata["pending"])

	w = do(r, http.MethodPost, "/alerts", `{"type":"fatal","category":"billing","title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.err = errDB
	w = do(r, http.MethodPost, "/alerts", `{"type":"info","category":"billing","title":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAlerts_UnresolvedCount(t *testing.T) {
	f := &fakeAlerts{counts: models.AlertCounts{Critical: 1, Warning: 2, Info: 3, Total: 6}}
	r := newAlertRouter(f)

	w := do(r, http.MethodGet, "/alerts/unresolved-count", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(6), body["total"])

	f.err = errDB
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/alerts/unresolved-count", "").Code)
}

func TestAlerts_Resolve(t *testing.T) {
	f := &fakeAlerts{result: okResult()}
	r := newAlertRouter(f)
	id := uuid.New()

	w := do(r, http.MethodPost, "/alerts/"+id.String()+"/resolve", `{"reason":"fixed upstream"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, f.resolved)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/alerts/not-a-uuid/resolve", "").Code)

	f.result = admin.Result{Kind: admin.ResultNotFound, Err: errors.New("unresolved alert not found")}
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/alerts/"+id.String()+"/resolve", "").Code)
}

// ---------------------------------------------------------------------------
// integrations
// ---------------------------------------------------------------------------

func newIntegrationRouter(f *fakeChecker) *gin.Engine {
	h := NewIntegrationHandlers(f)
	r := newRouter()
	r.GET("/integrations", h.ListIntegrationsHandler())
	r.POST("/integrations/check-all", h.CheckAllHandler())
	r.POST("/integrations/:name/check", h.CheckHandler())
	r.PUT("/integrations/:name/config", h.UpdateConfigHandler())
	return r
}

func TestIntegrations_List(t *testing.T) {
	f := &fakeChecker{rows: []*models.IntegrationStatus{{Name: "stripe", Status: models.StatusHealthy}}}
	r := newIntegrationRouter(f)

	w := do(r, http.MethodGet, "/integrations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["integrations"], 1)

	f.listErr = errDB
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/integrations", "").Code)
}

func TestIntegrations_Check(t *testing.T) {
	f := &fakeChecker{}
	r := newIntegrationRouter(f)

	w := do(r, http.MethodPost, "/integrations/stripe/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.Equal(t, testAdmin, f.actor)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/integrations/dailyco/check", "").Code)
}

func TestIntegrations_CheckAll(t *testing.T) {
	r := newIntegrationRouter(&fakeChecker{})

	w := do(r, http.MethodPost, "/integrations/check-all", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Results map[string]integrations.CheckResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.StatusDown, body.Results["resend"].Status)
	assert.Equal(t, "resend not configured", body.Results["resend"].Error)
}

func TestIntegrations_UpdateConfig(t *testing.T) {
	f := &fakeChecker{}
	r := newIntegrationRouter(f)

	w := do(r, http.MethodPut, "/integrations/stripe/config", `{"api_key":"sk_live_x","base_url":"https://api.stripe.com","reason":"rotate"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, integrations.Credentials{BaseURL: "https://api.stripe.com", APIKey: "sk_live_x"}, f.override)
	assert.Equal(t, "rotate", f.reason)
	assert.NotContains(t, w.Body.String(), "sk_live_x")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/integrations/stripe/config", `{"base_url":"not a url"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/integrations/dailyco/config", `{}`).Code)

	f.setErr = integrations.ErrNoCipher
	w = do(r, http.MethodPut, "/integrations/stripe/config", `{"api_key":"k"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ENCRYPTION_KEY")

	f.setErr = errDB
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPut, "/integrations/stripe/config", `{"api_key":"k"}`).Code)
}
