package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekkle/ekkle-admin/internal/db/models"
)

func flag(name string, enabled bool, scope models.FlagScope, churches, plans []string) *models.FeatureFlag {
	return &models.FeatureFlag{ID: uuid.New(), Name: name, Enabled: enabled, Scope: scope, ChurchIDs: churches, PlanIDs: plans}
}

// ---------------------------------------------------------------------------
// EvaluateFlag
// ---------------------------------------------------------------------------

func TestEvaluateFlag_DisabledIsAlwaysFalse(t *testing.T) {
	targets := []Target{{}, {ChurchID: "c1"}, {PlanID: "pro"}, {ChurchID: "c1", PlanID: "pro"}}
	for _, scope := range []models.FlagScope{models.FlagScopeGlobal, models.FlagScopeChurch, models.FlagScopePlan} {
		f := flag("x", false, scope, []string{"c1"}, []string{"pro"})
		for _, target := range targets {
			assert.False(t, EvaluateFlag(f, target), "scope=%s target=%+v", scope, target)
		}
	}
}

func TestEvaluateFlag_GlobalEnabledIsAlwaysTrue(t *testing.T) {
	f := flag("x", true, models.FlagScopeGlobal, nil, nil)
	for _, target := range []Target{{}, {ChurchID: "any"}, {PlanID: "any"}} {
		assert.True(t, EvaluateFlag(f, target))
	}
}

func TestEvaluateFlag_Membership(t *testing.T) {
	church := flag("x", true, models.FlagScopeChurch, []string{"c1", "c2"}, nil)
	plan := flag("y", true, models.FlagScopePlan, nil, []string{"pro"})

	tests := []struct {
		name string
		flag *models.FeatureFlag
		t    Target
		want bool
	}{
		{"church member", church, Target{ChurchID: "c2"}, true},
		{"church non-member", church, Target{ChurchID: "c3"}, false},
		{"church id omitted", church, Target{PlanID: "pro"}, false},
		{"plan member", plan, Target{PlanID: "pro"}, true},
		{"plan non-member", plan, Target{PlanID: "basic"}, false},
		{"plan id omitted", plan, Target{ChurchID: "c1"}, false},
		{"unknown scope", flag("z", true, "tenant", []string{"c1"}, nil), Target{ChurchID: "c1"}, false},
		{"nil flag", nil, Target{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateFlag(tt.flag, tt.t))
		})
	}
}

// ---------------------------------------------------------------------------
// IsFeatureFlagEnabled
// ---------------------------------------------------------------------------

func TestIsFeatureFlagEnabled(t *testing.T) {
	h := newHarness()
	h.flags.flags["live_streaming"] = flag("live_streaming", true, models.FlagScopePlan, nil, []string{"pro"})

	ctx := context.Background()
	assert.True(t, h.svc.IsFeatureFlagEnabled(ctx, "live_streaming", Target{PlanID: "pro"}))
	assert.False(t, h.svc.IsFeatureFlagEnabled(ctx, "live_streaming", Target{PlanID: "basic"}))
	assert.False(t, h.svc.IsFeatureFlagEnabled(ctx, "missing", Target{PlanID: "pro"}))

	h.flags.getErr = errStore
	assert.False(t, h.svc.IsFeatureFlagEnabled(ctx, "live_streaming", Target{PlanID: "pro"}))
}

func TestIsFeatureFlagEnabled_Cache(t *testing.T) {
	h := newHarness()
	cache := &fakeFlagCache{flags: map[string]*models.FeatureFlag{}}
	h.svc.cache = cache
	h.flags.flags["ai_sermons"] = flag("ai_sermons", true, models.FlagScopeGlobal, nil, nil)

	ctx := context.Background()
	assert.True(t, h.svc.IsFeatureFlagEnabled(ctx, "ai_sermons", Target{}))
	assert.True(t, h.svc.IsFeatureFlagEnabled(ctx, "ai_sermons", Target{}))
	assert.Equal(t, 1, h.flags.gets, "second evaluation should be served from cache")
	assert.Contains(t, cache.flags, "ai_sermons")
}

func TestIsFeatureFlagEnabled_CacheErrorFallsThrough(t *testing.T) {
	h := newHarness()
	h.svc.cache = &fakeFlagCache{flags: map[string]*models.FeatureFlag{}, err: errStore}
	h.flags.flags["ai_sermons"] = flag("ai_sermons", true, models.FlagScopeGlobal, nil, nil)

	assert.True(t, h.svc.IsFeatureFlagEnabled(context.Background(), "ai_sermons", Target{}))
	assert.Equal(t, 1, h.flags.gets)
}

// ---------------------------------------------------------------------------
// UpsertFeatureFlag / DeleteFeatureFlag
// ---------------------------------------------------------------------------

func TestUpsertFeatureFlag_CreateThenUpdate(t *testing.T) {
	h := newHarness()
	cache := &fakeFlagCache{flags: map[string]*models.FeatureFlag{}}
	h.svc.cache = cache
	ctx := context.Background()

	in := FlagInput{Name: "whatsapp_bot", Enabled: true, Scope: models.FlagScopeChurch, ChurchIDs: []string{"c1"}}
	created, res := h.svc.UpsertFeatureFlag(ctx, adminActor(), in, "pilot")
	require.True(t, res.OK(), "result: %+v", res)
	require.NotNil(t, res.AuditID)
	assert.NotEqual(t, uuid.Nil, created.ID)

	in.ChurchIDs = []string{"c1", "c2"}
	_, res = h.svc.UpsertFeatureFlag(ctx, adminActor(), in, "expand pilot")
	require.True(t, res.OK())

	assert.Equal(t, []models.AuditAction{models.ActionFeatureFlagCreate, models.ActionFeatureFlagUpdate}, h.audit.actions())
	row := h.audit.last(t)
	assert.Contains(t, string(row.OldValue), `"c1"`)
	assert.Contains(t, string(row.NewValue), `"c2"`)
	assert.Equal(t, []string{"whatsapp_bot", "whatsapp_bot"}, cache.invalidated)
}

func TestUpsertFeatureFlag_Failures(t *testing.T) {
	ctx := context.Background()
	valid := FlagInput{Name: "x", Scope: models.FlagScopeGlobal}

	t.Run("tenant role", func(t *testing.T) {
		h := newHarness()
		_, res := h.svc.UpsertFeatureFlag(ctx, Actor{UserID: pastorID.String()}, valid, "")
		assert.Equal(t, ResultUnauthorized, res.Kind)
		assert.Empty(t, h.flags.flags)
	})
	t.Run("invalid scope", func(t *testing.T) {
		h := newHarness()
		_, res := h.svc.UpsertFeatureFlag(ctx, adminActor(), FlagInput{Name: "x", Scope: "tenant"}, "")
		assert.Equal(t, ResultInvalid, res.Kind)
		assert.ErrorIs(t, res.Err, ErrInvalidFlag)
	})
	t.Run("write failure", func(t *testing.T) {
		h := newHarness()
		h.flags.upsertErr = errStore
		_, res := h.svc.UpsertFeatureFlag(ctx, adminActor(), valid, "")
		assert.Equal(t, ResultPersistenceError, res.Kind)
		assert.Empty(t, h.audit.actions())
	})
}

func TestDeleteFeatureFlag(t *testing.T) {
	h := newHarness()
	h.flags.flags["old"] = flag("old", true, models.FlagScopeGlobal, nil, nil)
	ctx := context.Background()

	res := h.svc.DeleteFeatureFlag(ctx, adminActor(), "old", "cleanup")
	require.True(t, res.OK())
	assert.NotContains(t, h.flags.flags, "old")
	assert.Equal(t, []models.AuditAction{models.ActionFeatureFlagDelete}, h.audit.actions())

	res = h.svc.DeleteFeatureFlag(ctx, adminActor(), "old", "")
	assert.Equal(t, ResultNotFound, res.Kind)

	res = h.svc.DeleteFeatureFlag(ctx, Actor{}, "old", "")
	assert.Equal(t, ResultUnauthorized, res.Kind)
}

func TestListFeatureFlags(t *testing.T) {
	h := newHarness()
	h.flags.flags["b"] = flag("b", true, models.FlagScopeGlobal, nil, nil)
	h.flags.flags["a"] = flag("a", false, models.FlagScopeGlobal, nil, nil)

	flags, err := h.svc.ListFeatureFlags(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "a", flags[0].Name)

	got, err := h.svc.GetFeatureFlag(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, got.Enabled)
}
