package admin

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ekkle/ekkle-admin/internal/audit"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/db/repositories"
)

var errStore = errors.New("connection refused")

var (
	superAdminID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	pastorID     = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// ---- profiles ---------------------------------------------------------------

type fakeProfiles struct {
	profiles map[uuid.UUID]*models.Profile
	err      error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[uuid.UUID]*models.Profile{
		superAdminID: {ID: superAdminID, Role: models.RoleSuperAdmin, FullName: "Operator", IsActive: true},
		pastorID:     {ID: pastorID, Role: "pastor", FullName: "Pastor João", IsActive: true},
	}}
}

func (f *fakeProfiles) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[id], nil
}

// ---- audit ------------------------------------------------------------------

type fakeAuditStore struct {
	mu   sync.Mutex
	rows []*models.AdminAuditLog
	err  error
}

func (f *fakeAuditStore) Insert(_ context.Context, row *models.AdminAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeAuditStore) actions() []models.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AuditAction, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r.Action)
	}
	return out
}

func (f *fakeAuditStore) last(t *testing.T) *models.AdminAuditLog {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) == 0 {
		t.Fatal("no audit rows recorded")
	}
	return f.rows[len(f.rows)-1]
}

type fakeShipper struct {
	entries chan *audit.Entry
	err     error
}

func newFakeShipper() *fakeShipper {
	return &fakeShipper{entries: make(chan *audit.Entry, 16)}
}

func (f *fakeShipper) Ship(_ context.Context, e *audit.Entry) error {
	f.entries <- e
	return f.err
}

func (f *fakeShipper) Close() error { return nil }

func (f *fakeShipper) next(t *testing.T) *audit.Entry {
	t.Helper()
	select {
	case e := <-f.entries:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("entry was not shipped")
		return nil
	}
}

// ---- flags ------------------------------------------------------------------

type fakeFlags struct {
	mu        sync.Mutex
	flags     map[string]*models.FeatureFlag
	gets      int
	getErr    error
	upsertErr error
	deleteErr error
}

func newFakeFlags(flags ...*models.FeatureFlag) *fakeFlags {
	f := &fakeFlags{flags: map[string]*models.FeatureFlag{}}
	for _, fl := range flags {
		f.flags[fl.Name] = fl
	}
	return f
}

func (f *fakeFlags) GetByName(_ context.Context, name string) (*models.FeatureFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.flags[name], nil
}

func (f *fakeFlags) List(_ context.Context) ([]*models.FeatureFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.FeatureFlag, 0, len(f.flags))
	for _, fl := range f.flags {
		out = append(out, fl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeFlags) Upsert(_ context.Context, flag *models.FeatureFlag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if prior, ok := f.flags[flag.Name]; ok {
		flag.ID = prior.ID
	} else {
		flag.ID = uuid.New()
	}
	cp := *flag
	f.flags[flag.Name] = &cp
	return nil
}

func (f *fakeFlags) Delete(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	_, ok := f.flags[name]
	delete(f.flags, name)
	return ok, nil
}

type fakeFlagCache struct {
	flags       map[string]*models.FeatureFlag
	err         error
	invalidated []string
}

func (c *fakeFlagCache) Get(_ context.Context, name string) (*models.FeatureFlag, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	fl, ok := c.flags[name]
	return fl, ok, nil
}

func (c *fakeFlagCache) Set(_ context.Context, flag *models.FeatureFlag) error {
	if c.err != nil {
		return c.err
	}
	c.flags[flag.Name] = flag
	return nil
}

func (c *fakeFlagCache) Invalidate(_ context.Context, name string) error {
	c.invalidated = append(c.invalidated, name)
	delete(c.flags, name)
	return c.err
}

// ---- settings ---------------------------------------------------------------

type fakeSettings struct {
	values    map[string]*models.AdminSetting
	getErr    error
	upsertErr error
}

func (f *fakeSettings) Get(_ context.Context, key string) (*models.AdminSetting, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.values[key], nil
}

func (f *fakeSettings) List(_ context.Context) ([]*models.AdminSetting, error) {
	out := make([]*models.AdminSetting, 0, len(f.values))
	for _, v := range f.values {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeSettings) Upsert(_ context.Context, key string, value []byte, updatedBy uuid.UUID) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	by := updatedBy
	f.values[key] = &models.AdminSetting{Key: key, Value: value, UpdatedBy: &by, UpdatedAt: time.Now()}
	return nil
}

// ---- alerts -----------------------------------------------------------------

type fakeAlerts struct {
	alerts    []*models.SystemAlert
	createErr error
	countErr  error
}

func (f *fakeAlerts) Create(_ context.Context, a *models.SystemAlert) error {
	if f.createErr != nil {
		return f.createErr
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeAlerts) List(_ context.Context, filters repositories.AlertFilters, _, _ int) ([]*models.SystemAlert, error) {
	var out []*models.SystemAlert
	for _, a := range f.alerts {
		if filters.Resolved != nil && a.Resolved != *filters.Resolved {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAlerts) Resolve(_ context.Context, id, by uuid.UUID) (bool, error) {
	for _, a := range f.alerts {
		if a.ID == id && !a.Resolved {
			now := time.Now()
			a.Resolved, a.ResolvedAt, a.ResolvedBy = true, &now, &by
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlerts) CountUnresolvedByType(_ context.Context) (models.AlertCounts, error) {
	if f.countErr != nil {
		return models.AlertCounts{}, f.countErr
	}
	var c models.AlertCounts
	for _, a := range f.alerts {
		if a.Resolved {
			continue
		}
		switch a.Type {
		case models.AlertCritical:
			c.Critical++
		case models.AlertWarning:
			c.Warning++
		case models.AlertInfo:
			c.Info++
		}
		c.Total++
	}
	return c, nil
}

// ---- wiring -----------------------------------------------------------------

type harness struct {
	svc      *Service
	profiles *fakeProfiles
	audit    *fakeAuditStore
	flags    *fakeFlags
	settings *fakeSettings
	alerts   *fakeAlerts
}

func newHarness() *harness {
	h := &harness{
		profiles: newFakeProfiles(),
		audit:    &fakeAuditStore{},
		flags:    newFakeFlags(),
		settings: &fakeSettings{values: map[string]*models.AdminSetting{}},
		alerts:   &fakeAlerts{},
	}
	h.svc = NewService(Deps{
		Profiles: h.profiles,
		Recorder: NewRecorder(h.audit, nil),
		Flags:    h.flags,
		Settings: h.settings,
		Alerts:   h.alerts,
	})
	return h
}

func adminActor() Actor {
	return Actor{UserID: superAdminID.String(), IPAddress: "203.0.113.7", UserAgent: "test"}
}
