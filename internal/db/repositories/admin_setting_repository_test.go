package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

var settingCols = []string{"key", "value", "updated_by", "updated_at"}

func newSettingRepo(t *testing.T) (*AdminSettingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewAdminSettingRepository(db), mock
}

func TestSettingGet_Found(t *testing.T) {
	repo, mock := newSettingRepo(t)
	mock.ExpectQuery("SELECT key, value.*FROM admin_settings WHERE key").
		WithArgs("trial_days").
		WillReturnRows(sqlmock.NewRows(settingCols).AddRow("trial_days", []byte(`14`), nil, time.Now()))

	s, err := repo.Get(context.Background(), "trial_days")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil || string(s.Value) != "14" {
		t.Errorf("unexpected setting: %+v", s)
	}
}

func TestSettingGet_NotFound(t *testing.T) {
	repo, mock := newSettingRepo(t)
	mock.ExpectQuery("FROM admin_settings").WillReturnRows(sqlmock.NewRows(settingCols))

	s, err := repo.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}

func TestSettingUpsert(t *testing.T) {
	repo, mock := newSettingRepo(t)
	actor := uuid.New()
	mock.ExpectExec("INSERT INTO admin_settings.*ON CONFLICT \\(key\\)").
		WithArgs("trial_days", []byte(`30`), actor, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), "trial_days", []byte(`30`), actor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSettingUpsert_Error(t *testing.T) {
	repo, mock := newSettingRepo(t)
	mock.ExpectExec("INSERT INTO admin_settings").WillReturnError(errDB)

	if err := repo.Upsert(context.Background(), "k", []byte(`1`), uuid.New()); err == nil {
		t.Error("expected error, got nil")
	}
}
