package api

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/audit"
	"github.com/ekkle/ekkle-admin/internal/auth"
	"github.com/ekkle/ekkle-admin/internal/config"
	"github.com/ekkle/ekkle-admin/internal/crypto"
	"github.com/ekkle/ekkle-admin/internal/db/repositories"
	"github.com/ekkle/ekkle-admin/internal/integrations"
	"github.com/ekkle/ekkle-admin/internal/onboarding"
)

// Services is the application graph shared by the HTTP router, the background
// jobs and the CLI subcommands.
type Services struct {
	DB    *sqlx.DB
	Redis redis.UniversalClient

	Verifier   *auth.Verifier
	Tenants    *repositories.TenantRepository
	AuditLogs  *repositories.AdminAuditRepository
	Admin      *admin.Service
	Checker    *integrations.Checker
	Onboarding *onboarding.Tracker
}

// NewServices wires repositories and services. rdb and shipper may be nil: without
// Redis, feature flags are read straight from the database; without a shipper,
// audit entries are only stored in admin_audit_logs.
func NewServices(cfg *config.Config, db *sqlx.DB, rdb redis.UniversalClient, shipper audit.Shipper) (*Services, error) {
	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.DevMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	var cipher *crypto.SecretCipher
	if cfg.Integrations.EncryptionKey == "" {
		slog.Warn("ENCRYPTION_KEY not set, integration credential overrides with secrets are disabled")
	} else {
		cipher, err = crypto.FromSecret(cfg.Integrations.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize secret cipher: %w", err)
		}
	}

	tenants := repositories.NewTenantRepository(db)
	auditLogs := repositories.NewAdminAuditRepository(db)

	var flagCache admin.FlagCache
	if rdb != nil {
		flagCache = admin.NewRedisFlagCache(rdb, cfg.Redis.FlagCacheTTL)
	}

	recorder := admin.NewRecorder(auditLogs, shipper)
	adminSvc := admin.NewService(admin.Deps{
		Profiles: tenants,
		Recorder: recorder,
		Flags:    repositories.NewFeatureFlagRepository(db),
		Cache:    flagCache,
		Settings: repositories.NewAdminSettingRepository(db),
		Alerts:   repositories.NewSystemAlertRepository(db),
	})

	checker := integrations.NewChecker(integrations.CheckerOptions{
		Store:       repositories.NewIntegrationStatusRepository(db),
		Auditor:     recorder,
		Alerter:     adminSvc,
		Timeout:     cfg.Integrations.Timeout,
		Cipher:      cipher,
		Credentials: integrations.CredentialsFromConfig(cfg.Integrations),
	})

	tracker := onboarding.NewTracker(tenants, repositories.NewOnboardingRepository(db), cfg.Onboarding.DefaultChurchName)

	return &Services{
		DB:         db,
		Redis:      rdb,
		Verifier:   verifier,
		Tenants:    tenants,
		AuditLogs:  auditLogs,
		Admin:      adminSvc,
		Checker:    checker,
		Onboarding: tracker,
	}, nil
}
