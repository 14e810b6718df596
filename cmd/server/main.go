// @title           Ekkle Admin API
// @version         1.0.0
// @description     Back office for the Ekkle church platform: admin audit trail, feature flags, settings, system alerts, integration health and onboarding progress.
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                         Authorization
// @description                  "Session token issued by the church application: 'Bearer {token}'"
//
// @tag.name         System
// @tag.description  Health and readiness probes.
//
// @tag.name         Admin
// @tag.description  Super admin operations. Every mutation is re-authorized and written to the audit trail.
//
// @tag.name         Onboarding
// @tag.description  Church onboarding progress.

// Package main is the entry point for the Ekkle back office binary. It dispatches
// four subcommands (serve, migrate, check-integrations and version) via a switch
// on os.Args. The serve command runs migrations on startup so a fresh container
// never needs a separate migration step.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- pprof is only served on the internal profiling port, never on the API listener.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ekkle/ekkle-admin/internal/admin"
	"github.com/ekkle/ekkle-admin/internal/api"
	"github.com/ekkle/ekkle-admin/internal/audit"
	"github.com/ekkle/ekkle-admin/internal/config"
	"github.com/ekkle/ekkle-admin/internal/db"
	"github.com/ekkle/ekkle-admin/internal/db/models"
	"github.com/ekkle/ekkle-admin/internal/integrations"
	"github.com/ekkle/ekkle-admin/internal/telemetry"
)

const (
	version = "0.1.0"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command == "version" {
		fmt.Printf("Ekkle Admin v%s\n", version)
		return nil
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	switch command {
	case "serve":
		return serve(cfg, configPath)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "check-integrations":
		return checkIntegrations(cfg)
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, check-integrations, version", command)
	}
}

func connect(cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.Database.GetDSN(), db.PoolOptions{
		MaxOpen: cfg.Database.MaxConnections,
		MaxIdle: cfg.Database.MinIdleConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)
	return database, nil
}

// connectRedis returns nil when no Redis URL is configured.
func connectRedis(cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.Redis.URL == "" {
		slog.Info("redis not configured, feature flag cache and shared rate limiting disabled")
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("connected to redis", "addr", opts.Addr)
	return client, nil
}

func serve(cfg *config.Config, configPath string) error {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	flush, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Telemetry.Sentry.DSN,
		Environment:      cfg.Telemetry.Sentry.Environment,
		Release:          "ekkle-admin@" + version,
		TracesSampleRate: cfg.Telemetry.Sentry.TracesSampleRate,
	})
	if err != nil {
		slog.Warn("sentry disabled", "error", err)
	}
	defer flush()

	database, err := connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	slog.Info("running database migrations")
	if err := db.RunMigrations(database.DB, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if v, dirty, err := db.GetMigrationVersion(database.DB); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", v, "dirty", dirty)
	}

	rdb, err := connectRedis(cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	shipper, err := audit.NewMultiShipper(rootCtx, cfg.Audit.ShipperConfigs())
	if err != nil {
		return fmt.Errorf("failed to initialize audit shippers: %w", err)
	}
	defer shipper.Close()
	slog.Info("audit shippers initialized", "count", shipper.Len())

	svc, err := api.NewServices(cfg, database, rdb, shipper)
	if err != nil {
		return err
	}

	if err := config.Watch(configPath, func(newCfg *config.Config) {
		svc.Checker.SetCredentials(integrations.CredentialsFromConfig(newCfg.Integrations))
	}); err != nil {
		slog.Info("configuration hot reload disabled", "reason", err)
	}

	telemetry.StartDBStatsCollector(rootCtx, database.DB)

	// Metrics are served on a dedicated port so the scrape path stays off the
	// public ingress and outside the rate limiter.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	if cfg.Telemetry.Profiling.Enabled {
		pprofAddr := fmt.Sprintf(":%d", cfg.Telemetry.Profiling.Port)
		go func() {
			slog.Info("starting pprof server", "addr", pprofAddr)
			srv := &http.Server{ //nolint:gosec // #nosec G112 -- internal-only pprof port
				Addr:         pprofAddr,
				Handler:      http.DefaultServeMux,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("pprof server error", "error", err)
			}
		}()
	}

	router, bgServices := api.NewRouter(cfg, svc)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.Server.GetAddress(), "version", version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	bgServices.Shutdown()
	stop()

	slog.Info("server stopped gracefully")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database.DB, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	v, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("migration completed", "version", v, "dirty", dirty)
	return nil
}

// checkIntegrations probes every provider once as the system actor and prints
// the results as JSON. It exits non-zero when any provider is not healthy.
func checkIntegrations(cfg *config.Config) error {
	database, err := connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	svc, err := api.NewServices(cfg, database, nil, nil)
	if err != nil {
		return err
	}

	results := svc.Checker.CheckAll(context.Background(), admin.SystemActorID)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	var unhealthy []string
	for name, r := range results {
		if r.Status != models.StatusHealthy {
			unhealthy = append(unhealthy, name)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy integrations: %v", unhealthy)
	}
	return nil
}
