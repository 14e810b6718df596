// Package config loads and validates the back office configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the EKKLE_ prefix (EKKLE_DATABASE_HOST
// overrides database.host). Provider credentials and a few shared secrets are
// also read from their conventional bare names (STRIPE_SECRET_KEY, DATABASE_URL,
// ENCRYPTION_KEY, SENTRY_DSN) because the main church application injects them
// under those names and the back office runs next to it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ekkle/ekkle-admin/internal/audit"
)

// ErrNoConfigFile is returned by Watch when there is no file to watch.
var ErrNoConfigFile = errors.New("no config file to watch")

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Security     SecurityConfig     `mapstructure:"security"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Audit        AuditConfig        `mapstructure:"audit"`
	Integrations IntegrationsConfig `mapstructure:"integrations"`
	Jobs         JobsConfig         `mapstructure:"jobs"`
	Onboarding   OnboardingConfig   `mapstructure:"onboarding"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings. URL, when set, wins over
// the individual fields.
type DatabaseConfig struct {
	URL                string `mapstructure:"url"`
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// RedisConfig enables the feature flag cache and the shared rate limiter.
// Empty URL disables both.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	FlagCacheTTL time.Duration `mapstructure:"flag_cache_ttl"`
}

// AuthConfig holds session token settings. Tokens are HS256 JWTs issued by the
// church application's auth provider.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	// DevMode allows a generated secret when JWTSecret is empty.
	DevMode bool `mapstructure:"dev_mode"`
}

// SecurityConfig groups the HTTP hardening settings.
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

type RateLimitingConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// SentryConfig reports errors and recovered panics. Empty DSN disables it.
type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// AuditConfig configures where committed audit entries are copied to.
type AuditConfig struct {
	Shippers []AuditShipperConfig `mapstructure:"shippers"`
}

type AuditShipperConfig struct {
	Enabled bool                `mapstructure:"enabled"`
	Type    string              `mapstructure:"type"` // file, webhook, s3
	File    *AuditFileConfig    `mapstructure:"file"`
	Webhook *AuditWebhookConfig `mapstructure:"webhook"`
	S3      *AuditS3Config      `mapstructure:"s3"`
}

type AuditFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type AuditWebhookConfig struct {
	URL           string            `mapstructure:"url"`
	Headers       map[string]string `mapstructure:"headers"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval time.Duration     `mapstructure:"flush_interval"`
}

type AuditS3Config struct {
	Bucket          string        `mapstructure:"bucket"`
	Prefix          string        `mapstructure:"prefix"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BatchSize       int           `mapstructure:"batch_size"`
	FlushInterval   time.Duration `mapstructure:"flush_interval"`
}

// ShipperConfigs converts the shipper list into the audit package's form.
func (a AuditConfig) ShipperConfigs() []audit.ShipperConfig {
	out := make([]audit.ShipperConfig, 0, len(a.Shippers))
	for _, s := range a.Shippers {
		sc := audit.ShipperConfig{Enabled: s.Enabled, Type: s.Type}
		if s.File != nil {
			sc.File = &audit.FileConfig{Path: s.File.Path, MaxSizeMB: s.File.MaxSizeMB, MaxBackups: s.File.MaxBackups}
		}
		if s.Webhook != nil {
			sc.Webhook = &audit.WebhookConfig{
				URL:           s.Webhook.URL,
				Headers:       s.Webhook.Headers,
				Timeout:       s.Webhook.Timeout,
				BatchSize:     s.Webhook.BatchSize,
				FlushInterval: s.Webhook.FlushInterval,
			}
		}
		if s.S3 != nil {
			sc.S3 = &audit.S3Config{
				Bucket:          s.S3.Bucket,
				Prefix:          s.S3.Prefix,
				Region:          s.S3.Region,
				Endpoint:        s.S3.Endpoint,
				AccessKeyID:     s.S3.AccessKeyID,
				SecretAccessKey: s.S3.SecretAccessKey,
				BatchSize:       s.S3.BatchSize,
				FlushInterval:   s.S3.FlushInterval,
			}
		}
		out = append(out, sc)
	}
	return out
}

// IntegrationsConfig holds the credentials the health checker probes with.
type IntegrationsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// EncryptionKey protects credential overrides stored in the database.
	EncryptionKey string `mapstructure:"encryption_key"`

	Stripe    ProviderConfig `mapstructure:"stripe"`
	Resend    ProviderConfig `mapstructure:"resend"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Evolution ProviderConfig `mapstructure:"evolution"`
	Mux       ProviderConfig `mapstructure:"mux"`
	Pagarme   ProviderConfig `mapstructure:"pagarme"`
	LiveKit   ProviderConfig `mapstructure:"livekit"`
}

// ProviderConfig is one provider's endpoint and credentials. Secret is only used
// by providers whose auth has two halves (Mux token id and secret).
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Secret  string `mapstructure:"secret"`
}

type JobsConfig struct {
	// IntegrationCheckInterval of zero disables scheduled health checks.
	IntegrationCheckInterval time.Duration `mapstructure:"integration_check_interval"`
}

type OnboardingConfig struct {
	DefaultChurchName string `mapstructure:"default_church_name"`
}

// envAliases lists the bare environment names accepted next to the EKKLE_ form.
var envAliases = map[string][]string{
	"database.url":                        {"DATABASE_URL"},
	"redis.url":                           {"REDIS_URL"},
	"auth.jwt_secret":                     {"SUPABASE_JWT_SECRET"},
	"telemetry.sentry.dsn":                {"SENTRY_DSN"},
	"telemetry.sentry.environment":        {"SENTRY_ENVIRONMENT"},
	"integrations.encryption_key":         {"ENCRYPTION_KEY"},
	"integrations.stripe.api_key":         {"STRIPE_SECRET_KEY"},
	"integrations.resend.api_key":         {"RESEND_API_KEY"},
	"integrations.openai.api_key":         {"OPENAI_API_KEY"},
	"integrations.evolution.base_url":     {"EVOLUTION_API_URL"},
	"integrations.evolution.api_key":      {"EVOLUTION_API_KEY"},
	"integrations.mux.api_key":            {"MUX_TOKEN_ID"},
	"integrations.mux.secret":             {"MUX_TOKEN_SECRET"},
	"integrations.pagarme.api_key":        {"PAGARME_SECRET_KEY"},
	"integrations.livekit.base_url":       {"LIVEKIT_URL"},
	"integrations.livekit.api_key":        {"LIVEKIT_API_KEY"},
	"integrations.livekit.secret":         {"LIVEKIT_API_SECRET"},
	"onboarding.default_church_name":      {"DEFAULT_CHURCH_NAME"},
	"jobs.integration_check_interval":     {"INTEGRATION_CHECK_INTERVAL"},
	"telemetry.sentry.traces_sample_rate": {"SENTRY_TRACES_SAMPLE_RATE"},
}

// bindEnvVars binds every nested key explicitly; AutomaticEnv alone does not
// reach keys that are absent from the config file when unmarshaling.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		"server.host",
		"server.port",
		"server.mode",
		"server.read_timeout",
		"server.write_timeout",
		"server.shutdown_timeout",

		"database.url",
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		"redis.url",
		"redis.flag_cache_ttl",

		"auth.jwt_secret",
		"auth.dev_mode",

		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",

		"logging.level",
		"logging.format",

		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",
		"telemetry.profiling.enabled",
		"telemetry.profiling.port",
		"telemetry.sentry.dsn",
		"telemetry.sentry.environment",
		"telemetry.sentry.traces_sample_rate",

		"integrations.timeout",
		"integrations.encryption_key",

		"jobs.integration_check_interval",
		"onboarding.default_church_name",
	}
	for _, p := range []string{"stripe", "resend", "openai", "evolution", "mux", "pagarme", "livekit"} {
		keys = append(keys,
			"integrations."+p+".base_url",
			"integrations."+p+".api_key",
			"integrations."+p+".secret",
		)
	}

	for _, key := range keys {
		names := []string{"EKKLE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		names = append(names, envAliases[key]...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load reads configuration from configPath (or config.yaml in the usual places),
// layers environment variables on top and validates the result.
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch reloads configPath whenever it changes and passes the validated result to
// onChange. Edits that fail validation are logged and ignored.
func Watch(configPath string, onChange func(*Config)) error {
	if configPath == "" {
		return ErrNoConfigFile
	}
	v, err := newViper(configPath)
	if err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			slog.Warn("ignoring invalid configuration change", "file", e.Name, "error", err)
			return
		}
		slog.Info("configuration reloaded", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/ekkle-admin")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("EKKLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Secrets may be written as ${VAR} references in the YAML.
	cfg.Database.URL = expandEnv(cfg.Database.URL)
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Redis.URL = expandEnv(cfg.Redis.URL)
	cfg.Auth.JWTSecret = expandEnv(cfg.Auth.JWTSecret)
	cfg.Telemetry.Sentry.DSN = expandEnv(cfg.Telemetry.Sentry.DSN)
	cfg.Integrations.EncryptionKey = expandEnv(cfg.Integrations.EncryptionKey)
	for _, p := range cfg.Integrations.providers() {
		p.APIKey = expandEnv(p.APIKey)
		p.Secret = expandEnv(p.Secret)
	}
	for i := range cfg.Audit.Shippers {
		if s3 := cfg.Audit.Shippers[i].S3; s3 != nil {
			s3.SecretAccessKey = expandEnv(s3.SecretAccessKey)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *IntegrationsConfig) providers() []*ProviderConfig {
	return []*ProviderConfig{&c.Stripe, &c.Resend, &c.OpenAI, &c.Evolution, &c.Mux, &c.Pagarme, &c.LiveKit}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ekkle")
	v.SetDefault("database.user", "ekkle")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	v.SetDefault("redis.flag_cache_ttl", "60s")

	v.SetDefault("auth.dev_mode", false)

	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 120)
	v.SetDefault("security.rate_limiting.burst", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)
	v.SetDefault("telemetry.profiling.enabled", false)
	v.SetDefault("telemetry.profiling.port", 6060)
	v.SetDefault("telemetry.sentry.environment", "production")
	v.SetDefault("telemetry.sentry.traces_sample_rate", 0.0)

	v.SetDefault("integrations.timeout", "10s")

	v.SetDefault("jobs.integration_check_interval", "5m")
	v.SetDefault("onboarding.default_church_name", "Minha Igreja")
}

func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate checks the loaded configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server mode: %s (must be debug, release, or test)", c.Server.Mode)
	}

	if c.Database.URL == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}

	if c.Security.RateLimiting.Enabled && c.Security.RateLimiting.RequestsPerMinute <= 0 {
		return fmt.Errorf("security.rate_limiting.requests_per_minute must be positive when rate limiting is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be json or text)", c.Logging.Format)
	}

	if r := c.Telemetry.Sentry.TracesSampleRate; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sentry.traces_sample_rate must be between 0 and 1, got %v", r)
	}

	if c.Integrations.Timeout < 0 {
		return fmt.Errorf("integrations.timeout must not be negative")
	}
	if c.Jobs.IntegrationCheckInterval < 0 {
		return fmt.Errorf("jobs.integration_check_interval must not be negative")
	}
	if c.Redis.FlagCacheTTL < 0 {
		return fmt.Errorf("redis.flag_cache_ttl must not be negative")
	}

	for i, s := range c.Audit.Shippers {
		if !s.Enabled {
			continue
		}
		switch s.Type {
		case "file":
			if s.File == nil || s.File.Path == "" {
				return fmt.Errorf("audit.shippers[%d]: file.path is required", i)
			}
		case "webhook":
			if s.Webhook == nil || s.Webhook.URL == "" {
				return fmt.Errorf("audit.shippers[%d]: webhook.url is required", i)
			}
		case "s3":
			if s.S3 == nil || s.S3.Bucket == "" {
				return fmt.Errorf("audit.shippers[%d]: s3.bucket is required", i)
			}
		default:
			return fmt.Errorf("audit.shippers[%d]: unknown type %q (must be file, webhook, or s3)", i, s.Type)
		}
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
