// Package api wires together all HTTP routes of the Ekkle back office.
//
// Route grouping:
//   - /health and /ready are unauthenticated probes for the orchestrator.
//   - /api/v1/admin/ requires a session token and the super_admin role. Mutations
//     re-check the role inside the admin service before they are applied and audited.
//   - /api/v1/onboarding/:church_id requires a session token from a member of that
//     church, or from a super admin.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	adminapi "github.com/ekkle/ekkle-admin/internal/api/admin"
	onboardingapi "github.com/ekkle/ekkle-admin/internal/api/onboarding"
	"github.com/ekkle/ekkle-admin/internal/config"
	"github.com/ekkle/ekkle-admin/internal/jobs"
	"github.com/ekkle/ekkle-admin/internal/middleware"
	"github.com/ekkle/ekkle-admin/internal/validation"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	healthJob   *jobs.IntegrationHealthJob
	rateLimiter *middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.healthJob != nil {
		bg.healthJob.Stop()
	}
	if bg.rateLimiter != nil {
		bg.rateLimiter.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router and starts the scheduled
// integration health job.
func NewRouter(cfg *config.Config, svc *Services) (*gin.Engine, *BackgroundServices) {
	validation.Install()
	router := gin.New()
	bg := &BackgroundServices{}

	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(middleware.RequestIDMiddleware())
	if cfg.Telemetry.Metrics.Enabled {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.LoggerMiddleware(slog.Default()))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS.AllowedOrigins, cfg.Security.CORS.AllowedMethods))

	router.GET("/health", healthCheckHandler(svc))
	router.GET("/ready", readinessHandler(svc))

	apiV1 := router.Group("/api/v1")
	if limiter := newRateLimiter(cfg, svc, bg); limiter != nil {
		apiV1.Use(middleware.RateLimitMiddleware(limiter))
	}
	apiV1.Use(middleware.AuthMiddleware(svc.Verifier))

	adminGroup := apiV1.Group("/admin")
	adminGroup.Use(middleware.RequireSuperAdmin(svc.Tenants))
	{
		auditLogs := adminapi.NewAuditLogHandlers(svc.AuditLogs)
		adminGroup.GET("/audit-logs", auditLogs.ListAuditLogsHandler())

		flags := adminapi.NewFeatureFlagHandlers(svc.Admin)
		adminGroup.GET("/feature-flags", flags.ListFlagsHandler())
		adminGroup.GET("/feature-flags/:name", flags.GetFlagHandler())
		adminGroup.PUT("/feature-flags/:name", flags.UpsertFlagHandler())
		adminGroup.DELETE("/feature-flags/:name", flags.DeleteFlagHandler())
		adminGroup.GET("/feature-flags/:name/evaluate", flags.EvaluateFlagHandler())

		settings := adminapi.NewSettingsHandlers(svc.Admin)
		adminGroup.GET("/settings", settings.ListSettingsHandler())
		adminGroup.GET("/settings/:key", settings.GetSettingHandler())
		adminGroup.PUT("/settings/:key", settings.UpdateSettingHandler())

		alerts := adminapi.NewAlertHandlers(svc.Admin)
		adminGroup.GET("/alerts", alerts.ListAlertsHandler())
		adminGroup.POST("/alerts", alerts.CreateAlertHandler())
		adminGroup.GET("/alerts/unresolved-count", alerts.UnresolvedCountHandler())
		adminGroup.POST("/alerts/:id/resolve", alerts.ResolveAlertHandler())

		integrationHandlers := adminapi.NewIntegrationHandlers(svc.Checker)
		adminGroup.GET("/integrations", integrationHandlers.ListIntegrationsHandler())
		adminGroup.POST("/integrations/check-all", integrationHandlers.CheckAllHandler())
		adminGroup.POST("/integrations/:name/check", integrationHandlers.CheckHandler())
		adminGroup.PUT("/integrations/:name/config", integrationHandlers.UpdateConfigHandler())
	}

	onboardingGroup := apiV1.Group("/onboarding/:church_id")
	onboardingGroup.Use(middleware.RequireChurchAccess(svc.Tenants, "church_id"))
	{
		h := onboardingapi.NewHandlers(svc.Onboarding)
		onboardingGroup.GET("", h.GetStatusHandler())
		onboardingGroup.POST("/detect", h.DetectHandler())
	}

	bg.healthJob = jobs.NewIntegrationHealthJob(svc.Checker, cfg.Jobs.IntegrationCheckInterval)
	go bg.healthJob.Start(context.Background())

	return router, bg
}

// newRateLimiter picks the Redis limiter when Redis is configured and the
// in-memory one otherwise. It returns nil when rate limiting is disabled.
func newRateLimiter(cfg *config.Config, svc *Services, bg *BackgroundServices) middleware.Limiter {
	if !cfg.Security.RateLimiting.Enabled {
		return nil
	}
	rlCfg := middleware.DefaultRateLimitConfig()
	if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
		rlCfg.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
	}
	if cfg.Security.RateLimiting.Burst > 0 {
		rlCfg.BurstSize = cfg.Security.RateLimiting.Burst
	}

	if svc.Redis != nil {
		slog.Info("using redis rate limiter", "requests_per_minute", rlCfg.RequestsPerMinute, "burst", rlCfg.BurstSize)
		return middleware.NewRedisRateLimiter(svc.Redis, rlCfg)
	}
	bg.rateLimiter = middleware.NewRateLimiter(rlCfg)
	return bg.rateLimiter
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks the database and, when configured, Redis.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks, error"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service. Redis is optional,
// but once configured an unreachable Redis fails readiness.
func readinessHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		checks := gin.H{}

		if err := svc.DB.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if svc.Redis != nil {
			if err := svc.Redis.Ping(ctx).Err(); err != nil {
				checks["redis"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "redis not ready",
				})
				return
			}
			checks["redis"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
