// metrics.go records Prometheus request counters and latency histograms.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ekkle/ekkle-admin/internal/telemetry"
)

// MetricsMiddleware records http_requests_total and http_request_duration_seconds.
// The path label is the matched route template; unmatched requests use "<no-route>"
// so unknown URLs do not inflate label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
