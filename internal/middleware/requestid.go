package middleware

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin.Context key holding the request identifier.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware reuses an inbound X-Request-ID or generates a UUID, stores it
// under RequestIDKey, echoes it on the response and tags the Sentry scope with it.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("request_id", id)
		}

		c.Next()
	}
}
