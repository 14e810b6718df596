package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func serveRequestID(inbound string) (header, stored string) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		stored = c.GetString(RequestIDKey)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(RequestIDHeader, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header().Get(RequestIDHeader), stored
}

func TestRequestIDMiddleware_GeneratesUUID(t *testing.T) {
	header, stored := serveRequestID("")
	if _, err := uuid.Parse(header); err != nil {
		t.Errorf("generated id %q is not a UUID: %v", header, err)
	}
	if stored != header {
		t.Errorf("context id %q != header id %q", stored, header)
	}

	again, _ := serveRequestID("")
	if again == header {
		t.Error("two requests got the same id")
	}
}

func TestRequestIDMiddleware_PropagatesIncomingID(t *testing.T) {
	header, stored := serveRequestID("upstream-id-001")
	if header != "upstream-id-001" || stored != "upstream-id-001" {
		t.Errorf("header=%q stored=%q, want upstream-id-001", header, stored)
	}
}

func TestRequestIDMiddleware_ReplacesOversizedID(t *testing.T) {
	header, _ := serveRequestID(strings.Repeat("x", 500))
	if _, err := uuid.Parse(header); err != nil {
		t.Errorf("oversized inbound id was not replaced: %q", header)
	}
}
