package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveSecurity(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestSecurityHeadersMiddleware_API(t *testing.T) {
	w := serveSecurity(APISecurityHeadersConfig())

	want := map[string]string{
		"Strict-Transport-Security":    "max-age=31536000; includeSubDomains",
		"X-Frame-Options":              "DENY",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":              "no-referrer",
		"X-Content-Type-Options":       "nosniff",
		"Cross-Origin-Resource-Policy": "same-origin",
		"Cache-Control":                "no-store",
	}
	for h, v := range want {
		if got := w.Header().Get(h); got != v {
			t.Errorf("%s = %q, want %q", h, got, v)
		}
	}
}

func TestSecurityHeadersMiddleware_OptionalHeadersOmitted(t *testing.T) {
	w := serveSecurity(SecurityHeadersConfig{})
	for _, h := range []string{"Strict-Transport-Security", "X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if got := w.Header().Get(h); got != "" {
			t.Errorf("%s = %q, want empty", h, got)
		}
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("nosniff must always be set")
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantStatus int
		wantAllow  string
	}{
		{"listed origin", []string{"https://admin.ekkle.app"}, "https://admin.ekkle.app", http.MethodGet, http.StatusOK, "https://admin.ekkle.app"},
		{"unlisted origin", []string{"https://admin.ekkle.app"}, "https://evil.example", http.MethodGet, http.StatusOK, ""},
		{"wildcard echoes origin", []string{"*"}, "https://any.example", http.MethodGet, http.StatusOK, "https://any.example"},
		{"no origin header", []string{"*"}, "", http.MethodGet, http.StatusOK, ""},
		{"preflight", []string{"*"}, "https://admin.ekkle.app", http.MethodOptions, http.StatusNoContent, "https://admin.ekkle.app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORSMiddleware(tt.origins, nil))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if tt.wantAllow != "" && w.Header().Get("Access-Control-Allow-Methods") != "GET, POST, PUT, DELETE, OPTIONS" {
				t.Errorf("Access-Control-Allow-Methods = %q", w.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}
