package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/authgate/internal/requestid"
	"github.com/ErlanBelekov/authgate/internal/transport/http/middleware"
)

func newHeaderEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Security(), middleware.Metrics())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, requestid.FromContext(c.Request.Context()))
	})
	return r
}

func TestRequestID_GeneratedWhenAbsent(t *testing.T) {
	w := httptest.NewRecorder()
	newHeaderEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	id := w.Header().Get("X-Request-ID")
	if len(id) != 36 {
		t.Errorf("X-Request-ID = %q, want a UUID", id)
	}
	if w.Body.String() != id {
		t.Errorf("context id %q != header id %q", w.Body.String(), id)
	}
}

func TestRequestID_PreservedOrReplaced(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"preserved", "abc-123", true},
		{"too long", strings.Repeat("x", 500), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", tt.incoming)
			newHeaderEngine().ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if (got == tt.incoming) != tt.keep {
				t.Errorf("X-Request-ID = %q, keep=%v", got, tt.keep)
			}
		})
	}
}

func TestSecurity_Headers(t *testing.T) {
	w := httptest.NewRecorder()
	newHeaderEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"Cache-Control":                "no-store",
		"Pragma":                       "no-cache",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Cross-Origin-Resource-Policy": "same-origin",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if w.Header().Get("Permissions-Policy") == "" {
		t.Error("Permissions-Policy missing")
	}
}

func TestSecurity_VaryAuthorizationSurvivesCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Security(), func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")
		c.Next()
	})
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	vary := w.Header().Values("Vary")
	if !slices.Contains(vary, "Authorization") || !slices.Contains(vary, "Origin") {
		t.Errorf("Vary = %v, want Authorization and Origin", vary)
	}
}
