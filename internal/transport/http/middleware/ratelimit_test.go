package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/authgate/internal/ratelimit"
	"github.com/ErlanBelekov/authgate/internal/transport/http/middleware"
)

type fakeLimiter struct {
	allow func(ctx context.Context, key string) (ratelimit.Decision, error)
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	return f.allow(ctx, key)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLimitedEngine(l interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}, key middleware.KeyFunc) (*gin.Engine, *int) {
	hits := 0
	r := gin.New()
	r.Use(middleware.RateLimit(l, key, discardLogger()))
	r.GET("/", func(c *gin.Context) {
		hits++
		c.Status(http.StatusOK)
	})
	return r, &hits
}

func hit(r http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_FourthRequestRejected(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	defer store.Close()
	l, err := ratelimit.New(store, 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	r, hits := newLimitedEngine(l, middleware.GlobalKey)

	for i := 1; i <= 3; i++ {
		w := hit(r, "")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(3-i) {
			t.Errorf("request %d: remaining = %q", i, got)
		}
	}

	w := hit(r, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if *hits != 3 {
		t.Errorf("handler ran %d times, want 3", *hits)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	if w.Header().Get("X-RateLimit-Limit") != "3" {
		t.Errorf("X-RateLimit-Limit = %q", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_ClientIPKey_SeparatesClients(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	defer store.Close()
	l, err := ratelimit.New(store, 1, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	r, _ := newLimitedEngine(l, middleware.ClientIPKey)

	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Errorf("client 1: status = %d", w.Code)
	}
	if w := hit(r, "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Errorf("client 2: status = %d", w.Code)
	}
	if w := hit(r, "10.0.0.1:5678"); w.Code != http.StatusTooManyRequests {
		t.Errorf("client 1 again: status = %d, want 429", w.Code)
	}
}

func TestRateLimit_StoreError_FailsOpen(t *testing.T) {
	l := &fakeLimiter{
		allow: func(context.Context, string) (ratelimit.Decision, error) {
			return ratelimit.Decision{}, errors.New("redis down")
		},
	}
	r, hits := newLimitedEngine(l, middleware.GlobalKey)

	if w := hit(r, ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if *hits != 1 {
		t.Errorf("handler ran %d times, want 1", *hits)
	}
}

func TestRateLimit_CountsOnDetachedContext(t *testing.T) {
	var sawCancelled bool
	l := &fakeLimiter{
		allow: func(ctx context.Context, _ string) (ratelimit.Decision, error) {
			sawCancelled = ctx.Err() != nil
			return ratelimit.Decision{Allowed: true, Limit: 1, Remaining: 0}, nil
		},
	}
	r, _ := newLimitedEngine(l, middleware.GlobalKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if sawCancelled {
		t.Error("limiter must not see the client's cancellation")
	}
}
