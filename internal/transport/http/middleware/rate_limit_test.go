package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type limiterMock struct {
	allowed    bool
	retryAfter time.Duration
	err        error

	allowKeys  []string
	recordKeys []string
}

func (m *limiterMock) Allow(_ context.Context, identifier string) (bool, time.Duration, error) {
	m.allowKeys = append(m.allowKeys, identifier)
	return m.allowed, m.retryAfter, m.err
}

func (m *limiterMock) Record(_ context.Context, identifier string) error {
	m.recordKeys = append(m.recordKeys, identifier)
	return nil
}

func throttledRouter(limiter Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Throttle(limiter, ThrottleRule{Name: "test_rule", Identifier: ClientIPIdentifier()}, nil))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func TestThrottle_AllowsAndRecords(t *testing.T) {
	limiter := &limiterMock{allowed: true}
	router := throttledRouter(limiter)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(limiter.recordKeys) != 1 {
		t.Fatalf("expected the request to be recorded, got %d records", len(limiter.recordKeys))
	}
	if !strings.HasPrefix(limiter.recordKeys[0], "test_rule:") {
		t.Fatalf("expected the rule name to scope the key, got %q", limiter.recordKeys[0])
	}
}

func TestThrottle_DeniedRequestGets429(t *testing.T) {
	limiter := &limiterMock{allowed: false, retryAfter: 90 * time.Second}
	router := throttledRouter(limiter)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("expected Retry-After 90, got %q", got)
	}
	if len(limiter.recordKeys) != 0 {
		t.Fatalf("a denied request must not be recorded")
	}
}

func TestThrottle_StoreFailureFailsOpen(t *testing.T) {
	limiter := &limiterMock{err: errors.New("store down")}
	router := throttledRouter(limiter)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected the request to pass on store failure, got %d", rec.Code)
	}
}

func TestThrottle_NilLimiterPassesThrough(t *testing.T) {
	router := throttledRouter(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
