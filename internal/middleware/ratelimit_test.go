package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerClientBurst(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, wait := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "other clients have their own bucket")

	now = now.Add(time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok, "bucket refills")
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		ok, _ := l.Allow("10.0.0.1")
		assert.True(t, ok)
	}
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	now = now.Add(limiterIdleTTL + limiterSweepPeriod + time.Second)
	l.Allow("10.0.0.2")

	_, kept := l.clients["10.0.0.1"]
	assert.False(t, kept)
	assert.Len(t, l.clients, 1)
}

func TestRateLimiter_Middleware429(t *testing.T) {
	l := NewRateLimiter(1, 1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.7:51000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusFound, send().Code)
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
