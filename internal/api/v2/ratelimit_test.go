package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiter_Middleware(t *testing.T) {
	rl := NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2})

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, rl.Middleware())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "budgets are per client")
	assert.Equal(t, 2, rl.Len())
}

func TestIPRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTimeout: time.Minute})
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	rl.getLimiter("a")
	rl.getLimiter("b")
	require.Equal(t, 2, rl.Len())

	now = now.Add(30 * time.Second)
	rl.getLimiter("b")

	now = now.Add(45 * time.Second)
	rl.getLimiter("c")
	assert.Equal(t, 2, rl.Len(), "a is idle past the timeout")
}

func TestController_RateLimited(t *testing.T) {
	s := newTestServer(t, Options{
		Limiter: NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 1}),
	})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/kinds", "").Code)
	rec := s.do(t, http.MethodGet, "/kinds", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
}
