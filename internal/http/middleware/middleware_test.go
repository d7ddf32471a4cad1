package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, ip string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = ip + ":12345"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitPerIP(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rds.Close() })

	now := time.Date(2024, 11, 1, 14, 0, 0, 250*int(time.Millisecond), time.UTC)
	e := echo.New()
	e.POST("/", okHandler, RateLimitMiddleware(RateLimitConfig{
		Redis:          rds,
		RPS:            2,
		Window:         time.Second,
		RetryAfterHint: true,
		Now:            func() time.Time { return now },
	}))

	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1", nil).Code)
	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1", nil).Code)

	rec := serve(e, "10.0.0.1", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// other clients have their own window
	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.2", nil).Code)

	// next window starts fresh
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1", nil).Code)

	ttl := mr.TTL("rl:ip:10.0.0.1:" + "1730469601")
	assert.Equal(t, 2*time.Second, ttl)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rds.Close() })
	mr.Close()

	e := echo.New()
	e.POST("/", okHandler, RateLimitMiddleware(RateLimitConfig{Redis: rds, RPS: 1}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1", nil).Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/", okHandler, RateLimitMiddleware(RateLimitConfig{RPS: 1}))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1", nil).Code)
	}
}

func TestWebhookTokenMiddleware(t *testing.T) {
	e := echo.New()
	e.POST("/", okHandler, WebhookTokenMiddleware("s3cret"))

	assert.Equal(t, http.StatusUnauthorized, serve(e, "10.0.0.1", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "10.0.0.1", map[string]string{WebhookTokenHeader: "nope"}).Code)
	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1", map[string]string{WebhookTokenHeader: "s3cret"}).Code)

	open := echo.New()
	open.POST("/", okHandler, WebhookTokenMiddleware(""))
	assert.Equal(t, http.StatusOK, serve(open, "10.0.0.1", nil).Code)
}
