package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMemoryLimiterEnforcesPerClient(t *testing.T) {
	lim, err := NewLimiter(nil, time.Minute, 1)
	require.NoError(t, err)
	h := Handler{Limiter: lim}.Middleware(okHandler())

	first := serve(h, "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := serve(h, "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.NotEmpty(t, second.Header().Get("Retry-After"))
	require.Contains(t, second.Body.String(), "RATE_LIMITED")

	other := serve(h, "10.0.0.2:1234")
	require.Equal(t, http.StatusOK, other.Code)
}

func TestRedisLimiterEnforcesLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	lim, err := NewLimiter(client, time.Second, 2)
	require.NoError(t, err)
	h := Handler{Limiter: lim, Key: func(*http.Request) string { return "static" }}.Middleware(okHandler())

	require.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1").Code)
	require.Equal(t, http.StatusOK, serve(h, "10.0.0.2:1").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.3:1").Code)
}

func TestHandlerFailsOpenOnStoreError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()

	lim, err := NewLimiter(client, time.Second, 1)
	require.NoError(t, err)
	mr.Close()

	called := false
	h := Handler{Limiter: lim, OnError: func(error) { called = true }}.Middleware(okHandler())
	require.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1").Code)
	require.True(t, called, "expected OnError callback to be invoked")
}

func TestNewLimiterRejectsInvalidRate(t *testing.T) {
	_, err := NewLimiter(nil, 0, 1)
	require.Error(t, err)
	_, err = NewLimiter(nil, time.Second, 0)
	require.Error(t, err)
}
