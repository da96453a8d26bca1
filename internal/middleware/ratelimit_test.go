package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/solartek/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, discardLogger())

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "keys are counted separately")
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond, discardLogger())

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	time.Sleep(80 * time.Millisecond)

	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_ResetAndTimeUntilReset(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, discardLogger())

	assert.Zero(t, rl.TimeUntilReset("10.0.0.1"))
	rl.Allow("10.0.0.1")

	remaining := rl.TimeUntilReset("10.0.0.1")
	assert.Greater(t, remaining, 58*time.Second)
	assert.LessOrEqual(t, remaining, time.Minute)

	rl.Reset("10.0.0.1")
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimitMiddleware_Limit(t *testing.T) {
	mw := NewRateLimitMiddleware(NewRateLimiter(2, time.Minute, discardLogger()), discardLogger())
	handler := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
		req.RemoteAddr = "192.168.1.9:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve().Code)
	assert.Equal(t, http.StatusOK, serve().Code)

	rec := serve()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.ERATELIMIT, body.Error.Code)
	assert.NotEmpty(t, body.Error.Message)
}

func TestRateLimitMiddleware_LimitWritesIgnoresReads(t *testing.T) {
	mw := NewRateLimitMiddleware(NewRateLimiter(1, time.Minute, discardLogger()), discardLogger())
	handler := mw.LimitWrites(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(method string) int {
		req := httptest.NewRequest(method, "/api/expenses", nil)
		req.RemoteAddr = "192.168.1.9:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, serve(http.MethodGet))
	}
	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, serve(http.MethodDelete))
	assert.Equal(t, http.StatusNoContent, serve(http.MethodGet))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.8 "}, "10.0.0.1:80", "203.0.113.8"},
		{"remote addr", nil, "198.51.100.2:1234", "198.51.100.2"},
		{"remote without port", nil, "198.51.100.3", "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
