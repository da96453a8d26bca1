package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveMetrics(mw *MetricsAuthMiddleware, configure func(r *http.Request)) *httptest.ResponseRecorder {
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("solartek_http_requests_total 1"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMetricsAuthMiddleware_ValidCredentials(t *testing.T) {
	rec := serveMetrics(NewMetricsAuthMiddleware("prom", "s3cret"), func(r *http.Request) {
		r.SetBasicAuth("prom", "s3cret")
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "solartek_http_requests_total")
}

func TestMetricsAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		configure func(r *http.Request)
	}{
		{"no credentials", nil},
		{"wrong username", func(r *http.Request) { r.SetBasicAuth("admin", "s3cret") }},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth("prom", "nope") }},
		{"empty credentials", func(r *http.Request) { r.SetBasicAuth("", "") }},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Basic !!!") }},
		{"bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer prom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveMetrics(NewMetricsAuthMiddleware("prom", "s3cret"), tt.configure)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, `Basic realm="metrics"`, rec.Header().Get("WWW-Authenticate"))
			assert.NotContains(t, rec.Body.String(), "solartek_http_requests_total")
		})
	}
}

func TestMetricsAuthMiddleware_DisabledWithoutCredentials(t *testing.T) {
	rec := serveMetrics(NewMetricsAuthMiddleware("", ""), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
