package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/clients", "/api/clients"},
		{"/api/clients/cli_1709229600000_a1b2c3d4", "/api/clients/{id}"},
		{"/api/clients/cli_1_ab/attachments/identity/att_2_cd", "/api/clients/{id}/attachments/identity/{id}"},
		{"/api/services/srv_1709229600000_00ff00ff", "/api/services/{id}"},
		{"/jobs/123e4567-e89b-12d3-a456-426614174000", "/jobs/{id}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path), tt.path)
	}
}

func TestRouteLabel_PrefersMuxPattern(t *testing.T) {
	mux := http.NewServeMux()
	var label string
	mux.HandleFunc("GET /api/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clients/whatever", nil))
	assert.Equal(t, "/api/clients/{id}", label)
}
