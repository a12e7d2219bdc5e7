package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthAndReady(t *testing.T) {
	tests := []struct {
		name       string
		ready      func(context.Context) error
		path       string
		wantStatus int
	}{
		{"health", nil, "/healthz", http.StatusOK},
		{"ready without check", nil, "/readyz", http.StatusOK},
		{"ready ok", func(context.Context) error { return nil }, "/readyz", http.StatusOK},
		{"ready failing", func(context.Context) error { return errBoom }, "/readyz", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withReady(tt.ready))
			rr := env.do(http.MethodGet, tt.path, "", "", "")
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestAPIRequiresUser(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{"/api/transactions", "/api/categories", "/api/reports/stream"} {
		rr := env.do(http.MethodGet, target, "", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
		assert.Contains(t, rr.Body.String(), HeaderUserID)
	}
	rr := env.do(http.MethodGet, "/api/transactions", "two words", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareChain(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/api/categories", "u1", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, int64(1), env.srv.tracer.GetMetrics().TotalRequests)
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodPut, "/api/transactions", "u1", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
