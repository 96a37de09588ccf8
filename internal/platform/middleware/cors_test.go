package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatpilot-hq/console/internal/platform/middleware"
	"github.com/stretchr/testify/assert"
)

func corsHandler(called *bool) http.Handler {
	return middleware.CORS([]string{"http://localhost:3000/"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = true
			w.WriteHeader(http.StatusOK)
		}),
	)
}

func TestCORS_AllowedOrigin(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	corsHandler(&called).ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil)
	req.Header.Set("Origin", "http://evil.com")
	rec := httptest.NewRecorder()

	corsHandler(&called).ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_DisallowedOriginOptions(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/shell", nil)
	req.Header.Set("Origin", "http://evil.com")
	rec := httptest.NewRecorder()

	corsHandler(&called).ServeHTTP(rec, req)

	assert.True(t, called, "disallowed preflight falls through to the mux")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_NoOriginHeader(t *testing.T) {
	var called bool
	rec := httptest.NewRecorder()

	corsHandler(&called).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil))

	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_PreflightReturns204(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/42/permissions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	corsHandler(&called).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Request-ID")
}
