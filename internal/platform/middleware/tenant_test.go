package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/platform/middleware"
	"github.com/stretchr/testify/assert"
)

func TestTenantContext_SetsContextValue(t *testing.T) {
	var gotTenantID string
	handler := middleware.TenantContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenantID = middleware.GetTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{
		UserID:   "user-123",
		TenantID: "tenant-456",
		Role:     "agent",
	}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, "tenant-456", gotTenantID)
}

func TestTenantContext_NoIdentity(t *testing.T) {
	var called bool
	handler := middleware.TenantContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, middleware.GetTenantID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestRequireTenant(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.TenantContext(middleware.RequireTenant(next))

	t.Run("platform operator rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{
			UserID: "user-1",
			Role:   "super_admin",
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"tenant context required"}`, w.Body.String())
	})

	t.Run("tenant member passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{
			UserID:   "user-2",
			TenantID: "tenant-1",
			Role:     "viewer",
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
