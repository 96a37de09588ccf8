package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/backend"
	"github.com/chatpilot-hq/console/internal/dashboard"
	"github.com/chatpilot-hq/console/internal/platform/server"
	"github.com/chatpilot-hq/console/internal/platform/telemetry"
	"github.com/chatpilot-hq/console/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key-must-be-32-chars!!"

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestServer_HealthCheck(t *testing.T) {
	srv := server.New(":0", server.Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name    string
		backend server.Pinger
		want    int
	}{
		{"no backend", nil, http.StatusServiceUnavailable},
		{"backend down", pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }), http.StatusServiceUnavailable},
		{"backend up", pingFunc(func(context.Context) error { return nil }), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := server.New(":0", server.Dependencies{Backend: tt.backend})
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestServer_NotFound(t *testing.T) {
	srv := server.New(":0", server.Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "u", TenantID: "t"}))
	w := httptest.NewRecorder()

	srv.ProtectedMux().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartStop(t *testing.T) {
	srv := server.New("127.0.0.1:0", server.Dependencies{})

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// newTestServer wires a dashboard against an httptest backend that answers
// /api/auth/me and /api/users/{id}/permissions.
func newTestServer(t *testing.T) (*server.Server, *auth.TokenService) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/me":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "name": "Ana", "role": "agent"})
		case "/api/users/user-9/permissions":
			_ = json.NewEncoder(w).Encode(map[string]any{"permissions": []any{}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	tokenSvc := auth.NewTokenService(testSigningKey)
	engine := rbac.NewEvaluator()
	client := backend.NewClient(upstream.URL)
	return server.New(":0", server.Dependencies{
		Auth:      tokenSvc,
		Dashboard: dashboard.NewHandler(client, engine),
		Backend:   client,
		Logger:    telemetry.Discard(),
	}), tokenSvc
}

func bearer(t *testing.T, svc *auth.TokenService, identity *auth.Identity) string {
	t.Helper()
	token, err := svc.CreateAccessToken(identity, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestServer_Shell_WithToken(t *testing.T) {
	srv, tokenSvc := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil)
	req.Header.Set("Authorization", bearer(t, tokenSvc, &auth.Identity{UserID: "user-1", TenantID: "tenant-1", Role: "agent"}))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Menu []rbac.MenuItem `json:"menu"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Menu, 1)
	assert.Equal(t, "conversations", body.Menu[0].ID)
}

func TestServer_Permissions_RoleGate(t *testing.T) {
	srv, tokenSvc := newTestServer(t)

	for role, want := range map[string]int{
		"tenant_admin": http.StatusOK,
		"manager":      http.StatusForbidden,
		"viewer":       http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/user-9/permissions", nil)
		req.Header.Set("Authorization", bearer(t, tokenSvc, &auth.Identity{UserID: "user-1", TenantID: "tenant-1", Role: role}))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestServer_NoToken(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_PlatformOperatorRejected(t *testing.T) {
	srv, tokenSvc := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil)
	req.Header.Set("Authorization", bearer(t, tokenSvc, &auth.Identity{UserID: "root", Role: "super_admin"}))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_DevMode(t *testing.T) {
	tokenSvc := auth.NewTokenService("")
	srv := server.New(":0", server.Dependencies{
		Auth:        tokenSvc,
		Dashboard:   dashboard.NewHandler(backend.NewClient("http://127.0.0.1:0"), rbac.NewEvaluator()),
		DevMode:     true,
		DevIdentity: &auth.Identity{UserID: "dev", TenantID: "dev-tenant", Role: "viewer"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access?resource=analytics&action=read", nil)
	req.Header.Set("Authorization", "Bearer dev")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed":true}`, w.Body.String())
}
