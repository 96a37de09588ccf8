package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/backend"
	"github.com/chatpilot-hq/console/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key-must-be-32-chars!!"

func newStore(t *testing.T) *session.FileStore {
	t.Helper()
	return session.NewFileStore(filepath.Join(t.TempDir(), "chatpilot", "session.json"))
}

func issue(t *testing.T, svc *auth.TokenService, role string, ttl time.Duration) string {
	t.Helper()
	token, err := svc.CreateAccessToken(&auth.Identity{UserID: "u-1", TenantID: "t-1", Role: role}, ttl)
	require.NoError(t, err)
	return token
}

func TestFileStore_Permissions(t *testing.T) {
	store := newStore(t)
	_, err := session.Begin(store, "tok", backend.User{ID: "u-1", Role: "agent"})
	require.NoError(t, err)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dir, err := os.Stat(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dir.Mode().Perm())
}

func TestInit_NoSession(t *testing.T) {
	_, err := session.Init(newStore(t), auth.NewTokenService(testSigningKey))
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestInit_CorruptFileIsNoSession(t *testing.T) {
	store := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	_, err := session.Init(store, auth.NewTokenService(testSigningKey))
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestInit_RestoresValidSession(t *testing.T) {
	svc := auth.NewTokenService(testSigningKey)
	store := newStore(t)
	token := issue(t, svc, "manager", time.Hour)
	_, err := session.Begin(store, token, backend.User{ID: "u-1", Name: "Ana", Role: "manager", TenantID: "t-1"})
	require.NoError(t, err)

	s, err := session.Init(store, svc)
	require.NoError(t, err)
	assert.Equal(t, token, s.Token)
	assert.Equal(t, "Ana", s.Identity().Name)
	assert.Equal(t, "manager", s.Identity().Role)
}

func TestInit_RoleComesFromToken(t *testing.T) {
	svc := auth.NewTokenService(testSigningKey)
	store := newStore(t)
	token := issue(t, svc, "viewer", time.Hour)
	_, err := session.Begin(store, token, backend.User{ID: "u-1", Role: "tenant_admin"})
	require.NoError(t, err)

	s, err := session.Init(store, svc)
	require.NoError(t, err)
	assert.Equal(t, "viewer", s.User.Role)
}

func TestInit_UnknownRoleStillLoads(t *testing.T) {
	svc := auth.NewTokenService(testSigningKey)
	store := newStore(t)
	_, err := session.Begin(store, issue(t, svc, "super_admin", time.Hour), backend.User{ID: "u-1"})
	require.NoError(t, err)

	s, err := session.Init(store, svc)
	require.NoError(t, err)
	assert.Equal(t, "super_admin", s.User.Role)
}

func TestInit_ExpiredTokenClearsSession(t *testing.T) {
	svc := auth.NewTokenService(testSigningKey)
	store := newStore(t)
	_, err := session.Begin(store, issue(t, svc, "agent", -time.Minute), backend.User{ID: "u-1"})
	require.NoError(t, err)

	_, err = session.Init(store, svc)
	require.ErrorIs(t, err, session.ErrSessionExpired)

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestInit_ForeignTokenClearsSession(t *testing.T) {
	other := auth.NewTokenService("another-signing-key-also-32-chars!!")
	store := newStore(t)
	_, err := session.Begin(store, issue(t, other, "agent", time.Hour), backend.User{ID: "u-1"})
	require.NoError(t, err)

	_, err = session.Init(store, auth.NewTokenService(testSigningKey))
	require.ErrorIs(t, err, session.ErrSessionExpired)

	_, err = store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestEnd_Idempotent(t *testing.T) {
	store := newStore(t)
	_, err := session.Begin(store, "tok", backend.User{ID: "u-1"})
	require.NoError(t, err)

	require.NoError(t, session.End(store))
	require.NoError(t, session.End(store))

	_, err = store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}
