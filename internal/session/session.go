// Package session keeps the signed-in user's token and profile between CLI
// invocations.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/backend"
)

var (
	ErrNoSession      = errors.New("no session; log in first")
	ErrSessionExpired = errors.New("session expired; log in again")
)

// Session is the persisted result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	User      backend.User `json:"user"`
	CreatedAt time.Time    `json:"created_at"`
}

// Identity returns the signed-in user as an auth identity.
func (s *Session) Identity() *auth.Identity {
	return &auth.Identity{
		UserID:   s.User.ID,
		TenantID: s.User.TenantID,
		Email:    s.User.Email,
		Name:     s.User.Name,
		Role:     s.User.Role,
	}
}

// Store persists at most one session.
type Store interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

// TokenValidator checks a stored token before the session is trusted.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Identity, error)
}

// Begin records a new session after login, replacing any previous one.
func Begin(store Store, token string, user backend.User) (*Session, error) {
	s := &Session{Token: token, User: user, CreatedAt: time.Now().UTC()}
	if err := store.Save(s); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return s, nil
}

// Init restores the stored session. A token that no longer validates clears
// the session. Role and tenant come from the token claims, so a stale profile
// cannot widen access.
func Init(store Store, tokens TokenValidator) (*Session, error) {
	s, err := store.Load()
	if err != nil {
		return nil, err
	}

	claims, err := tokens.ValidateToken(s.Token)
	if err != nil {
		if clearErr := store.Clear(); clearErr != nil {
			slog.Warn("clearing stale session", "error", clearErr)
		}
		if errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenInvalid) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("validating session token: %w", err)
	}

	s.User.Role = claims.Role
	s.User.TenantID = claims.TenantID
	if s.User.ID == "" {
		s.User.ID = claims.UserID
	}
	return s, nil
}

// End logs out. Ending a session that does not exist is not an error.
func End(store Store) error {
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
