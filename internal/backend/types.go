package backend

import (
	"github.com/chatpilot-hq/console/internal/rbac"
)

// User is the backend's public view of an account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Name       string `json:"name" validate:"required"`
	TenantName string `json:"tenant_name,omitempty"`
}

// AuthResult is returned by login and signup.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type InviteRequest struct {
	Name        string       `json:"name" validate:"required"`
	Email       string       `json:"email" validate:"required,email"`
	Role        string       `json:"role" validate:"required,tenant_role"`
	Permissions []rbac.Grant `json:"permissions"`
}

// Invitation is the created account plus the one-time password the backend
// generated for it.
type Invitation struct {
	User              User   `json:"user"`
	TemporaryPassword string `json:"temporary_password"`
}

type permissionsEnvelope struct {
	Permissions []rbac.Grant `json:"permissions"`
}
