// Package dashboard serves the signed-in shell of the tenant console: the
// role-filtered navigation, access checks and the user permission grid.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chatpilot-hq/console/internal/audit"
	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/backend"
	"github.com/chatpilot-hq/console/internal/editor"
	"github.com/chatpilot-hq/console/internal/platform/middleware"
	"github.com/chatpilot-hq/console/internal/rbac"
)

const maxBodyBytes = 64 << 10

// Backend is the subset of the backend client the dashboard forwards to.
type Backend interface {
	Me(ctx context.Context) (*backend.User, error)
	ListTenantUsers(ctx context.Context) ([]backend.User, error)
	InviteUser(ctx context.Context, req backend.InviteRequest) (*backend.Invitation, error)
	DeleteUser(ctx context.Context, userID string) error
	UserPermissions(ctx context.Context, userID string) ([]rbac.Grant, error)
	SetUserPermissions(ctx context.Context, userID string, grants []rbac.Grant) error
}

// Handler serves dashboard endpoints.
type Handler struct {
	backend Backend
	engine  rbac.PolicyEngine
	menu    []rbac.MenuItem
	audit   audit.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMenu replaces the default navigation.
func WithMenu(menu []rbac.MenuItem) Option {
	return func(h *Handler) { h.menu = menu }
}

// WithAuditLogger records permission and user changes.
func WithAuditLogger(l audit.Logger) Option {
	return func(h *Handler) { h.audit = l }
}

func NewHandler(b Backend, engine rbac.PolicyEngine, opts ...Option) *Handler {
	h := &Handler{
		backend: b,
		engine:  engine,
		menu:    rbac.DefaultMenu(),
		audit:   audit.NopLogger{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the dashboard on mux. Routes that change or expose
// other users are guarded by RequireAccess.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, opts ...rbac.MiddlewareOption) {
	guard := func(res rbac.Resource, act rbac.Action, fn http.HandlerFunc) http.Handler {
		return rbac.RequireAccess(h.engine, res, act, opts...)(fn)
	}

	mux.HandleFunc("GET /api/v1/shell", h.HandleShell)
	mux.HandleFunc("GET /api/v1/access", h.HandleAccess)
	mux.Handle("GET /api/v1/users", guard(rbac.ResourceUsers, rbac.ActionRead, h.HandleListUsers))
	mux.Handle("POST /api/v1/users/invite", guard(rbac.ResourceUsers, rbac.ActionCreate, h.HandleInvite))
	mux.Handle("DELETE /api/v1/users/{id}", guard(rbac.ResourceUsers, rbac.ActionDelete, h.HandleDeleteUser))
	mux.Handle("GET /api/v1/users/{id}/permissions", guard(rbac.ResourceUsers, rbac.ActionUpdate, h.HandleGetPermissions))
	mux.Handle("PUT /api/v1/users/{id}/permissions", guard(rbac.ResourceUsers, rbac.ActionUpdate, h.HandlePutPermissions))
}

type activeTab struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type shellResponse struct {
	User      backend.User    `json:"user"`
	Role      string          `json:"role"`
	RoleLabel string          `json:"role_label"`
	Menu      []rbac.MenuItem `json:"menu"`
	Active    *activeTab      `json:"active,omitempty"`
}

// HandleShell returns the signed-in user and the navigation their role sees.
// ?tab selects the active item; without it the first visible item is active.
func (h *Handler) HandleShell(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	user, err := h.backend.Me(forward(r))
	if err != nil {
		writeBackendError(w, r, err, "fetching current user failed")
		return
	}

	role := rbac.Role(identity.Role)
	visible := rbac.VisibleMenu(role, h.menu)
	resp := shellResponse{
		User:      *user,
		Role:      identity.Role,
		RoleLabel: role.Label(),
		Menu:      visible,
	}

	tab := r.URL.Query().Get("tab")
	switch {
	case tab != "":
		label, ok := rbac.ActiveLabel(visible, tab)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": rbac.ErrMenuItemNotFound.Error()})
			return
		}
		resp.Active = &activeTab{ID: tab, Label: label}
	case len(visible) > 0:
		resp.Active = &activeTab{ID: visible[0].ID, Label: visible[0].Label}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleAccess reports whether the caller's role allows ?action on ?resource.
func (h *Handler) HandleAccess(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	q := r.URL.Query()
	resource, action := q.Get("resource"), q.Get("action")
	if resource == "" || action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "resource and action are required"})
		return
	}

	d := h.engine.Decide(rbac.Role(identity.Role), nil, rbac.Resource(resource), rbac.Action(action))
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.backend.ListTenantUsers(forward(r))
	if err != nil {
		writeBackendError(w, r, err, "listing users failed")
		return
	}
	if users == nil {
		users = []backend.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleInvite creates a user. The temporary password is passed through in
// the response and never logged.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req backend.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Permissions) > 0 {
		ps, err := rbac.ParseGrantList(req.Permissions)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		req.Permissions = ps.GrantList()
	}

	inv, err := h.backend.InviteUser(forward(r), req)
	if err != nil {
		writeBackendError(w, r, err, "inviting user failed")
		return
	}

	h.audit.Log(r.Context(), h.event(r, audit.ActionUserInvited, inv.User.ID, map[string]any{
		"role": inv.User.Role,
	}))
	writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user id"})
		return
	}
	if identity := auth.GetIdentity(r.Context()); identity != nil && identity.UserID == id {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot delete yourself"})
		return
	}

	if err := h.backend.DeleteUser(forward(r), id); err != nil {
		writeBackendError(w, r, err, "deleting user failed")
		return
	}

	h.audit.Log(r.Context(), h.event(r, audit.ActionUserDeleted, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type permissionsResponse struct {
	UserID      string       `json:"user_id"`
	Permissions []rbac.Grant `json:"permissions"`
	Rows        []editor.Row `json:"rows"`
}

// HandleGetPermissions returns the user's grants and the editor grid built
// from them. Unrecognised backend entries are dropped from both.
func (h *Handler) HandleGetPermissions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	grants, err := h.backend.UserPermissions(forward(r), id)
	if err != nil {
		writeBackendError(w, r, err, "fetching permissions failed")
		return
	}

	ps, err := rbac.FromGrantList(grants)
	if err != nil {
		slog.Warn("dropping unrecognised grants", "user_id", id, "error", err)
	}

	writeJSON(w, http.StatusOK, permissionsResponse{
		UserID:      id,
		Permissions: ps.GrantList(),
		Rows:        editor.BuildRows(ps),
	})
}

// HandlePutPermissions replaces the user's grants. The body must be a valid
// grant list; it is normalised before it is forwarded.
func (h *Handler) HandlePutPermissions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var grants []rbac.Grant
	if err := json.NewDecoder(r.Body).Decode(&grants); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	ps, err := rbac.ParseGrantList(grants)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	normalised := ps.GrantList()
	if err := h.backend.SetUserPermissions(forward(r), id, normalised); err != nil {
		writeBackendError(w, r, err, "saving permissions failed")
		return
	}

	h.audit.Log(r.Context(), h.event(r, audit.ActionPermissionsUpdated, id, map[string]any{
		audit.MetadataGrants: normalised,
	}))
	writeJSON(w, http.StatusOK, permissionsResponse{
		UserID:      id,
		Permissions: normalised,
		Rows:        editor.BuildRows(ps),
	})
}

func (h *Handler) event(r *http.Request, action, userID string, metadata map[string]any) audit.Event {
	if metadata == nil {
		metadata = map[string]any{}
	}
	if reqID := middleware.GetRequestID(r.Context()); reqID != "" {
		metadata[audit.MetadataRequestID] = reqID
	}
	return audit.Event{
		TenantID:     audit.TenantIDFromContext(r.Context()),
		UserID:       audit.ActorIDFromContext(r.Context()),
		Action:       action,
		ResourceType: string(rbac.ResourceUsers),
		ResourceID:   userID,
		Metadata:     metadata,
		Source:       "api",
	}
}

// forward carries the caller's bearer token through to the backend.
func forward(r *http.Request) context.Context {
	return backend.ContextWithToken(r.Context(), auth.GetToken(r.Context()))
}

func writeBackendError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, backend.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, backend.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "backend rejected credentials"})
	case errors.Is(err, backend.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, backend.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		slog.ErrorContext(r.Context(), msg, "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
