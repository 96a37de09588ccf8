package rbac

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/google/uuid"
)

// AuditLogger is the audit interface for RBAC denial logging.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent)
}

// AuditEvent captures an auditable action.
type AuditEvent struct {
	TenantID     uuid.UUID
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	Metadata     map[string]any
	Source       string
}

// MiddlewareOption configures RBAC middleware behavior.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	audit AuditLogger
}

// WithAuditLogger attaches an audit logger to log RBAC denials.
func WithAuditLogger(logger AuditLogger) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.audit = logger
	}
}

// RequireAccess returns middleware that checks the authenticated user's role
// allows action on resource.
func RequireAccess(engine PolicyEngine, resource Resource, action Action, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	var mc middlewareConfig
	for _, opt := range opts {
		opt(&mc)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.GetIdentity(r.Context())
			if identity == nil {
				writeError(w, http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
				return
			}

			// unknown roles are denied inside Decide
			decision := engine.Decide(Role(identity.Role), nil, resource, action)
			if !decision.Allowed {
				if mc.audit != nil {
					evt := AuditEvent{
						Action:       "access.denied",
						ResourceType: string(resource),
						Metadata: map[string]any{
							"permission": string(resource) + ":" + string(action),
							"reason":     decision.Reason,
						},
						Source: "api",
					}
					if tid, err := uuid.Parse(identity.TenantID); err == nil {
						evt.TenantID = tid
					}
					if uid, err := uuid.Parse(identity.UserID); err == nil {
						evt.UserID = &uid
					}
					mc.audit.Log(r.Context(), evt)
				}
				writeError(w, http.StatusForbidden, map[string]string{
					"error":  "forbidden",
					"reason": decision.Reason,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
