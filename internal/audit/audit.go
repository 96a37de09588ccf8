package audit

import (
	"context"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/rbac"
	"github.com/google/uuid"
)

// Event represents a single auditable action taken through the console.
type Event struct {
	TenantID     uuid.UUID
	UserID       *uuid.UUID // nil when the actor id is not a UUID
	Action       string     // e.g. "permissions.updated", "access.denied"
	ResourceType string     // e.g. "users", "contacts"
	ResourceID   string
	Metadata     map[string]any
	Source       string // "api", "cli"
}

const (
	ActionAccessDenied       = "access.denied"
	ActionPermissionsUpdated = "permissions.updated"
	ActionUserInvited        = "user.invited"
	ActionUserDeleted        = "user.deleted"
)

const (
	MetadataPermission = "permission"
	MetadataReason     = "reason"
	MetadataGrants     = "grants"
	MetadataRequestID  = "request_id"
)

// Logger is the audit logging interface. Log is fire-and-forget.
type Logger interface {
	Log(ctx context.Context, event Event)
	Close() error
}

// NopLogger is a no-op audit logger for testing and when audit is disabled.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
func (NopLogger) Close() error               { return nil }

// ActorIDFromContext extracts the authenticated user's UUID from the
// request context, returning nil if no identity is present or the
// user ID is not a valid UUID.
func ActorIDFromContext(ctx context.Context) *uuid.UUID {
	identity := auth.GetIdentity(ctx)
	if identity == nil {
		return nil
	}
	uid, err := uuid.Parse(identity.UserID)
	if err != nil {
		return nil
	}
	return &uid
}

// TenantIDFromContext is ActorIDFromContext for the tenant, returning
// uuid.Nil when absent or malformed.
func TenantIDFromContext(ctx context.Context) uuid.UUID {
	identity := auth.GetIdentity(ctx)
	if identity == nil {
		return uuid.Nil
	}
	tid, err := uuid.Parse(identity.TenantID)
	if err != nil {
		return uuid.Nil
	}
	return tid
}

// RBACAdapter lets an audit Logger receive RBAC middleware denials.
type RBACAdapter struct {
	Logger Logger
}

func (a RBACAdapter) Log(ctx context.Context, evt rbac.AuditEvent) {
	a.Logger.Log(ctx, Event{
		TenantID:     evt.TenantID,
		UserID:       evt.UserID,
		Action:       evt.Action,
		ResourceType: evt.ResourceType,
		Metadata:     evt.Metadata,
		Source:       evt.Source,
	})
}

var _ rbac.AuditLogger = RBACAdapter{}
