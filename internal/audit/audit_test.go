package audit

import (
	"context"
	"testing"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/rbac"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	events []Event
}

func (c *captureLogger) Log(_ context.Context, e Event) { c.events = append(c.events, e) }
func (c *captureLogger) Close() error                  { return nil }

func TestActorIDFromContext(t *testing.T) {
	assert.Nil(t, ActorIDFromContext(context.Background()))

	ctx := auth.WithIdentity(context.Background(), &auth.Identity{UserID: "not-a-uuid"})
	assert.Nil(t, ActorIDFromContext(ctx))

	id := uuid.New()
	ctx = auth.WithIdentity(context.Background(), &auth.Identity{UserID: id.String(), TenantID: "bad"})
	got := ActorIDFromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)
	assert.Equal(t, uuid.Nil, TenantIDFromContext(ctx))
}

func TestRBACAdapter_ForwardsDenial(t *testing.T) {
	capture := &captureLogger{}
	tid := uuid.New()

	RBACAdapter{Logger: capture}.Log(context.Background(), rbac.AuditEvent{
		TenantID:     tid,
		Action:       ActionAccessDenied,
		ResourceType: "users",
		Metadata:     map[string]any{MetadataReason: "no permission"},
		Source:       "api",
	})

	require.Len(t, capture.events, 1)
	assert.Equal(t, tid, capture.events[0].TenantID)
	assert.Equal(t, ActionAccessDenied, capture.events[0].Action)
	assert.Equal(t, "no permission", capture.events[0].Metadata[MetadataReason])
}
