package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chatpilot-hq/console/internal/platform/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSink records written batches.
type mockSink struct {
	mu      sync.Mutex
	batches int
	events  []Event
}

func (m *mockSink) Write(_ context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	m.events = append(m.events, events...)
	return nil
}

func (m *mockSink) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches, len(m.events)
}

func TestAsyncLogger_FlushesOnInterval(t *testing.T) {
	sink := &mockSink{}
	logger := NewAsyncLogger(sink, LoggerConfig{
		BufferSize:    100,
		BatchSize:     10,
		FlushInterval: 50 * time.Millisecond,
	})

	logger.Log(context.Background(), Event{
		TenantID: uuid.New(),
		Action:   ActionPermissionsUpdated,
		Source:   "test",
	})

	assert.Eventually(t, func() bool {
		batches, _ := sink.counts()
		return batches >= 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, logger.Close())
}

func TestAsyncLogger_FlushesOnBatchSize(t *testing.T) {
	sink := &mockSink{}
	logger := NewAsyncLogger(sink, LoggerConfig{
		BufferSize:    100,
		BatchSize:     3,
		FlushInterval: 10 * time.Second,
	})

	for i := 0; i < 3; i++ {
		logger.Log(context.Background(), Event{Action: ActionAccessDenied, Source: "test"})
	}

	assert.Eventually(t, func() bool {
		_, events := sink.counts()
		return events == 3
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, logger.Close())
}

func TestAsyncLogger_CloseDrains(t *testing.T) {
	sink := &mockSink{}
	logger := NewAsyncLogger(sink, LoggerConfig{
		BufferSize:    100,
		BatchSize:     100,
		FlushInterval: 10 * time.Second,
	})

	for i := 0; i < 5; i++ {
		logger.Log(context.Background(), Event{Action: ActionUserInvited, Source: "test"})
	}

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	_, events := sink.counts()
	assert.Equal(t, 5, events)
}

func TestAsyncLogger_DropsWhenBufferFull(t *testing.T) {
	sink := &mockSink{}
	logger := NewAsyncLogger(sink, LoggerConfig{
		BufferSize:    2,
		BatchSize:     100,
		FlushInterval: 10 * time.Second,
	})

	for i := 0; i < 10; i++ {
		logger.Log(context.Background(), Event{Action: ActionAccessDenied, Source: "test"})
	}

	require.NoError(t, logger.Close())
	_, events := sink.counts()
	assert.LessOrEqual(t, events, 10)
}

func TestSlogSink_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	sink := SlogSink{Logger: telemetry.NewLogger("info", "json", &buf)}

	uid := uuid.MustParse("6f1c2f7e-0d8e-4a55-9b1e-2f7d1c9b8a11")
	err := sink.Write(context.Background(), []Event{{
		TenantID:     uuid.MustParse("0b7c8d9e-1f2a-4b3c-8d4e-5f6a7b8c9d0e"),
		UserID:       &uid,
		Action:       ActionPermissionsUpdated,
		ResourceType: "users",
		ResourceID:   "user-9",
		Metadata:     map[string]any{MetadataGrants: 2},
		Source:       "api",
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "audit event", entry["msg"])
	assert.Equal(t, ActionPermissionsUpdated, entry["action"])
	assert.Equal(t, uid.String(), entry["user_id"])
	assert.Equal(t, "user-9", entry["resource_id"])
}
