package trace

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/repository"
	"github.com/klix-code/klix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*Recorder, repository.TraceRepo) {
	t.Helper()
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTraceRepo(database)
	return NewRecorder(repo, true), repo
}

func TestRecorder_StartSession(t *testing.T) {
	rec, repo := newTestRecorder(t)
	ctx := context.Background()

	id := rec.StartSession(ctx, "ollama", "qwen2.5-coder:3b", map[string]string{"mode": "chat"})
	require.NotEmpty(t, id)
	assert.True(t, strings.HasPrefix(id, "trace_"))
	assert.Equal(t, id, rec.SessionID())

	session, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ollama", session.Provider)
	assert.Equal(t, "qwen2.5-coder:3b", session.Model)
	assert.Equal(t, "chat", session.Metadata["mode"])
	assert.Nil(t, session.EndedAt)
}

func TestRecorder_SessionIDFormat(t *testing.T) {
	rec, _ := newTestRecorder(t)
	rec.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	id := rec.StartSession(context.Background(), "ollama", "m", nil)
	assert.True(t, strings.HasPrefix(id, "trace_20260314_092653_"))
	// Prefix, timestamp, and an 8-char suffix.
	parts := strings.Split(id, "_")
	require.Len(t, parts, 4)
	assert.Len(t, parts[3], 8)
}

func TestRecorder_EventsRecordedInOrder(t *testing.T) {
	rec, repo := newTestRecorder(t)
	ctx := context.Background()

	id := rec.StartSession(ctx, "ollama", "m", nil)
	rec.LogUserMessage(ctx, "list the files")
	rec.LogLLMResponse(ctx, "calling ls", []map[string]any{{"name": "ls"}})
	rec.LogToolCall(ctx, "ls", map[string]any{"path": "."})
	rec.LogToolResult(ctx, "ls", map[string]any{"path": "."}, "main.go")

	events, err := repo.ListEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, domain.TraceEventUserMessage, events[0].Type)
	assert.Equal(t, "list the files", events[0].Payload["content"])
	assert.Equal(t, domain.TraceEventLLMResponse, events[1].Type)
	assert.Equal(t, domain.TraceEventToolCall, events[2].Type)
	assert.Equal(t, "ls", events[2].Payload["tool_name"])
	assert.Equal(t, domain.TraceEventToolResult, events[3].Type)
	assert.Equal(t, "main.go", events[3].Payload["result"])
}

func TestRecorder_LogError(t *testing.T) {
	rec, repo := newTestRecorder(t)
	ctx := context.Background()

	id := rec.StartSession(ctx, "ollama", "m", nil)
	rec.LogError(ctx, assert.AnError)
	rec.LogError(ctx, nil)

	events, err := repo.ListEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.TraceEventError, events[0].Type)
	assert.Contains(t, events[0].Payload["error"], "assert.AnError")
}

func TestRecorder_EndSession(t *testing.T) {
	rec, repo := newTestRecorder(t)
	ctx := context.Background()

	id := rec.StartSession(ctx, "ollama", "m", nil)
	rec.EndSession(ctx)

	assert.Empty(t, rec.SessionID())
	session, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, session.EndedAt)
}

func TestRecorder_DisabledIsNoop(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTraceRepo(database)
	rec := NewRecorder(repo, false)
	ctx := context.Background()

	assert.False(t, rec.Enabled())
	assert.Empty(t, rec.StartSession(ctx, "ollama", "m", nil))
	rec.LogUserMessage(ctx, "hi")
	rec.EndSession(ctx)

	sessions, err := repo.ListSessions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRecorder_EventsBeforeSessionIgnored(t *testing.T) {
	rec, repo := newTestRecorder(t)
	ctx := context.Background()

	rec.LogUserMessage(ctx, "orphan")

	sessions, err := repo.ListSessions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRecorder_ExportSession(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()

	id := rec.StartSession(ctx, "gemini", "gemini-2.0-flash", map[string]string{"mode": "chat"})
	rec.LogUserMessage(ctx, "hello")
	rec.LogLLMResponse(ctx, "hi there", nil)
	rec.EndSession(ctx)

	out, err := rec.ExportSession(ctx, id)
	require.NoError(t, err)

	var export Export
	require.NoError(t, json.Unmarshal([]byte(out), &export))
	assert.Equal(t, id, export.SessionID)
	assert.Equal(t, "gemini", export.Provider)
	assert.Equal(t, 2, export.TotalEvents)
	require.Len(t, export.Events, 2)
	assert.Equal(t, domain.TraceEventUserMessage, export.Events[0].Type)
	assert.Equal(t, "hello", export.Events[0].Payload["content"])
	require.NotNil(t, export.EndedAt)
}

func TestRecorder_ExportUnknownSession(t *testing.T) {
	rec, _ := newTestRecorder(t)

	_, err := rec.ExportSession(context.Background(), "trace_nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
