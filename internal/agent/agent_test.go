package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/llm"
	"github.com/klix-code/klix/internal/repository"
	"github.com/klix-code/klix/internal/service"
	"github.com/klix-code/klix/internal/testutil"
	"github.com/klix-code/klix/internal/tools"
	"github.com/klix-code/klix/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays canned responses and records every request.
type scriptedClient struct {
	responses []string
	err       error
	requests  []llm.GenerateRequest
}

func (c *scriptedClient) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	idx := len(c.requests) - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return &llm.GenerateResponse{Text: c.responses[idx], Model: "scripted"}, nil
}

func (c *scriptedClient) Available(context.Context) bool { return true }
func (c *scriptedClient) Model() string                  { return "scripted" }

func newEchoRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	require.NoError(t, r.Register(&tools.Tool{
		Name:        "echo",
		Description: "echoes its input",
		Schema: tools.Schema{
			Required: []string{"text"},
			Properties: map[string]tools.Property{
				"text": {Type: "string", Description: "text to echo"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	}))
	return r
}

func TestRun_PlainTextAnswer(t *testing.T) {
	client := &scriptedClient{responses: []string{"just a plain answer"}}
	a := New(client, newEchoRegistry(t))

	answer, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "just a plain answer", answer)
	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].SystemPrompt, `"echo"`)
	assert.Equal(t, llm.TaskChat, client.requests[0].Task)
}

func TestRun_FinalJSONAnswer(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"tool_calls": [], "final": "all done"}`}}
	a := New(client, newEchoRegistry(t))

	answer, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "all done", answer)
}

func TestRun_ToolCallThenAnswer(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"tool_calls": [{"name": "echo", "arguments": {"text": "ping"}}], "final": ""}`,
		`{"tool_calls": [], "final": "the tool said ping"}`,
	}}
	a := New(client, newEchoRegistry(t))

	answer, err := a.Run(context.Background(), "run the echo tool")
	require.NoError(t, err)
	assert.Equal(t, "the tool said ping", answer)

	// The second request carries the tool result back to the model.
	require.Len(t, client.requests, 2)
	last := client.requests[1].History[len(client.requests[1].History)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Contains(t, last.Content, "Tool results:")
	assert.Contains(t, last.Content, "[echo]")
	assert.Contains(t, last.Content, "ping")
}

func TestRun_ToolFailureFedBack(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"tool_calls": [{"name": "no_such_tool", "arguments": {}}], "final": ""}`,
		`{"tool_calls": [], "final": "could not run that"}`,
	}}
	a := New(client, newEchoRegistry(t))

	answer, err := a.Run(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.Equal(t, "could not run that", answer)

	last := client.requests[1].History[len(client.requests[1].History)-1]
	assert.Contains(t, last.Content, "error:")
	assert.Contains(t, last.Content, "not found")
}

func TestRun_MaxIterations(t *testing.T) {
	// The model keeps asking for tools and never settles.
	client := &scriptedClient{responses: []string{
		`{"tool_calls": [{"name": "echo", "arguments": {"text": "again"}}], "final": ""}`,
	}}
	a := New(client, newEchoRegistry(t), WithMaxIterations(3))

	_, err := a.Run(context.Background(), "loop forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 iterations")
	assert.Len(t, client.requests, 3)
}

func TestRun_GenerateError(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	a := New(client, newEchoRegistry(t))

	_, err := a.Run(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRun_HistoryBudget(t *testing.T) {
	client := &scriptedClient{responses: []string{"ok"}}
	a := New(client, newEchoRegistry(t), WithHistoryBudget(4))

	for i := 0; i < 5; i++ {
		_, err := a.Run(context.Background(), fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	history := a.History()
	assert.Len(t, history, 4)
	// Oldest turns dropped; the latest exchange survives.
	assert.Equal(t, "message 4", history[len(history)-2].Content)
}

func TestRun_Reset(t *testing.T) {
	client := &scriptedClient{responses: []string{"ok"}}
	a := New(client, newEchoRegistry(t))

	_, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.NotEmpty(t, a.History())

	a.Reset()
	assert.Empty(t, a.History())
}

func TestRun_MemoryRecallInSystemPrompt(t *testing.T) {
	database := testutil.NewTestDB(t)
	memories := service.NewMemoryService(repository.NewSQLiteMemoryRepo(database))
	_, err := memories.Remember(context.Background(), "the project builds with make", nil, domain.MemorySourceUser)
	require.NoError(t, err)

	client := &scriptedClient{responses: []string{"ok"}}
	a := New(client, newEchoRegistry(t), WithMemory(memories))

	_, err = a.Run(context.Background(), "how do I build this project?")
	require.NoError(t, err)
	assert.Contains(t, client.requests[0].SystemPrompt, "the project builds with make")
}

func TestRun_TraceRecorded(t *testing.T) {
	database := testutil.NewTestDB(t)
	traceRepo := repository.NewSQLiteTraceRepo(database)
	recorder := trace.NewRecorder(traceRepo, true)
	ctx := context.Background()
	sessionID := recorder.StartSession(ctx, "scripted", "scripted", nil)

	client := &scriptedClient{responses: []string{
		`{"tool_calls": [{"name": "echo", "arguments": {"text": "hi"}}], "final": ""}`,
		`{"tool_calls": [], "final": "done"}`,
	}}
	a := New(client, newEchoRegistry(t), WithRecorder(recorder))

	_, err := a.Run(ctx, "trace me")
	require.NoError(t, err)

	events, err := traceRepo.ListEvents(ctx, sessionID)
	require.NoError(t, err)

	var types []domain.TraceEventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []domain.TraceEventType{
		domain.TraceEventUserMessage,
		domain.TraceEventLLMResponse,
		domain.TraceEventToolCall,
		domain.TraceEventToolResult,
		domain.TraceEventLLMResponse,
	}, types)
}

func TestMemorySaveTool(t *testing.T) {
	database := testutil.NewTestDB(t)
	memories := service.NewMemoryService(repository.NewSQLiteMemoryRepo(database))

	r := tools.NewRegistry()
	require.NoError(t, r.Register(MemorySaveTool(memories)))

	res := r.Execute(context.Background(), "memory_save", map[string]any{
		"content": "user prefers short answers",
		"tags":    "style, preferences",
	})
	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Output, "saved")

	entries, err := memories.Recall(context.Background(), "short answers", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.MemorySourceAgent, entries[0].Source)
	assert.True(t, entries[0].HasTag("style"))
	assert.True(t, entries[0].HasTag("preferences"))
}
