// Package agent implements the conversation loop: it hands the user's
// message and the tool catalog to the LLM, executes requested tool
// calls, feeds results back, and repeats until the model produces a
// final answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/llm"
	"github.com/klix-code/klix/internal/logging"
	"github.com/klix-code/klix/internal/service"
	"github.com/klix-code/klix/internal/tools"
	"github.com/klix-code/klix/internal/trace"
)

const (
	defaultMaxIterations = 10
	defaultHistoryBudget = 40
	recallLimit          = 5
)

// Agent drives one conversation with the model.
type Agent struct {
	client   llm.Client
	registry *tools.Registry
	executor *tools.ParallelExecutor
	memory   service.MemoryService
	recorder *trace.Recorder
	log      *slog.Logger

	history       []llm.Message
	maxIterations int
	historyBudget int
}

// Option configures an Agent.
type Option func(*Agent)

// WithMemory lets the agent recall stored facts and save new ones.
func WithMemory(m service.MemoryService) Option {
	return func(a *Agent) { a.memory = m }
}

// WithRecorder attaches a reasoning-trace recorder.
func WithRecorder(r *trace.Recorder) Option {
	return func(a *Agent) { a.recorder = r }
}

// WithMaxIterations bounds the tool-call loop per user message.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithHistoryBudget bounds the retained conversation messages.
func WithHistoryBudget(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.historyBudget = n
		}
	}
}

// WithParallelLimit bounds concurrent tool execution.
func WithParallelLimit(n int) Option {
	return func(a *Agent) {
		a.executor = tools.NewParallelExecutor(a.registry, n)
	}
}

// New creates an agent over the given model client and tool registry.
func New(client llm.Client, registry *tools.Registry, opts ...Option) *Agent {
	a := &Agent{
		client:        client,
		registry:      registry,
		executor:      tools.NewParallelExecutor(registry, 0),
		recorder:      trace.NewRecorder(nil, false),
		log:           logging.Named("agent"),
		maxIterations: defaultMaxIterations,
		historyBudget: defaultHistoryBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// turn is the structured reply contract the model is asked to follow.
type turn struct {
	ToolCalls []toolCall `json:"tool_calls"`
	Final     string     `json:"final"`
}

type toolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// History returns the retained conversation, oldest first.
func (a *Agent) History() []llm.Message {
	return a.history
}

// Reset clears the conversation history.
func (a *Agent) Reset() {
	a.history = nil
}

// Run processes one user message and returns the model's final answer.
func (a *Agent) Run(ctx context.Context, userMsg string) (string, error) {
	a.recorder.LogUserMessage(ctx, userMsg)

	systemPrompt, err := a.buildSystemPrompt(ctx, userMsg)
	if err != nil {
		return "", err
	}

	a.append(llm.Message{Role: llm.RoleUser, Content: userMsg})

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.client.Generate(ctx, llm.GenerateRequest{
			Task:         llm.TaskChat,
			SystemPrompt: systemPrompt,
			History:      a.history,
		})
		if err != nil {
			a.recorder.LogError(ctx, err)
			return "", fmt.Errorf("generating response: %w", err)
		}

		reply, extractErr := llm.ExtractJSON[turn](resp.Text, nil)
		if extractErr != nil {
			// Plain text is a valid final answer.
			a.recorder.LogLLMResponse(ctx, resp.Text, nil)
			a.append(llm.Message{Role: llm.RoleAssistant, Content: resp.Text})
			return resp.Text, nil
		}
		a.recorder.LogLLMResponse(ctx, resp.Text, toolCallPayload(reply.ToolCalls))
		a.append(llm.Message{Role: llm.RoleAssistant, Content: resp.Text})

		if len(reply.ToolCalls) == 0 {
			final := reply.Final
			if final == "" {
				final = resp.Text
			}
			return final, nil
		}

		a.append(llm.Message{Role: llm.RoleUser, Content: a.executeCalls(ctx, reply.ToolCalls)})
	}

	err = fmt.Errorf("tool loop did not settle after %d iterations", a.maxIterations)
	a.recorder.LogError(ctx, err)
	return "", err
}

// executeCalls runs the requested tools and renders their results as the
// next conversation turn.
func (a *Agent) executeCalls(ctx context.Context, requested []toolCall) string {
	calls := make([]tools.Call, len(requested))
	for i, tc := range requested {
		calls[i] = tools.Call{Name: tc.Name, Args: tc.Arguments}
		a.recorder.LogToolCall(ctx, tc.Name, tc.Arguments)
	}

	results := a.executor.Run(ctx, calls)

	var b strings.Builder
	b.WriteString("Tool results:\n")
	for i, res := range results {
		output := res.Output
		if !res.IsSuccess() {
			output = "error: " + res.Err.Error()
		}
		a.recorder.LogToolResult(ctx, res.ToolName, requested[i].Arguments, output)
		a.log.Debug("tool executed",
			"tool", res.ToolName, "success", res.IsSuccess(), "duration_ms", res.DurationMs)
		fmt.Fprintf(&b, "\n[%s]\n%s\n", res.ToolName, output)
	}
	return b.String()
}

func (a *Agent) buildSystemPrompt(ctx context.Context, userMsg string) (string, error) {
	catalog, err := a.registry.Catalog()
	if err != nil {
		return "", fmt.Errorf("building tool catalog: %w", err)
	}

	var b strings.Builder
	b.WriteString(`You are Klix, a coding assistant working inside the user's project.

Respond with a single JSON object:
  {"tool_calls": [{"name": "...", "arguments": {...}}], "final": "..."}
Use "tool_calls" when you need tool output before answering; leave it
empty and set "final" when you can answer directly.

Available tools:
`)
	b.WriteString(catalog)

	if a.memory != nil {
		entries, err := a.memory.Recall(ctx, userMsg, recallLimit)
		if err != nil {
			a.log.Warn("memory recall failed", "error", err)
		} else if len(entries) > 0 {
			b.WriteString("\n\nRelevant memory:\n")
			for _, e := range entries {
				fmt.Fprintf(&b, "- %s\n", e.Content)
			}
		}
	}
	return b.String(), nil
}

func (a *Agent) append(msg llm.Message) {
	a.history = append(a.history, msg)
	if len(a.history) > a.historyBudget {
		a.history = a.history[len(a.history)-a.historyBudget:]
	}
}

func toolCallPayload(calls []toolCall) []map[string]any {
	payload := make([]map[string]any, 0, len(calls))
	for _, tc := range calls {
		payload = append(payload, map[string]any{
			"name":      tc.Name,
			"arguments": tc.Arguments,
		})
	}
	return payload
}

// MemorySaveTool lets the model persist a notable fact for future
// sessions.
func MemorySaveTool(memories service.MemoryService) *tools.Tool {
	return &tools.Tool{
		Name:        "memory_save",
		Description: "Save a notable fact about the user or project to persistent memory.",
		Category:    tools.CategorySystem,
		Schema: tools.Schema{
			Required: []string{"content"},
			Properties: map[string]tools.Property{
				"content": {Type: "string", Description: "The fact to remember, one sentence."},
				"tags":    {Type: "string", Description: "Optional comma-separated tags."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			content, _ := args["content"].(string)
			var tags []string
			if raw, _ := args["tags"].(string); raw != "" {
				for _, tag := range strings.Split(raw, ",") {
					if tag = strings.TrimSpace(tag); tag != "" {
						tags = append(tags, tag)
					}
				}
			}
			entry, err := memories.Remember(ctx, content, tags, domain.MemorySourceAgent)
			if err != nil {
				return "", err
			}
			data, _ := json.Marshal(map[string]string{"id": entry.ID})
			return "saved " + string(data), nil
		},
	}
}
