// Package trace records reasoning traces: the sequence of user messages,
// model responses, tool calls and errors that make up one assistant
// session. Recording is best effort and never interrupts the
// conversation; storage failures are logged and swallowed.
package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/logging"
	"github.com/klix-code/klix/internal/repository"
)

// Recorder writes trace sessions and events through a TraceRepo. A
// disabled recorder is a no-op, so callers never need to branch on
// whether tracing is on.
type Recorder struct {
	repo    repository.TraceRepo
	enabled bool
	log     *slog.Logger

	sessionID string
	now       func() time.Time
}

// NewRecorder creates a recorder. When enabled is false every method is
// a no-op.
func NewRecorder(repo repository.TraceRepo, enabled bool) *Recorder {
	return &Recorder{
		repo:    repo,
		enabled: enabled,
		log:     logging.Named("trace"),
		now:     time.Now,
	}
}

// Enabled reports whether the recorder is actually writing traces.
func (r *Recorder) Enabled() bool {
	return r.enabled
}

// SessionID returns the current session identifier, or "" when no
// session is active.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// StartSession opens a new trace session and returns its ID.
func (r *Recorder) StartSession(ctx context.Context, provider, model string, metadata map[string]string) string {
	if !r.enabled {
		return ""
	}

	now := r.now().UTC()
	id := fmt.Sprintf("trace_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])

	session := &domain.TraceSession{
		ID:        id,
		StartedAt: now,
		Provider:  provider,
		Model:     model,
		Metadata:  metadata,
	}
	if err := r.repo.CreateSession(ctx, session); err != nil {
		r.log.Error("failed to start trace session", "error", err)
		return ""
	}

	r.sessionID = id
	r.log.Debug("started trace session", "session_id", id)
	return id
}

// EndSession closes the current session.
func (r *Recorder) EndSession(ctx context.Context) {
	if !r.enabled || r.sessionID == "" {
		return
	}
	if err := r.repo.EndSession(ctx, r.sessionID, r.now().UTC()); err != nil {
		r.log.Error("failed to end trace session", "session_id", r.sessionID, "error", err)
	}
	r.sessionID = ""
}

// LogUserMessage records one user turn.
func (r *Recorder) LogUserMessage(ctx context.Context, content string) {
	r.record(ctx, domain.TraceEventUserMessage, map[string]any{
		"content": content,
	})
}

// LogLLMResponse records a model reply along with the tool calls it
// requested.
func (r *Recorder) LogLLMResponse(ctx context.Context, content string, toolCalls []map[string]any) {
	if toolCalls == nil {
		toolCalls = []map[string]any{}
	}
	r.record(ctx, domain.TraceEventLLMResponse, map[string]any{
		"content":    content,
		"tool_calls": toolCalls,
	})
}

// LogToolCall records a tool invocation before it runs.
func (r *Recorder) LogToolCall(ctx context.Context, toolName string, arguments map[string]any) {
	r.record(ctx, domain.TraceEventToolCall, map[string]any{
		"tool_name": toolName,
		"arguments": arguments,
	})
}

// LogToolResult records the outcome of a tool invocation.
func (r *Recorder) LogToolResult(ctx context.Context, toolName string, arguments map[string]any, result string) {
	r.record(ctx, domain.TraceEventToolResult, map[string]any{
		"tool_name": toolName,
		"arguments": arguments,
		"result":    result,
	})
}

// LogError records a failure within the session.
func (r *Recorder) LogError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	r.record(ctx, domain.TraceEventError, map[string]any{
		"error": err.Error(),
	})
}

func (r *Recorder) record(ctx context.Context, eventType domain.TraceEventType, payload map[string]any) {
	if !r.enabled || r.sessionID == "" {
		return
	}
	event := &domain.TraceEvent{
		SessionID: r.sessionID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: r.now().UTC(),
	}
	if err := r.repo.AppendEvent(ctx, event); err != nil {
		r.log.Error("failed to record trace event", "type", eventType, "error", err)
	}
}

// Export is the JSON document produced for one session.
type Export struct {
	SessionID   string            `json:"session_id"`
	Provider    string            `json:"provider"`
	Model       string            `json:"model"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     *time.Time        `json:"ended_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	TotalEvents int               `json:"total_events"`
	Events      []ExportEvent     `json:"events"`
}

// ExportEvent is one event in an exported session.
type ExportEvent struct {
	Type      domain.TraceEventType `json:"event"`
	Timestamp time.Time             `json:"timestamp"`
	Payload   map[string]any        `json:"payload"`
}

// ExportSession renders a stored session as an indented JSON document.
func (r *Recorder) ExportSession(ctx context.Context, sessionID string) (string, error) {
	session, err := r.repo.GetSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	events, err := r.repo.ListEvents(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("loading events for %s: %w", sessionID, err)
	}

	export := Export{
		SessionID:   session.ID,
		Provider:    session.Provider,
		Model:       session.Model,
		StartedAt:   session.StartedAt,
		EndedAt:     session.EndedAt,
		Metadata:    session.Metadata,
		TotalEvents: len(events),
		Events:      make([]ExportEvent, 0, len(events)),
	}
	for _, e := range events {
		export.Events = append(export.Events, ExportEvent{
			Type:      e.Type,
			Timestamp: e.CreatedAt,
			Payload:   e.Payload,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding trace export: %w", err)
	}
	return string(data), nil
}
