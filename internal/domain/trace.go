package domain

import "time"

// TraceEventType classifies entries in a reasoning trace.
type TraceEventType string

const (
	TraceEventUserMessage TraceEventType = "user_message"
	TraceEventLLMResponse TraceEventType = "llm_response"
	TraceEventToolCall    TraceEventType = "tool_call"
	TraceEventToolResult  TraceEventType = "tool_result"
	TraceEventError       TraceEventType = "error"
)

// TraceSession groups the events of one assistant conversation.
type TraceSession struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Provider  string
	Model     string
	Metadata  map[string]string
}

// TraceEvent is a single recorded step within a session.
type TraceEvent struct {
	ID        int64
	SessionID string
	Type      TraceEventType
	Payload   map[string]any
	CreatedAt time.Time
}
