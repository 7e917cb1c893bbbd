package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/klix-code/klix/internal/domain"
)

// Task options
type TaskOption func(*domain.Task)

func WithStatus(s domain.Status) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
	}
}

func WithEstimate(min, max float64) TaskOption {
	return func(t *domain.Task) {
		t.EstimateMinHours = min
		t.EstimateMaxHours = max
	}
}

func WithDeps(ids ...string) TaskOption {
	return func(t *domain.Task) {
		t.DependsOn = ids
	}
}

func WithCompletionPct(pct int) TaskOption {
	return func(t *domain.Task) {
		t.CompletionPct = pct
	}
}

func WithSubtasks(subs ...domain.Subtask) TaskOption {
	return func(t *domain.Task) {
		t.Subtasks = subs
	}
}

func WithNotes(notes ...string) TaskOption {
	return func(t *domain.Task) {
		t.Notes = notes
	}
}

// NewTestTask builds a task whose priority is derived from the ID prefix.
func NewTestTask(id, title string, opts ...TaskOption) *domain.Task {
	prio, _, _ := domain.ParseTaskID(id)
	t := &domain.Task{
		ID:            id,
		Title:         title,
		Priority:      prio,
		CompletionPct: -1,
		Status:        domain.StatusPending,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Memory options
type MemoryOption func(*domain.MemoryEntry)

func WithTags(tags ...string) MemoryOption {
	return func(m *domain.MemoryEntry) {
		m.Tags = tags
	}
}

func WithSource(s domain.MemorySource) MemoryOption {
	return func(m *domain.MemoryEntry) {
		m.Source = s
	}
}

func WithCreatedAt(t time.Time) MemoryOption {
	return func(m *domain.MemoryEntry) {
		m.CreatedAt = t
	}
}

func NewTestMemory(content string, opts ...MemoryOption) *domain.MemoryEntry {
	m := &domain.MemoryEntry{
		ID:        uuid.New().String(),
		Content:   content,
		Source:    domain.MemorySourceUser,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Trace options
type TraceSessionOption func(*domain.TraceSession)

func WithModel(provider, model string) TraceSessionOption {
	return func(s *domain.TraceSession) {
		s.Provider = provider
		s.Model = model
	}
}

func WithStartedAt(t time.Time) TraceSessionOption {
	return func(s *domain.TraceSession) {
		s.StartedAt = t
	}
}

func NewTestTraceSession(id string, opts ...TraceSessionOption) *domain.TraceSession {
	s := &domain.TraceSession{
		ID:        id,
		StartedAt: time.Now().UTC(),
		Provider:  "ollama",
		Model:     "qwen2.5-coder:3b",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTestUpdateEntry builds a dated update log entry.
func NewTestUpdateEntry(date string, lines []string, taskIDs ...string) domain.UpdateEntry {
	d, _ := time.Parse("2006-01-02", date)
	return domain.UpdateEntry{Date: d, Lines: lines, TaskIDs: taskIDs}
}
