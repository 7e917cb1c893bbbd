package repository

import (
	"context"
	"time"

	"github.com/klix-code/klix/internal/domain"
)

type TaskRepo interface {
	Upsert(ctx context.Context, t *domain.Task, position int) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context) ([]*domain.Task, error)
	ListByPriority(ctx context.Context, p domain.Priority) ([]*domain.Task, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, completionPct int) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type UpdateLogRepo interface {
	Append(ctx context.Context, e domain.UpdateEntry, position int) error
	List(ctx context.Context) ([]domain.UpdateEntry, error)
	DeleteAll(ctx context.Context) error
}

type MemoryRepo interface {
	Create(ctx context.Context, m *domain.MemoryEntry) error
	GetByID(ctx context.Context, id string) (*domain.MemoryEntry, error)
	Search(ctx context.Context, query string, limit int) ([]*domain.MemoryEntry, error)
	List(ctx context.Context) ([]*domain.MemoryEntry, error)
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type TraceRepo interface {
	CreateSession(ctx context.Context, s *domain.TraceSession) error
	EndSession(ctx context.Context, id string, at time.Time) error
	GetSession(ctx context.Context, id string) (*domain.TraceSession, error)
	ListSessions(ctx context.Context, limit int) ([]*domain.TraceSession, error)
	AppendEvent(ctx context.Context, e *domain.TraceEvent) error
	ListEvents(ctx context.Context, sessionID string) ([]*domain.TraceEvent, error)
}
