package service

import (
	"context"
	"io"
	"time"

	"github.com/klix-code/klix/internal/domain"
)

// ImportResult holds the outcome of a tracking-document import.
type ImportResult struct {
	Title           string
	TaskCount       int
	SubtaskCount    int
	DependencyCount int
	UpdateCount     int
}

// Report is the document-wide status summary.
type Report struct {
	Progress domain.Progress
	// Blocked maps pending task IDs to the unfinished dependencies
	// holding them back.
	Blocked map[string][]string
	// NextUp lists tasks that are ready to start, in dependency order.
	NextUp []string
}

type TaskService interface {
	ImportDocument(ctx context.Context, path string) (*ImportResult, error)
	Document(ctx context.Context) (*domain.TaskDocument, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	Report(ctx context.Context) (*Report, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, force bool) error
	Export(ctx context.Context, w io.Writer) error
}

type MemoryService interface {
	Remember(ctx context.Context, content string, tags []string, source domain.MemorySource) (*domain.MemoryEntry, error)
	Recall(ctx context.Context, query string, limit int) ([]*domain.MemoryEntry, error)
	List(ctx context.Context) ([]*domain.MemoryEntry, error)
	Forget(ctx context.Context, id string) error
	Prune(ctx context.Context, olderThan time.Duration) (int, error)
}
