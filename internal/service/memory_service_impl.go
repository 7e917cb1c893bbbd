package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/kerrors"
	"github.com/klix-code/klix/internal/repository"
)

const defaultRecallLimit = 10

type memoryService struct {
	memories repository.MemoryRepo
	observer UseCaseObserver
	now      func() time.Time
}

func NewMemoryService(memories repository.MemoryRepo, observers ...UseCaseObserver) MemoryService {
	return &memoryService{
		memories: memories,
		observer: useCaseObserverOrNoop(observers),
		now:      time.Now,
	}
}

// Remember stores a new memory entry and returns it with its generated ID.
func (s *memoryService) Remember(ctx context.Context, content string, tags []string, source domain.MemorySource) (entry *domain.MemoryEntry, err error) {
	start := time.Now()
	defer func() { observe(ctx, s.observer, "memory.remember", start, err, nil) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, kerrors.New(kerrors.ErrMemoryStorage, "memory content must not be empty")
	}
	if source == "" {
		source = domain.MemorySourceUser
	}

	entry = &domain.MemoryEntry{
		ID:        uuid.New().String(),
		Content:   content,
		Tags:      tags,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
	if err = s.memories.Create(ctx, entry); err != nil {
		return nil, kerrors.NewMemoryStorage(err)
	}
	return entry, nil
}

// Recall returns entries matching the query, best matches first.
func (s *memoryService) Recall(ctx context.Context, query string, limit int) (entries []*domain.MemoryEntry, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "memory.recall", start, err, map[string]any{"query": query})
	}()

	if limit <= 0 {
		limit = defaultRecallLimit
	}
	entries, err = s.memories.Search(ctx, query, limit)
	if err != nil {
		return nil, kerrors.NewMemorySearch(err)
	}
	return entries, nil
}

func (s *memoryService) List(ctx context.Context) ([]*domain.MemoryEntry, error) {
	return s.memories.List(ctx)
}

func (s *memoryService) Forget(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "memory.forget", start, err, map[string]any{"memory_id": id})
	}()
	return s.memories.Delete(ctx, id)
}

// Prune deletes entries older than the given age and reports how many
// were removed.
func (s *memoryService) Prune(ctx context.Context, olderThan time.Duration) (removed int, err error) {
	start := time.Now()
	defer func() { observe(ctx, s.observer, "memory.prune", start, err, nil) }()

	cutoff := s.now().UTC().Add(-olderThan)
	removed, err = s.memories.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, kerrors.NewMemoryStorage(err)
	}
	return removed, nil
}
