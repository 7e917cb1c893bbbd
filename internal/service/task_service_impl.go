package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klix-code/klix/internal/db"
	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/repository"
	"github.com/klix-code/klix/internal/taskdoc"
)

// ErrBlocked reports a status transition refused because the task still
// has unfinished dependencies.
var ErrBlocked = errors.New("task has unfinished dependencies")

type taskService struct {
	uow      db.UnitOfWork
	tasks    repository.TaskRepo
	updates  repository.UpdateLogRepo
	observer UseCaseObserver
}

func NewTaskService(
	uow db.UnitOfWork,
	tasks repository.TaskRepo,
	updates repository.UpdateLogRepo,
	observers ...UseCaseObserver,
) TaskService {
	return &taskService{
		uow:      uow,
		tasks:    tasks,
		updates:  updates,
		observer: useCaseObserverOrNoop(observers),
	}
}

// ImportDocument parses a tracking document and replaces the stored
// document with it. The swap is transactional: a failure part-way
// through leaves the previous document intact.
func (s *taskService) ImportDocument(ctx context.Context, path string) (result *ImportResult, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "task.import", start, err, map[string]any{"path": path})
	}()

	doc, err := taskdoc.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if errs := taskdoc.Validate(doc); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		tasks := repository.NewSQLiteTaskRepo(tx)
		updates := repository.NewSQLiteUpdateLogRepo(tx)

		if err := updates.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clearing update log: %w", err)
		}
		if err := tasks.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clearing tasks: %w", err)
		}
		for i, t := range doc.Tasks {
			if err := tasks.Upsert(ctx, t, i); err != nil {
				return fmt.Errorf("storing task %s: %w", t.ID, err)
			}
		}
		for i, e := range doc.Updates {
			if err := updates.Append(ctx, e, i); err != nil {
				return fmt.Errorf("storing update entry %s: %w", e.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result = &ImportResult{
		Title:       doc.Title,
		TaskCount:   len(doc.Tasks),
		UpdateCount: len(doc.Updates),
	}
	for _, t := range doc.Tasks {
		result.SubtaskCount += len(t.Subtasks)
		result.DependencyCount += len(t.DependsOn)
	}
	return result, nil
}

// Document reassembles the stored tracking document.
func (s *taskService) Document(ctx context.Context) (*domain.TaskDocument, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	updates, err := s.updates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading update log: %w", err)
	}
	return &domain.TaskDocument{Tasks: tasks, Updates: updates}, nil
}

func (s *taskService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// Report summarizes the stored document: per-tier progress, blocked
// tasks, and the ready tasks in dependency order.
func (s *taskService) Report(ctx context.Context) (rep *Report, err error) {
	start := time.Now()
	defer func() { observe(ctx, s.observer, "task.report", start, err, nil) }()

	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}

	rep = &Report{
		Progress: doc.Progress(),
		Blocked:  doc.Blocked(),
	}
	order, err := taskdoc.DependencyOrder(doc)
	if err != nil {
		return nil, fmt.Errorf("ordering tasks: %w", err)
	}
	for _, id := range order {
		t := doc.Get(id)
		if t == nil || t.IsDone() {
			continue
		}
		if _, blocked := rep.Blocked[id]; blocked {
			continue
		}
		rep.NextUp = append(rep.NextUp, id)
	}
	return rep, nil
}

// UpdateStatus transitions a task's status. Marking a task done while a
// dependency is unfinished fails with ErrBlocked unless forced.
func (s *taskService) UpdateStatus(ctx context.Context, id string, status domain.Status, force bool) (err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "task.update_status", start, err,
			map[string]any{"task_id": id, "status": string(status)})
	}()

	if !domain.ValidStatuses[string(status)] {
		return fmt.Errorf("invalid status %q", status)
	}

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if status == domain.StatusDone && !force {
		var blockers []string
		for _, dep := range t.DependsOn {
			pre, depErr := s.tasks.GetByID(ctx, dep)
			if errors.Is(depErr, repository.ErrNotFound) {
				continue
			}
			if depErr != nil {
				return depErr
			}
			if !pre.IsDone() {
				blockers = append(blockers, dep)
			}
		}
		if len(blockers) > 0 {
			domain.SortIDs(blockers)
			return fmt.Errorf("%w: %s waits on %s", ErrBlocked, id, strings.Join(blockers, ", "))
		}
	}

	pct := -1
	if status == domain.StatusDone {
		pct = 100
	}
	return s.tasks.UpdateStatus(ctx, id, status, pct)
}

// Export writes the stored document back out as canonical markdown.
func (s *taskService) Export(ctx context.Context, w io.Writer) error {
	doc, err := s.Document(ctx)
	if err != nil {
		return err
	}
	return taskdoc.WriteMarkdown(doc, w)
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("document validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
