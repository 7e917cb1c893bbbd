package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/klix-code/klix/internal/db"
	"github.com/klix-code/klix/internal/domain"
)

// taskColumns is the canonical SELECT column list for tasks.
const taskColumns = `id, title, priority, estimate_min_hours, estimate_max_hours,
		completion_pct, status, notes, position`

// SQLiteTaskRepo implements TaskRepo over a DBTX, so the same code runs
// against a *sql.DB or inside a transaction.
type SQLiteTaskRepo struct {
	db db.DBTX
}

// NewSQLiteTaskRepo creates a new SQLiteTaskRepo.
func NewSQLiteTaskRepo(dbtx db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: dbtx}
}

func (r *SQLiteTaskRepo) Upsert(ctx context.Context, t *domain.Task, position int) error {
	query := `INSERT INTO tasks (id, title, priority, estimate_min_hours, estimate_max_hours,
			completion_pct, status, notes, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			priority = excluded.priority,
			estimate_min_hours = excluded.estimate_min_hours,
			estimate_max_hours = excluded.estimate_max_hours,
			completion_pct = excluded.completion_pct,
			status = excluded.status,
			notes = excluded.notes,
			position = excluded.position,
			updated_at = excluded.updated_at`
	now := nowUTC()
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.Title,
		string(t.Priority),
		t.EstimateMinHours,
		t.EstimateMaxHours,
		t.CompletionPct,
		string(t.Status),
		strings.Join(t.Notes, "\n"),
		position,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting task: %w", err)
	}
	if err := r.replaceSubtasks(ctx, t); err != nil {
		return err
	}
	return r.replaceDependencies(ctx, t)
}

func (r *SQLiteTaskRepo) replaceSubtasks(ctx context.Context, t *domain.Task) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE task_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clearing subtasks: %w", err)
	}
	for i, s := range t.Subtasks {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO subtasks (task_id, title, status, position) VALUES (?, ?, ?, ?)`,
			t.ID, s.Title, string(s.Status), i)
		if err != nil {
			return fmt.Errorf("inserting subtask: %w", err)
		}
	}
	return nil
}

func (r *SQLiteTaskRepo) replaceDependencies(ctx context.Context, t *domain.Task) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clearing dependencies: %w", err)
	}
	for _, dep := range t.DependsOn {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO task_dependencies (task_id, depends_on) VALUES (?, ?)`, t.ID, dep)
		if err != nil {
			return fmt.Errorf("inserting dependency: %w", err)
		}
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	t, err := r.scanTask(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLiteTaskRepo) List(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(ctx, rows)
}

func (r *SQLiteTaskRepo) ListByPriority(ctx context.Context, p domain.Priority) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE priority = ? ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, string(p))
	if err != nil {
		return nil, fmt.Errorf("listing tasks by priority: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(ctx, rows)
}

func (r *SQLiteTaskRepo) UpdateStatus(ctx context.Context, id string, status domain.Status, completionPct int) error {
	query := `UPDATE tasks SET status = ?, completion_pct = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), completionPct, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks`)
	if err != nil {
		return fmt.Errorf("deleting all tasks: %w", err)
	}
	return nil
}

// scanTask scans a single task from a *sql.Row. Subtasks and dependencies
// are loaded separately by loadChildren.
func (r *SQLiteTaskRepo) scanTask(row *sql.Row) (*domain.Task, error) {
	var t domain.Task
	var priorityStr, statusStr, notesStr string
	var position int

	err := row.Scan(
		&t.ID, &t.Title, &priorityStr, &t.EstimateMinHours, &t.EstimateMaxHours,
		&t.CompletionPct, &statusStr, &notesStr, &position,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	t.Priority = domain.Priority(priorityStr)
	t.Status = domain.Status(statusStr)
	if notesStr != "" {
		t.Notes = strings.Split(notesStr, "\n")
	}
	return &t, nil
}

// scanTasks scans multiple tasks from *sql.Rows and loads their children.
func (r *SQLiteTaskRepo) scanTasks(ctx context.Context, rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		var t domain.Task
		var priorityStr, statusStr, notesStr string
		var position int

		err := rows.Scan(
			&t.ID, &t.Title, &priorityStr, &t.EstimateMinHours, &t.EstimateMaxHours,
			&t.CompletionPct, &statusStr, &notesStr, &position,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}

		t.Priority = domain.Priority(priorityStr)
		t.Status = domain.Status(statusStr)
		if notesStr != "" {
			t.Notes = strings.Split(notesStr, "\n")
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	// Children are loaded after the task cursor is fully drained; SQLite
	// connections do not support interleaved queries on one cursor.
	for _, t := range tasks {
		if err := r.loadChildren(ctx, t); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (r *SQLiteTaskRepo) loadChildren(ctx context.Context, t *domain.Task) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT title, status FROM subtasks WHERE task_id = ? ORDER BY position`, t.ID)
	if err != nil {
		return fmt.Errorf("listing subtasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.Subtask
		var statusStr string
		if err := rows.Scan(&s.Title, &statusStr); err != nil {
			return fmt.Errorf("scanning subtask: %w", err)
		}
		s.Status = domain.Status(statusStr)
		t.Subtasks = append(t.Subtasks, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating subtasks: %w", err)
	}

	depRows, err := r.db.QueryContext(ctx,
		`SELECT depends_on FROM task_dependencies WHERE task_id = ? ORDER BY rowid`, t.ID)
	if err != nil {
		return fmt.Errorf("listing dependencies: %w", err)
	}
	defer depRows.Close()
	for depRows.Next() {
		var dep string
		if err := depRows.Scan(&dep); err != nil {
			return fmt.Errorf("scanning dependency: %w", err)
		}
		t.DependsOn = append(t.DependsOn, dep)
	}
	if err := depRows.Err(); err != nil {
		return fmt.Errorf("iterating dependencies: %w", err)
	}
	return nil
}
