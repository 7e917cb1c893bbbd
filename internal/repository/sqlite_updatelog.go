package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/klix-code/klix/internal/db"
	"github.com/klix-code/klix/internal/domain"
)

const updateDateLayout = "2006-01-02"

// SQLiteUpdateLogRepo implements UpdateLogRepo over a DBTX.
type SQLiteUpdateLogRepo struct {
	db db.DBTX
}

// NewSQLiteUpdateLogRepo creates a new SQLiteUpdateLogRepo.
func NewSQLiteUpdateLogRepo(dbtx db.DBTX) *SQLiteUpdateLogRepo {
	return &SQLiteUpdateLogRepo{db: dbtx}
}

func (r *SQLiteUpdateLogRepo) Append(ctx context.Context, e domain.UpdateEntry, position int) error {
	query := `INSERT INTO update_entries (entry_date, body, task_ids, position) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.Date.Format(updateDateLayout),
		strings.Join(e.Lines, "\n"),
		joinList(e.TaskIDs),
		position,
	)
	if err != nil {
		return fmt.Errorf("inserting update entry: %w", err)
	}
	return nil
}

func (r *SQLiteUpdateLogRepo) List(ctx context.Context) ([]domain.UpdateEntry, error) {
	query := `SELECT entry_date, body, task_ids FROM update_entries ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing update entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.UpdateEntry
	for rows.Next() {
		var dateStr, body, taskIDs string
		if err := rows.Scan(&dateStr, &body, &taskIDs); err != nil {
			return nil, fmt.Errorf("scanning update entry: %w", err)
		}
		date, err := time.Parse(updateDateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing entry_date: %w", err)
		}
		e := domain.UpdateEntry{Date: date, TaskIDs: splitList(taskIDs)}
		if body != "" {
			e.Lines = strings.Split(body, "\n")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating update entries: %w", err)
	}
	return entries, nil
}

func (r *SQLiteUpdateLogRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM update_entries`)
	if err != nil {
		return fmt.Errorf("deleting update entries: %w", err)
	}
	return nil
}
