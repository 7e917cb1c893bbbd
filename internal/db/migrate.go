package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// migrations are idempotent DDL statements run on every open.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id                 TEXT PRIMARY KEY,
		title              TEXT NOT NULL,
		priority           TEXT NOT NULL CHECK(priority IN ('high','medium','low')),
		estimate_min_hours REAL NOT NULL DEFAULT 0,
		estimate_max_hours REAL NOT NULL DEFAULT 0,
		completion_pct     INTEGER NOT NULL DEFAULT -1,
		status             TEXT NOT NULL CHECK(status IN ('pending','partial','done')),
		notes              TEXT NOT NULL DEFAULT '',
		position           INTEGER NOT NULL DEFAULT 0,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS subtasks (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		title    TEXT NOT NULL,
		status   TEXT NOT NULL CHECK(status IN ('pending','partial','done')),
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subtasks_task ON subtasks(task_id)`,

	`CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		depends_on TEXT NOT NULL,
		PRIMARY KEY (task_id, depends_on)
	)`,

	`CREATE TABLE IF NOT EXISTS update_entries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_date TEXT NOT NULL,
		body       TEXT NOT NULL,
		task_ids   TEXT NOT NULL DEFAULT '',
		position   INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS memory_entries (
		id         TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		tags       TEXT NOT NULL DEFAULT '',
		source     TEXT NOT NULL DEFAULT 'user',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_created ON memory_entries(created_at)`,

	`CREATE TABLE IF NOT EXISTS trace_sessions (
		id         TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		ended_at   TEXT,
		provider   TEXT NOT NULL DEFAULT '',
		model      TEXT NOT NULL DEFAULT '',
		metadata   TEXT NOT NULL DEFAULT '{}'
	)`,

	`CREATE TABLE IF NOT EXISTS trace_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES trace_sessions(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL,
		payload    TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trace_events_session ON trace_events(session_id)`,

	// Databases created before notes were tracked lack the column.
	`ALTER TABLE tasks ADD COLUMN notes TEXT NOT NULL DEFAULT ''`,
}

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
