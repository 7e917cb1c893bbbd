package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klix-code/klix/internal/db"
	"github.com/klix-code/klix/internal/domain"
)

// sessionColumns is the canonical SELECT column list for trace_sessions.
const sessionColumns = `id, started_at, ended_at, provider, model, metadata`

// SQLiteTraceRepo implements TraceRepo over a DBTX.
type SQLiteTraceRepo struct {
	db db.DBTX
}

// NewSQLiteTraceRepo creates a new SQLiteTraceRepo.
func NewSQLiteTraceRepo(dbtx db.DBTX) *SQLiteTraceRepo {
	return &SQLiteTraceRepo{db: dbtx}
}

func (r *SQLiteTraceRepo) CreateSession(ctx context.Context, s *domain.TraceSession) error {
	meta := s.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding session metadata: %w", err)
	}
	query := `INSERT INTO trace_sessions (id, started_at, ended_at, provider, model, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.StartedAt.UTC().Format(time.RFC3339),
		nullableTimeToString(s.EndedAt, time.RFC3339),
		s.Provider,
		s.Model,
		string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting trace session: %w", err)
	}
	return nil
}

func (r *SQLiteTraceRepo) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trace_sessions SET ended_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("ending trace session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trace session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteTraceRepo) GetSession(ctx context.Context, id string) (*domain.TraceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM trace_sessions WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	var s domain.TraceSession
	var startedAtStr, metaJSON string
	var endedAt sql.NullString
	err := row.Scan(&s.ID, &startedAtStr, &endedAt, &s.Provider, &s.Model, &metaJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trace session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning trace session: %w", err)
	}
	return r.populateSession(&s, startedAtStr, endedAt, metaJSON)
}

func (r *SQLiteTraceRepo) ListSessions(ctx context.Context, limit int) ([]*domain.TraceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM trace_sessions ORDER BY started_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing trace sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.TraceSession
	for rows.Next() {
		var s domain.TraceSession
		var startedAtStr, metaJSON string
		var endedAt sql.NullString
		if err := rows.Scan(&s.ID, &startedAtStr, &endedAt, &s.Provider, &s.Model, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning trace session row: %w", err)
		}
		session, err := r.populateSession(&s, startedAtStr, endedAt, metaJSON)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trace sessions: %w", err)
	}
	return sessions, nil
}

func (r *SQLiteTraceRepo) AppendEvent(ctx context.Context, e *domain.TraceEvent) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}
	query := `INSERT INTO trace_events (session_id, event_type, payload, created_at)
		VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		e.SessionID,
		string(e.Type),
		string(payloadJSON),
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting trace event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (r *SQLiteTraceRepo) ListEvents(ctx context.Context, sessionID string) ([]*domain.TraceEvent, error) {
	query := `SELECT id, session_id, event_type, payload, created_at
		FROM trace_events WHERE session_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing trace events: %w", err)
	}
	defer rows.Close()

	var events []*domain.TraceEvent
	for rows.Next() {
		var e domain.TraceEvent
		var typeStr, payloadJSON, createdAtStr string
		if err := rows.Scan(&e.ID, &e.SessionID, &typeStr, &payloadJSON, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning trace event: %w", err)
		}
		e.Type = domain.TraceEventType(typeStr)
		if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
			return nil, fmt.Errorf("decoding event payload: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trace events: %w", err)
	}
	return events, nil
}

func (r *SQLiteTraceRepo) populateSession(s *domain.TraceSession, startedAtStr string, endedAt sql.NullString, metaJSON string) (*domain.TraceSession, error) {
	var err error
	s.StartedAt, err = time.Parse(time.RFC3339, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	s.EndedAt = parseNullableTime(endedAt, time.RFC3339)
	if err := json.Unmarshal([]byte(metaJSON), &s.Metadata); err != nil {
		return nil, fmt.Errorf("decoding session metadata: %w", err)
	}
	return s, nil
}
