package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/klix-code/klix/internal/db"
	"github.com/klix-code/klix/internal/domain"
)

// memoryColumns is the canonical SELECT column list for memory_entries.
const memoryColumns = `id, content, tags, source, created_at`

// SQLiteMemoryRepo implements MemoryRepo over a DBTX.
type SQLiteMemoryRepo struct {
	db db.DBTX
}

// NewSQLiteMemoryRepo creates a new SQLiteMemoryRepo.
func NewSQLiteMemoryRepo(dbtx db.DBTX) *SQLiteMemoryRepo {
	return &SQLiteMemoryRepo{db: dbtx}
}

func (r *SQLiteMemoryRepo) Create(ctx context.Context, m *domain.MemoryEntry) error {
	query := `INSERT INTO memory_entries (id, content, tags, source, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.Content,
		joinList(m.Tags),
		string(m.Source),
		m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting memory entry: %w", err)
	}
	return nil
}

func (r *SQLiteMemoryRepo) GetByID(ctx context.Context, id string) (*domain.MemoryEntry, error) {
	query := `SELECT ` + memoryColumns + ` FROM memory_entries WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanEntry(row)
}

// Search tokenizes the query and ranks entries by how many terms match
// content or tags, newest first among ties. Entries matching no term are
// excluded.
func (r *SQLiteMemoryRepo) Search(ctx context.Context, query string, limit int) ([]*domain.MemoryEntry, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	scored := make([]string, len(terms))
	args := make([]any, 0, len(terms)+1)
	for i, term := range terms {
		scored[i] = `((content || ' ' || tags) LIKE ?)`
		args = append(args, "%"+term+"%")
	}
	args = append(args, limit)

	stmt := `SELECT ` + memoryColumns + ` FROM (
			SELECT ` + memoryColumns + `, (` + strings.Join(scored, " + ") + `) AS score
			FROM memory_entries
		) WHERE score > 0
		ORDER BY score DESC, created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("searching memory entries: %w", err)
	}
	defer rows.Close()
	return r.scanEntries(rows)
}

// searchTerms lowercases the query and extracts deduplicated alphanumeric
// terms, dropping words shorter than three characters ("do", "a") that
// would match nearly everything.
func searchTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

func (r *SQLiteMemoryRepo) List(ctx context.Context) ([]*domain.MemoryEntry, error) {
	query := `SELECT ` + memoryColumns + ` FROM memory_entries ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing memory entries: %w", err)
	}
	defer rows.Close()
	return r.scanEntries(rows)
}

func (r *SQLiteMemoryRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting memory entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("memory entry %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteMemoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM memory_entries WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("pruning memory entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteMemoryRepo) scanEntry(row *sql.Row) (*domain.MemoryEntry, error) {
	var m domain.MemoryEntry
	var tags, sourceStr, createdAtStr string

	err := row.Scan(&m.ID, &m.Content, &tags, &sourceStr, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("memory entry: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning memory entry: %w", err)
	}
	return r.populateEntry(&m, tags, sourceStr, createdAtStr)
}

func (r *SQLiteMemoryRepo) scanEntries(rows *sql.Rows) ([]*domain.MemoryEntry, error) {
	var entries []*domain.MemoryEntry
	for rows.Next() {
		var m domain.MemoryEntry
		var tags, sourceStr, createdAtStr string
		if err := rows.Scan(&m.ID, &m.Content, &tags, &sourceStr, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning memory row: %w", err)
		}
		entry, err := r.populateEntry(&m, tags, sourceStr, createdAtStr)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memory entries: %w", err)
	}
	return entries, nil
}

func (r *SQLiteMemoryRepo) populateEntry(m *domain.MemoryEntry, tags, sourceStr, createdAtStr string) (*domain.MemoryEntry, error) {
	m.Tags = splitList(tags)
	m.Source = domain.MemorySource(sourceStr)
	var err error
	m.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return m, nil
}
