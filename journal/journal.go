// Package journal keeps an SQLite record of every edit applied.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// Entry is one journaled edit.
type Entry struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"sessionId,omitempty"`
	Instruction string        `json:"instruction"`
	Action      string        `json:"action"`
	Method      string        `json:"method"`
	IntentJSON  string        `json:"intent"`
	Success     bool          `json:"success"`
	Changes     int           `json:"changes"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Journal is safe for concurrent use.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)
	return db, nil
}

// Open opens or creates the journal at path and makes sure the schema exists.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create journal dir: %w", err)
			}
		}
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Journal{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

func (j *Journal) Close() error { return j.db.Close() }

// Record stores e, filling in ID and CreatedAt when they are empty. It returns the
// stored entry.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now().UTC()
	}
	if e.IntentJSON == "" {
		e.IntentJSON = "{}"
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO edits (edit_id, session_id, instruction, action, method, intent_json,
			success, changes, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.SessionID, e.Instruction, e.Action, e.Method, e.IntentJSON,
		e.Success, e.Changes, e.Error, e.Duration.Milliseconds(), e.CreatedAt.UnixNano())
	if err != nil {
		return Entry{}, fmt.Errorf("record edit: %w", err)
	}
	return e, nil
}

// List returns the entries of a session oldest first; an empty sessionID lists all
// entries. limit <= 0 means no limit.
func (j *Journal) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	query := `
		SELECT edit_id, session_id, instruction, action, method, intent_json,
			success, changes, error, duration_ms, created_at
		FROM edits`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at, rowid`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			ms, at int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Instruction, &e.Action, &e.Method, &e.IntentJSON,
			&e.Success, &e.Changes, &e.Error, &ms, &at); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		e.CreatedAt = time.Unix(0, at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// ActionStat aggregates the journal for one action.
type ActionStat struct {
	Action    string `json:"action"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Changes   int    `json:"changes"`
	Fallback  int    `json:"fallback"`
}

// Stats aggregates the journal per action, ordered by action name.
func (j *Journal) Stats(ctx context.Context) ([]ActionStat, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT action, COUNT(*),
			SUM(CASE WHEN success THEN 1 ELSE 0 END),
			SUM(changes),
			SUM(CASE WHEN method = 'fallback' THEN 1 ELSE 0 END)
		FROM edits
		GROUP BY action
		ORDER BY action
	`)
	if err != nil {
		return nil, fmt.Errorf("edit stats: %w", err)
	}
	defer rows.Close()

	var out []ActionStat
	for rows.Next() {
		var s ActionStat
		if err := rows.Scan(&s.Action, &s.Total, &s.Succeeded, &s.Changes, &s.Fallback); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
