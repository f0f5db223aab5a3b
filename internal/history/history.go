// Package history keeps a local SQLite log of completed runs.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded run.
type Entry struct {
	RunID         string
	StartedAt     time.Time
	Project       string
	Action        string
	Configuration string
	Platform      string
	ExitCode      int
	Errors        int
	Warnings      int
	Duration      time.Duration
}

// Store records and lists runs. A Store opened disabled accepts records and
// discards them.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. An empty path
// returns a disabled Store.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{}, nil
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create history directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open history database")
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize history schema")
	}
	return s, nil
}

// Enabled reports whether records are persisted.
func (s *Store) Enabled() bool { return s.db != nil }

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		started_at TEXT NOT NULL,
		project TEXT NOT NULL,
		action TEXT NOT NULL,
		configuration TEXT,
		platform TEXT,
		exit_code INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores e.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return nil
	}

	query := `
		INSERT INTO runs
		(run_id, started_at, project, action, configuration, platform, exit_code, errors, warnings, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.RunID,
		e.StartedAt.UTC().Format(timeLayout),
		e.Project,
		e.Action,
		e.Configuration,
		e.Platform,
		e.ExitCode,
		e.Errors,
		e.Warnings,
		e.Duration.Milliseconds(),
	)
	return errors.Wrap(err, "record run")
}

// Recent returns up to limit runs, newest first. An empty project matches all.
func (s *Store) Recent(ctx context.Context, project string, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}

	query := `
		SELECT run_id, started_at, project, action, configuration, platform,
		       exit_code, errors, warnings, duration_ms
		FROM runs
		WHERE ? = '' OR project = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, project, project, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			startedAt  string
			durationMs int64
		)
		if err := rows.Scan(&e.RunID, &startedAt, &e.Project, &e.Action, &e.Configuration,
			&e.Platform, &e.ExitCode, &e.Errors, &e.Warnings, &durationMs); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		e.StartedAt, _ = time.Parse(timeLayout, startedAt)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate runs")
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
