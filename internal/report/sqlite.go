package report

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrRunNotFound is returned when a requested run does not exist.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	source TEXT NOT NULL,
	language TEXT NOT NULL,
	binary TEXT NOT NULL DEFAULT '',
	object TEXT NOT NULL DEFAULT '',
	commands TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	exit_code INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	steps_json TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// SQLiteStore keeps run history in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the history database at path.
// Use ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite only supports one writer; a single connection also keeps
	// ":memory:" databases alive across statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a run record. Dry runs are never persisted.
func (s *SQLiteStore) Save(result *RunResult) error {
	if result.DryRun {
		return nil
	}
	steps, err := json.Marshal(result.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps for %s: %w", result.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs
			(id, started_at, source, language, binary, object, commands, status, exit_code, error, steps_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.StartedAt.UTC(), result.Source, result.Language,
		result.Binary, result.Object, result.Commands, string(result.Status),
		result.ExitCode, result.Error, string(steps),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", result.ID, err)
	}
	return nil
}

// Load reads one run record by ID.
func (s *SQLiteStore) Load(runID string) (*RunResult, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, source, language, binary, object, commands, status, exit_code, error, steps_json
		FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	return r, nil
}

// List returns up to limit runs, most recent first. A limit <= 0 returns
// every run.
func (s *SQLiteStore) List(limit int) ([]*RunResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, source, language, binary, object, commands, status, exit_code, error, steps_json
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []*RunResult
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunResult, error) {
	var (
		r         RunResult
		status    string
		stepsJSON string
		started   time.Time
	)
	err := sc.Scan(&r.ID, &started, &r.Source, &r.Language, &r.Binary, &r.Object,
		&r.Commands, &status, &r.ExitCode, &r.Error, &stepsJSON)
	if err != nil {
		return nil, err
	}
	r.StartedAt = started
	r.Status = Status(status)
	if err := json.Unmarshal([]byte(stepsJSON), &r.Steps); err != nil {
		return nil, fmt.Errorf("decoding steps: %w", err)
	}
	return &r, nil
}
