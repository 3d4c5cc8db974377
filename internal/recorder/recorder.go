// Package recorder persists harness run history to SQLite.
//
// Each scenario execution becomes one row: pass/fail, the failure messages,
// and the full trace as JSON. The history is inspected with the CLI's
// runs commands.
package recorder

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rowcheck/rowcheck/internal/harness"
)

//go:embed schema.sql
var schemaSQL string

// Recorder stores harness runs in a SQLite database.
// Uses WAL mode for concurrent read access while a run is being written.
type Recorder struct {
	db *sql.DB
}

// Run is one recorded scenario execution.
type Run struct {
	ID         string               `json:"id"`
	Scenario   string               `json:"scenario"`
	EngineURL  string               `json:"engine_url"`
	Pass       bool                 `json:"pass"`
	Errors     []string             `json:"errors,omitempty"`
	Trace      []harness.TraceEvent `json:"trace"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Summary is the list view of a recorded run, without the trace payload.
type Summary struct {
	ID        string    `json:"id"`
	Scenario  string    `json:"scenario"`
	Pass      bool      `json:"pass"`
	StartedAt time.Time `json:"started_at"`
}

// Open creates or opens a run history database at the given path.
// Applies required pragmas and the schema automatically; safe to call on an
// existing database.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// RecordRun inserts one run. An empty ID gets a generated UUIDv7, which is
// also written back to run.ID.
func (r *Recorder) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.Must(uuid.NewV7()).String()
	}

	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}
	traceJSON, err := json.Marshal(run.Trace)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, engine_url, pass, errors, trace, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Scenario,
		run.EngineURL,
		boolToInt(run.Pass),
		string(errorsJSON),
		string(traceJSON),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
// A non-positive limit returns all runs.
func (r *Recorder) ListRuns(ctx context.Context, limit int) ([]Summary, error) {
	query := `SELECT id, scenario, pass, started_at FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var pass int
		var started string
		if err := rows.Scan(&s.ID, &s.Scenario, &pass, &started); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.Pass = pass != 0
		s.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("invalid started_at for run %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRun loads one run with its full trace.
func (r *Recorder) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, scenario, engine_url, pass, errors, trace, started_at, finished_at
		FROM runs WHERE id = ?`, id)

	var run Run
	var pass int
	var errorsJSON, traceJSON, started, finished string
	err := row.Scan(&run.ID, &run.Scenario, &run.EngineURL, &pass,
		&errorsJSON, &traceJSON, &started, &finished)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	run.Pass = pass != 0
	if err := json.Unmarshal([]byte(errorsJSON), &run.Errors); err != nil {
		return nil, fmt.Errorf("invalid errors payload for run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(traceJSON), &run.Trace); err != nil {
		return nil, fmt.Errorf("invalid trace payload for run %s: %w", id, err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("invalid started_at for run %s: %w", id, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("invalid finished_at for run %s: %w", id, err)
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
