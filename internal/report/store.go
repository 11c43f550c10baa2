package report

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store archives finished run reports in SQLite.
//
// The database is configured with WAL mode for concurrent readers, a
// 5-second busy timeout, and a single-writer connection pool so
// concurrent saves serialize instead of failing with SQLITE_BUSY.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens a report archive at the given path.
// Idempotent: safe to call against an existing archive.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to report archive: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the archive.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save archives one report under its run token. The stored payload is
// the canonical serialization; saving the same report twice is an error
// because run tokens are unique per run.
func (s *Store) Save(ctx context.Context, r *Report) error {
	payload, err := MarshalCanonical(r)
	if err != nil {
		return fmt.Errorf("marshaling report %s: %w", r.RunToken, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_token, trigger_counter, environment, run_mode, started_at, verdict, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunToken, r.TriggerCounter, r.Environment, string(r.RunMode), r.StartedAt, string(r.Verdict), string(payload))
	if err != nil {
		return fmt.Errorf("archiving report %s: %w", r.RunToken, err)
	}
	return nil
}

// Load reads one archived report by run token.
func (s *Store) Load(ctx context.Context, token string) (*Report, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM runs WHERE run_token = ?`, token).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no archived report for run %s", token)
	}
	if err != nil {
		return nil, fmt.Errorf("loading report %s: %w", token, err)
	}
	var r Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", token, err)
	}
	return &r, nil
}

// RunSummary is one archive listing entry.
type RunSummary struct {
	RunToken    string  `json:"run_token"`
	Environment string  `json:"environment"`
	StartedAt   string  `json:"started_at"`
	Verdict     Verdict `json:"verdict"`
}

// List returns archived runs, newest first, filtered by environment
// when one is given. UUIDv7 run tokens sort by creation time, so the
// token order is the run order.
func (s *Store) List(ctx context.Context, environment string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT run_token, environment, started_at, verdict FROM runs`
	args := []any{}
	if environment != "" {
		query += ` WHERE environment = ?`
		args = append(args, environment)
	}
	query += ` ORDER BY run_token DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var verdict string
		if err := rows.Scan(&rs.RunToken, &rs.Environment, &rs.StartedAt, &verdict); err != nil {
			return nil, err
		}
		rs.Verdict = Verdict(verdict)
		out = append(out, rs)
	}
	return out, rows.Err()
}
