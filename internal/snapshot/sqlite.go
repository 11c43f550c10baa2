package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/datavet/datavet/internal/config"
)

// SQLiteConnector reads layer snapshots from a SQLite database. Used for
// run_mode=local and cicd, where the layer tables live in one file (or in
// attached databases named after the layer schema).
type SQLiteConnector struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database for snapshot reads.
//
// The connection is configured the same way for every run:
//   - single connection, so every read observes one consistent database
//   - 5-second busy timeout for lock contention
//   - query_only, since validation never writes to layer tables
func OpenSQLite(path string) (*SQLiteConnector, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_query_only=true")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &SQLiteConnector{db: db}, nil
}

// Read implements Connector.
//
// SQLite has no schemas; a non-empty schema in the layer ref addresses an
// ATTACHed database of that name, matching how layer databases are laid
// out for local runs.
func (c *SQLiteConnector) Read(ctx context.Context, table string, layer config.Layer, ref config.LayerRef) (*Snapshot, error) {
	query := "SELECT * FROM " + qualify(ref)
	return readAll(ctx, c.db, query, table, layer)
}

// Close implements Connector.
func (c *SQLiteConnector) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
