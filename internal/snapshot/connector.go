package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/datavet/datavet/internal/config"
)

// Connector reads point-in-time snapshots for (table, layer) pairs.
//
// Implementations do not retry and do not pool beyond what database/sql
// provides; a read failure surfaces as a single *ConnectorError and the
// caller decides what that failure scopes over.
type Connector interface {
	// Read returns the current snapshot of the referenced table. The read
	// happens inside one read-only transaction so concurrent writers cannot
	// be double-counted.
	Read(ctx context.Context, table string, layer config.Layer, ref config.LayerRef) (*Snapshot, error)

	// Close releases the underlying connection.
	Close() error
}

// readAll executes the snapshot query inside a read-only transaction and
// scans every row into the generic Row representation.
func readAll(ctx context.Context, db *sql.DB, query, table string, layer config.Layer) (*Snapshot, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, &ConnectorError{Layer: layer, Table: table, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // read-only tx

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, &ConnectorError{Layer: layer, Table: table, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ConnectorError{Layer: layer, Table: table, Err: err}
	}

	snap := &Snapshot{Table: table, Layer: layer, Columns: cols}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ConnectorError{Layer: layer, Table: table, Err: err}
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(raw[i])
		}
		snap.Rows = append(snap.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ConnectorError{Layer: layer, Table: table, Err: err}
	}
	return snap, nil
}

// normalize maps driver values onto the small set of Row value types.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}

// quoteIdent quotes a SQL identifier with double quotes, doubling any
// embedded quote. Identifiers come from validated configuration, but
// quoting keeps a hostile table name from becoming SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualify renders schema.table, omitting an empty schema.
func qualify(ref config.LayerRef) string {
	if ref.Schema == "" {
		return quoteIdent(ref.Table)
	}
	return fmt.Sprintf("%s.%s", quoteIdent(ref.Schema), quoteIdent(ref.Table))
}
