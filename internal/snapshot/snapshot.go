// Package snapshot models point-in-time tabular reads of one layer and
// the connectors that produce them.
//
// A Snapshot is immutable once read: checks never mutate rows, and two
// checks running against the same snapshot observe identical data even if
// the backing table is being written concurrently (each read happens in a
// single read-only transaction).
package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/config"
)

// Row is one record keyed by column name. Values are nil (SQL NULL),
// string, int64, float64, bool, or time formatted as string by the
// connector.
type Row map[string]any

// Snapshot is a point-in-time read of one (table, layer).
type Snapshot struct {
	Table   string
	Layer   config.Layer
	Columns []string // schema observed at read time, in table order
	Rows    []Row
}

// RowCount returns the number of rows in the snapshot.
func (s *Snapshot) RowCount() int { return len(s.Rows) }

// HasColumn reports whether the observed schema includes the column.
func (s *Snapshot) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// CheckKeyColumns verifies every declared business key column exists in
// the observed schema. A missing key column makes all key-based checks on
// the layer meaningless, so it escalates to a ValidationAbort.
func (s *Snapshot) CheckKeyColumns(keys []string) error {
	var missing []string
	for _, k := range keys {
		if !s.HasColumn(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &ValidationAbort{
			Layer:   s.Layer,
			Table:   s.Table,
			Message: fmt.Sprintf("declared key column(s) %s absent from schema", strings.Join(missing, ", ")),
		}
	}
	return nil
}

// BatchType restricts a snapshot to the rows a check should consider.
type BatchType string

const (
	// BatchAll considers every row.
	BatchAll BatchType = "all"

	// BatchLatest considers only current rows: rows with the current
	// indicator set when the table carries one, otherwise the rows of the
	// most recent insert-timestamp batch.
	BatchLatest BatchType = "latest"
)

// Restrict returns the rows selected by the batch type. The returned
// slice shares backing rows with the snapshot; callers must not mutate.
func (s *Snapshot) Restrict(bt BatchType, cat *catalog.Catalog) []Row {
	if bt == BatchAll {
		return s.Rows
	}
	if ind := cat.CurrentIndicator(); ind != "" && s.HasColumn(ind) {
		var out []Row
		for _, r := range s.Rows {
			if IsTrue(r[ind]) {
				out = append(out, r)
			}
		}
		return out
	}
	// No current indicator: fall back to the newest insert batch, keyed by
	// the first timeliness marker (system insert timestamp).
	markers := cat.TimelinessMarkers()
	if len(markers) == 0 || !s.HasColumn(markers[0].Name) {
		return s.Rows
	}
	col := markers[0].Name
	var max string
	for _, r := range s.Rows {
		if v := asTimeString(r[col]); v > max {
			max = v
		}
	}
	if max == "" {
		return s.Rows
	}
	var out []Row
	for _, r := range s.Rows {
		if asTimeString(r[col]) == max {
			out = append(out, r)
		}
	}
	return out
}

// KeyOf builds the composite key string for a row over the given columns.
// Component values are joined with a separator that cannot appear in
// rendered scalars.
func KeyOf(r Row, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = Render(r[c])
	}
	return strings.Join(parts, "\x1f")
}

// SortByKey orders rows by their composite key, ascending. Used by the
// merge-join comparator; sorting a copy keeps snapshots immutable.
func SortByKey(rows []Row, cols []string) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return KeyOf(sorted[i], cols) < KeyOf(sorted[j], cols)
	})
	return sorted
}

// Render formats a value for keys, diffs, and report samples.
// Deterministic: the same value always renders identically.
func Render(v any) string {
	switch t := v.(type) {
	case nil:
		return "<null>"
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []byte:
		return string(t)
	case float64:
		// Trim the mantissa the way strconv does for %v; stable across runs.
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.10f", t), "0"), ".")
	default:
		return fmt.Sprintf("%v", t)
	}
}

// IsTrue interprets the truthy encodings indicator columns use in
// practice: bool true, "Y", "y", "true", "1", 1.
func IsTrue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "y", "yes", "true", "1":
			return true
		}
		return false
	case int64:
		return t == 1
	case float64:
		return t == 1
	default:
		return false
	}
}

func asTimeString(v any) string {
	if v == nil {
		return ""
	}
	return Render(v)
}
