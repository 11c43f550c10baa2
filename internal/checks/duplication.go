package checks

import (
	"fmt"

	"github.com/datavet/datavet/internal/snapshot"
)

// duplication groups rows by the natural key and flags any group larger
// than one. BatchAll considers every row; BatchLatest restricts to
// current rows first, so a closed historical version and its successor do
// not count as duplicates of each other.
func duplication(in Input) Result {
	snap := in.Snapshot
	key := in.Catalog.BusinessKey()
	if len(key) == 0 {
		// No declared key: fall back to the full column set, which makes the
		// check a full-row duplicate scan.
		key = in.Catalog.ColumnNames()
	}

	// Duplicate column names in the observed schema fail outright; a
	// doubled column makes grouping ambiguous.
	seen := map[string]bool{}
	for _, c := range snap.Columns {
		if seen[c] {
			return fail(KindDuplication, snap.Table, snap.Layer,
				fmt.Sprintf("schema declares column %q more than once", c))
		}
		seen[c] = true
	}

	rows := snap.Restrict(in.BatchType, in.Catalog)
	groups := map[string]int64{}
	for _, row := range rows {
		groups[snapshot.KeyOf(row, key)]++
	}

	var dupKeys []string
	var dupRows int64
	for _, row := range rows {
		k := snapshot.KeyOf(row, key)
		if groups[k] > 1 {
			dupRows++
			dupKeys = append(dupKeys, renderRow(row, key))
		}
	}

	r := pass(KindDuplication, snap.Table, snap.Layer,
		fmt.Sprintf("no duplicates in %d rows (batch=%s)", len(rows), in.BatchType)).
		withMetric("rows", int64(len(rows))).
		withMetric("duplicate_rows", dupRows)
	if dupRows > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d row(s) share a natural key (batch=%s)", dupRows, in.BatchType)
		r = r.withSample(dupKeys)
	}
	return r
}
