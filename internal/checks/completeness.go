package checks

import (
	"fmt"
	"strings"
)

// completeness verifies the layer carries every declared column, no fully
// blank rows, and no unexpected NULLs in non-nullable columns.
//
// Null tolerance is a fraction of rows (default 0): a column fails when
// nulls/rows exceeds it. Column-level failures aggregate into one result.
func completeness(in Input) Result {
	snap := in.Snapshot
	cat := in.Catalog

	// Missing declared columns. A missing column also disqualifies its
	// null check below, so report it first and prominently.
	var missing []string
	for _, name := range cat.ColumnNames() {
		if !snap.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fail(KindCompleteness, snap.Table, snap.Layer,
			fmt.Sprintf("missing columns: %s", strings.Join(missing, ", "))).
			withMetric("missing_columns", int64(len(missing)))
	}

	// Blank rows: every declared column NULL.
	var blank int64
	for _, row := range snap.Rows {
		allNull := true
		for _, name := range cat.ColumnNames() {
			if row[name] != nil {
				allNull = false
				break
			}
		}
		if allNull {
			blank++
		}
	}

	// Unexpected NULLs per non-nullable column.
	total := int64(snap.RowCount())
	var violations []string
	var nullCols int64
	for _, col := range cat.Columns() {
		if col.Nullable {
			continue
		}
		var nulls int64
		for _, row := range snap.Rows {
			if row[col.Name] == nil {
				nulls++
			}
		}
		if nulls == 0 {
			continue
		}
		fraction := float64(nulls) / float64(total)
		if fraction > in.Tolerances.NullFraction {
			nullCols++
			violations = append(violations, fmt.Sprintf("%s: %d null(s) of %d rows", col.Name, nulls, total))
		}
	}

	r := pass(KindCompleteness, snap.Table, snap.Layer,
		fmt.Sprintf("%d rows complete", total)).
		withMetric("rows", total).
		withMetric("blank_rows", blank).
		withMetric("columns_with_nulls", nullCols)
	if blank > 0 || nullCols > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d blank row(s), %d column(s) with unexpected nulls", blank, nullCols)
		r = r.withSample(violations)
	}
	return r
}
