package checks

import (
	"fmt"

	"github.com/datavet/datavet/internal/snapshot"
)

// historyValidation reconciles a main table against its history table:
// the history must carry at least as many rows as the main table, and the
// latest history version of every natural key must match the main row.
func historyValidation(in Input) Result {
	snap := in.Snapshot
	if in.History == nil {
		return Errorf(KindHistory, snap.Table, snap.Layer, "history snapshot not available")
	}
	hist := in.History

	mainCount := int64(snap.RowCount())
	histCount := int64(hist.RowCount())
	if histCount < mainCount {
		return fail(KindHistory, snap.Table, snap.Layer,
			fmt.Sprintf("history has %d row(s), main has %d", histCount, mainCount)).
			withMetric("main_rows", mainCount).
			withMetric("history_rows", histCount)
	}

	key := in.Catalog.BusinessKey()
	if len(key) == 0 {
		return skipped(KindHistory, snap.Table, snap.Layer,
			"no natural key configured; row counts reconcile")
	}

	// Latest history row per key must match the main row on the shared
	// column set.
	latest := map[string]snapshot.Row{}
	for _, row := range hist.Restrict(snapshot.BatchLatest, in.Catalog) {
		latest[snapshot.KeyOf(row, key)] = row
	}

	shared := make([]string, 0, len(snap.Columns))
	for _, c := range snap.Columns {
		if hist.HasColumn(c) {
			shared = append(shared, c)
		}
	}

	var mismatches []string
	var mismatched int64
	for _, row := range snap.Rows {
		k := snapshot.KeyOf(row, key)
		histRow, ok := latest[k]
		if !ok {
			mismatched++
			mismatches = append(mismatches, fmt.Sprintf("%s: not in latest history", renderRow(row, key)))
			continue
		}
		for _, c := range shared {
			if snapshot.Render(row[c]) != snapshot.Render(histRow[c]) {
				mismatched++
				mismatches = append(mismatches, fmt.Sprintf(
					"%s: %s differs (main=%s history=%s)",
					renderRow(row, key), c, snapshot.Render(row[c]), snapshot.Render(histRow[c])))
				break
			}
		}
	}

	r := pass(KindHistory, snap.Table, snap.Layer,
		fmt.Sprintf("history matches %d main row(s)", mainCount)).
		withMetric("main_rows", mainCount).
		withMetric("history_rows", histCount).
		withMetric("mismatched_keys", mismatched)
	if mismatched > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d key(s) diverge from latest history", mismatched)
		r = r.withSample(mismatches)
	}
	return r
}
