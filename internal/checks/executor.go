package checks

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/snapshot"
)

// Input carries everything one per-layer check needs. Checks are pure
// over Input: no I/O, no shared mutable state.
type Input struct {
	Catalog  *catalog.Catalog
	Snapshot *snapshot.Snapshot

	// History is the history-table snapshot, set only for
	// history_validation.
	History *snapshot.Snapshot

	// Now anchors timeliness checks. Injected by the runner so re-runs can
	// pin it for reproducible reports.
	Now time.Time

	// BatchType restricts duplication to all rows or the latest batch.
	BatchType snapshot.BatchType

	Tolerances config.Tolerances
}

// Run executes one per-layer check kind and returns its single Result.
//
// Checks are isolated: a panic inside one check becomes an error-status
// result instead of tearing down sibling checks. Cross-layer kinds
// (consistency, scd_checks) are not executed here; the comparator and the
// transition validator own them.
func Run(kind Kind, in Input) (result Result) {
	table := in.Snapshot.Table
	layer := in.Snapshot.Layer

	defer func() {
		if r := recover(); r != nil {
			slog.Error("check panicked", "kind", kind, "table", table, "layer", layer, "panic", r)
			result = Errorf(kind, table, layer, "internal error: %v", r)
		}
	}()

	switch kind {
	case KindCompleteness:
		return completeness(in)
	case KindDuplication:
		return duplication(in)
	case KindTimeliness:
		return timeliness(in)
	case KindAccuracy:
		return accuracy(in)
	case KindRuleChecks:
		return ruleChecks(in)
	case KindHistory:
		return historyValidation(in)
	default:
		return Errorf(kind, table, layer, "check kind %q is not a per-layer check", kind)
	}
}

// renderRow renders the key columns of a row for result samples.
func renderRow(r snapshot.Row, cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%s", c, snapshot.Render(r[c]))
	}
	return out
}
