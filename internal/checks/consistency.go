package checks

import (
	"fmt"
	"strings"

	"github.com/datavet/datavet/internal/compare"
	"github.com/datavet/datavet/internal/config"
)

// ConsistencyResult folds one reconciliation outcome into a check result.
// left and right name the layers compared; the result is recorded against
// the right (downstream) layer, which is the layer under validation.
func ConsistencyResult(table string, left, right config.Layer, out *compare.Outcome) Result {
	var r Result
	switch {
	case out.TotalDeltas() == 0 && (!out.RowCountChecked || out.RowCountMatch):
		r = pass(KindConsistency, table, right,
			fmt.Sprintf("%s and %s reconcile over %d columns", left, right, out.ComparedCols))
	case out.WithinTolerance && (!out.RowCountChecked || out.RowCountMatch):
		r = pass(KindConsistency, table, right,
			fmt.Sprintf("%s vs %s: %d delta(s) within tolerance", left, right, out.TotalDeltas()))
	default:
		r = fail(KindConsistency, table, right,
			fmt.Sprintf("%s vs %s: %d missing in %s, %d missing in %s, %d value mismatch(es)",
				left, right, out.MissingLeft, left, out.MissingRight, right, out.ValueMismatch))
	}
	if out.ColumnsOnlyIn != "" {
		r.Message += "; schema drift: " + out.ColumnsOnlyIn
	}
	r = r.withMetric("left_rows", int64(out.LeftRows)).
		withMetric("right_rows", int64(out.RightRows)).
		withMetric("missing_left", int64(out.MissingLeft)).
		withMetric("missing_right", int64(out.MissingRight)).
		withMetric("value_mismatch", int64(out.ValueMismatch))

	var sample []string
	for _, d := range out.Deltas {
		sample = append(sample, renderDelta(d))
		if len(sample) == SampleLimit {
			break
		}
	}
	// Deltas arrive in key order already; attach without resorting so the
	// sample reads in the same order as the underlying data.
	r.Sample = sample
	return r
}

func renderDelta(d compare.Delta) string {
	key := strings.ReplaceAll(d.Key, "\x1f", "|")
	if d.Kind != compare.DeltaValueMismatch {
		return fmt.Sprintf("[%s] key=%s", d.Kind, key)
	}
	parts := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		parts[i] = fmt.Sprintf("%s: %q != %q", f.Column, f.Left, f.Right)
	}
	return fmt.Sprintf("[%s] key=%s %s", d.Kind, key, strings.Join(parts, ", "))
}
