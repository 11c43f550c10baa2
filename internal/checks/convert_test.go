package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavet/datavet/internal/compare"
	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/scd"
)

func TestConsistencyResult_Pass(t *testing.T) {
	out := &compare.Outcome{
		LeftRows: 10, RightRows: 10, ComparedCols: 4,
		RowCountChecked: true, RowCountMatch: true, WithinTolerance: true,
	}
	r := ConsistencyResult("orders", config.LayerLanding, config.LayerWarehouse, out)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, config.LayerWarehouse, r.Layer, "recorded against the layer under validation")
	assert.Equal(t, CategoryDataQuality, r.Category)
	assert.Equal(t, int64(10), r.Metrics["left_rows"])
}

func TestConsistencyResult_WithinTolerance(t *testing.T) {
	out := &compare.Outcome{
		LeftRows: 10, RightRows: 10, ValueMismatch: 1,
		RowCountChecked: true, RowCountMatch: true, WithinTolerance: true,
		Deltas: []compare.Delta{{Kind: compare.DeltaValueMismatch, Key: "7",
			Fields: []compare.FieldDiff{{Column: "status", Left: "OPEN", Right: "CLOSED"}}}},
	}
	r := ConsistencyResult("orders", config.LayerLanding, config.LayerWarehouse, out)
	assert.Equal(t, StatusPass, r.Status)
	assert.Contains(t, r.Message, "within tolerance")
	require.Len(t, r.Sample, 1)
	assert.Contains(t, r.Sample[0], `status: "OPEN" != "CLOSED"`)
}

func TestConsistencyResult_RowCountMismatchFails(t *testing.T) {
	out := &compare.Outcome{
		LeftRows: 10, RightRows: 9,
		RowCountChecked: true, RowCountMatch: false, WithinTolerance: true,
	}
	r := ConsistencyResult("orders", config.LayerLanding, config.LayerWarehouse, out)
	assert.Equal(t, StatusFail, r.Status, "matching values cannot excuse a row count mismatch")
}

func TestConsistencyResult_SchemaDriftInMessage(t *testing.T) {
	out := &compare.Outcome{
		RowCountChecked: true, RowCountMatch: true, WithinTolerance: true,
		ColumnsOnlyIn: "legacy_flag (left only)",
	}
	r := ConsistencyResult("orders", config.LayerLanding, config.LayerWarehouse, out)
	assert.Contains(t, r.Message, "schema drift: legacy_flag (left only)")
}

func TestConsistencyResult_SampleLimit(t *testing.T) {
	out := &compare.Outcome{MissingRight: 8, WithinTolerance: false}
	for i := 0; i < 8; i++ {
		out.Deltas = append(out.Deltas, compare.Delta{Kind: compare.DeltaMissingRight, Key: string(rune('a' + i))})
	}
	r := ConsistencyResult("orders", config.LayerLanding, config.LayerWarehouse, out)
	assert.Equal(t, StatusFail, r.Status)
	assert.Len(t, r.Sample, SampleLimit)
	assert.Contains(t, r.Sample[0], "key=a", "samples keep the comparator's key order")
}

func TestSCDResult_CleanLoad(t *testing.T) {
	out := &scd.Outcome{
		Keys: 3,
		Transitions: map[scd.Transition]int64{
			scd.TransitionInsert: 1,
			scd.TransitionNoop:   2,
		},
	}
	r := SCDResult("customer_dim", config.LayerWarehouse, out)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, CategoryDataValidation, r.Category)
	assert.Equal(t, int64(1), r.Metrics["transition_insert"])
	assert.Equal(t, int64(2), r.Metrics["transition_noop"])
	assert.Equal(t, int64(3), r.Metrics["keys"])
}

func TestSCDResult_MismatchesAndViolations(t *testing.T) {
	out := &scd.Outcome{
		Keys:        2,
		Transitions: map[scd.Transition]int64{scd.TransitionNoop: 2},
		Mismatches: []scd.TransitionRecord{{
			BusinessKey: "1", Expected: scd.TransitionUpdate, Observed: scd.TransitionNoop,
			Detail: "hash_major \"b\" in landing vs \"a\" in warehouse",
		}},
		Violations: []string{"key=2: 2 current versions"},
	}
	r := SCDResult("customer_dim", config.LayerWarehouse, out)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "1 transition mismatch(es), 1 chain violation(s)")
	require.Len(t, r.Sample, 2)
	assert.Contains(t, r.Sample[0], "key=1 expected=update observed=noop")
	assert.Contains(t, r.Sample[1], "2 current versions")
}
