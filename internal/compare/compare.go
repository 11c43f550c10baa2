// Package compare reconciles two layer snapshots of the same table with a
// sorted full-outer merge-join over the business key.
//
// The comparator is streaming in spirit: both sides are sorted once, then
// walked with two cursors, so a run touches each row exactly once and
// never builds a cross-product. Deltas come out in key order, which keeps
// reports byte-identical across runs.
package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/snapshot"
)

// DeltaKind classifies one reconciliation difference.
type DeltaKind string

const (
	// DeltaMissingLeft: the key exists only on the right side.
	DeltaMissingLeft DeltaKind = "missing_left"

	// DeltaMissingRight: the key exists only on the left side.
	DeltaMissingRight DeltaKind = "missing_right"

	// DeltaValueMismatch: the key exists on both sides with differing
	// values in at least one compared column.
	DeltaValueMismatch DeltaKind = "value_mismatch"
)

// FieldDiff is one differing column inside a value_mismatch delta.
type FieldDiff struct {
	Column string `json:"column"`
	Left   string `json:"left"`
	Right  string `json:"right"`
}

// Delta is one difference between the two sides, keyed by the rendered
// business key.
type Delta struct {
	Kind   DeltaKind   `json:"kind"`
	Key    string      `json:"key"`
	Fields []FieldDiff `json:"fields,omitempty"`
}

// Outcome is the full result of one reconciliation.
type Outcome struct {
	LeftRows       int     `json:"left_rows"`
	RightRows      int     `json:"right_rows"`
	ComparedCols   int     `json:"compared_columns"`
	MissingLeft    int     `json:"missing_left"`
	MissingRight   int     `json:"missing_right"`
	ValueMismatch  int     `json:"value_mismatch"`
	ColumnsOnlyIn   string  `json:"columns_only_in,omitempty"`
	RowCountChecked bool    `json:"row_count_checked"`
	RowCountMatch   bool    `json:"row_count_match"`
	Deltas          []Delta `json:"deltas,omitempty"`
	WithinTolerance bool    `json:"within_tolerance"`
}

// TotalDeltas returns the number of differences of all kinds.
func (o *Outcome) TotalDeltas() int {
	return o.MissingLeft + o.MissingRight + o.ValueMismatch
}

// Options tunes one reconciliation run.
type Options struct {
	// Keys is the business key; both sides must carry every key column.
	Keys []string

	// Exclude removes columns from value comparison. System columns
	// (audit timestamps, hashes, SCD machinery) differ across layers by
	// construction and are always excluded by Reconcile.
	Exclude []string

	// Tolerance is the number of deltas a run may accumulate while still
	// counting as within tolerance. Zero means exact match required.
	Tolerance int

	// SkipRowCount suppresses the row-count comparison. Set for
	// synthetic-data runs, where the two sides are seeded independently.
	SkipRowCount bool
}

// Reconcile merge-joins the two snapshots and returns their deltas.
// Both sides must carry the key columns; a missing key column is a
// ValidationAbort raised by the snapshot layer, not here.
func Reconcile(left, right *snapshot.Snapshot, cat *catalog.Catalog, opts Options) (*Outcome, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("reconcile %s: no key columns", left.Table)
	}
	if err := left.CheckKeyColumns(opts.Keys); err != nil {
		return nil, err
	}
	if err := right.CheckKeyColumns(opts.Keys); err != nil {
		return nil, err
	}

	out := &Outcome{
		LeftRows:  left.RowCount(),
		RightRows: right.RowCount(),
	}

	cols, onlyIn := comparedColumns(left, right, cat, opts)
	out.ComparedCols = len(cols)
	out.ColumnsOnlyIn = onlyIn

	ls := snapshot.SortByKey(left.Rows, opts.Keys)
	rs := snapshot.SortByKey(right.Rows, opts.Keys)

	i, j := 0, 0
	for i < len(ls) && j < len(rs) {
		lk := snapshot.KeyOf(ls[i], opts.Keys)
		rk := snapshot.KeyOf(rs[j], opts.Keys)
		switch {
		case lk < rk:
			out.MissingRight++
			out.Deltas = append(out.Deltas, Delta{Kind: DeltaMissingRight, Key: lk})
			i++
		case lk > rk:
			out.MissingLeft++
			out.Deltas = append(out.Deltas, Delta{Kind: DeltaMissingLeft, Key: rk})
			j++
		default:
			if fields := diffFields(ls[i], rs[j], cols); len(fields) > 0 {
				out.ValueMismatch++
				out.Deltas = append(out.Deltas, Delta{Kind: DeltaValueMismatch, Key: lk, Fields: fields})
			}
			// Duplicate keys on one side show up as extra rows; advance both
			// cursors one step so each left row pairs with at most one right row.
			i++
			j++
		}
	}
	for ; i < len(ls); i++ {
		k := snapshot.KeyOf(ls[i], opts.Keys)
		out.MissingRight++
		out.Deltas = append(out.Deltas, Delta{Kind: DeltaMissingRight, Key: k})
	}
	for ; j < len(rs); j++ {
		k := snapshot.KeyOf(rs[j], opts.Keys)
		out.MissingLeft++
		out.Deltas = append(out.Deltas, Delta{Kind: DeltaMissingLeft, Key: k})
	}

	if !opts.SkipRowCount {
		out.RowCountChecked = true
		out.RowCountMatch = out.LeftRows == out.RightRows
	}
	out.WithinTolerance = out.TotalDeltas() <= opts.Tolerance
	return out, nil
}

// comparedColumns intersects the two observed schemas, minus keys, system
// columns, and explicit exclusions. Also reports columns present on only
// one side, rendered for the check message.
func comparedColumns(left, right *snapshot.Snapshot, cat *catalog.Catalog, opts Options) ([]string, string) {
	skip := map[string]bool{}
	for _, k := range opts.Keys {
		skip[k] = true
	}
	for _, c := range opts.Exclude {
		skip[c] = true
	}
	if cat != nil {
		for _, c := range cat.SystemColumns() {
			skip[c] = true
		}
	}

	rightSet := map[string]bool{}
	for _, c := range right.Columns {
		rightSet[c] = true
	}

	var cols, lonely []string
	for _, c := range left.Columns {
		if skip[c] {
			continue
		}
		if rightSet[c] {
			cols = append(cols, c)
		} else {
			lonely = append(lonely, c+" (left only)")
		}
	}
	leftSet := map[string]bool{}
	for _, c := range left.Columns {
		leftSet[c] = true
	}
	for _, c := range right.Columns {
		if !skip[c] && !leftSet[c] {
			lonely = append(lonely, c+" (right only)")
		}
	}
	sort.Strings(cols)
	sort.Strings(lonely)
	return cols, strings.Join(lonely, ", ")
}

func diffFields(l, r snapshot.Row, cols []string) []FieldDiff {
	var fields []FieldDiff
	for _, c := range cols {
		lv := snapshot.Render(l[c])
		rv := snapshot.Render(r[c])
		if lv != rv {
			fields = append(fields, FieldDiff{Column: c, Left: lv, Right: rv})
		}
	}
	return fields
}
