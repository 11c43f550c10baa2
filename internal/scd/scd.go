// Package scd validates slowly-changing-dimension loads: it classifies
// the transition each business key underwent between the prior and the
// loaded warehouse snapshot, checks it against what the landing batch
// demanded, and verifies the structural invariants of the version chain.
package scd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/snapshot"
)

// State is the warehouse-side state of one business key.
type State string

const (
	// StateAbsent: no version of the key exists.
	StateAbsent State = "ABSENT"

	// StateCurrent: the key has an open current version.
	StateCurrent State = "CURRENT"

	// StateSuperseded: versions exist but none is current.
	StateSuperseded State = "SUPERSEDED"
)

// Transition classifies what one load did to one business key.
type Transition string

const (
	TransitionInsert Transition = "insert"
	TransitionUpdate Transition = "update"
	TransitionDelete Transition = "delete"
	TransitionNoop   Transition = "noop"
)

// DefaultOpenEndDate is the sentinel carried by open current versions
// when the configuration does not override it.
const DefaultOpenEndDate = "9999-12-31"

// MinorPolicy values, mirrored from the scd_info configuration.
const (
	MinorInPlace     = "in_place"
	MinorFullVersion = "full_version"
)

// DeleteDetection values, mirrored from the scd_info configuration.
const (
	DeleteByIndicator = "indicator"
	DeleteByAbsence   = "absence"
)

// TransitionRecord documents one classified key, kept for every key whose
// expected and observed transitions disagree.
type TransitionRecord struct {
	BusinessKey  string     `json:"business_key"`
	SurrogateKey string     `json:"surrogate_key,omitempty"`
	Expected     Transition `json:"expected"`
	Observed     Transition `json:"observed"`
	HashBefore   string     `json:"hash_before,omitempty"`
	HashAfter    string     `json:"hash_after,omitempty"`
	Detail       string     `json:"detail,omitempty"`
}

// Outcome is the full result of one SCD validation.
type Outcome struct {
	Keys        int                  `json:"keys"`
	Transitions map[Transition]int64 `json:"transitions"`

	// Mismatches are keys whose observed transition contradicts the
	// landing batch, in key order.
	Mismatches []TransitionRecord `json:"mismatches,omitempty"`

	// Violations are structural invariant breaches of the loaded snapshot
	// (duplicate current keys, inverted date ranges, version overlap,
	// null system columns), rendered and sorted.
	Violations []string `json:"violations,omitempty"`
}

// OK reports whether the load validated cleanly.
func (o *Outcome) OK() bool {
	return len(o.Mismatches) == 0 && len(o.Violations) == 0
}

// Input carries the snapshots and metadata for one validation.
type Input struct {
	Catalog *catalog.Catalog
	Info    config.SCDInfo

	// Landing is the incoming batch, the truth the load applied.
	Landing *snapshot.Snapshot

	// Prior is the warehouse before the load. Optional: without it the
	// validator still checks final state against landing and all
	// structural invariants, but cannot distinguish update from noop.
	Prior *snapshot.Snapshot

	// Current is the warehouse after the load.
	Current *snapshot.Snapshot

	// LoadDate is the date the validated load ran. When set, versions
	// the load opened must carry it as effective date and versions it
	// closed as end date. Zero disables the date checks.
	LoadDate time.Time
}

// Validate classifies every business key and checks the version chain.
// Missing SCD metadata fails fast with a config error before any row is
// touched.
func Validate(in Input) (*Outcome, error) {
	if err := checkMetadata(in.Catalog, in.Info); err != nil {
		return nil, err
	}

	keys := in.Catalog.BusinessKey()
	if err := in.Landing.CheckKeyColumns(keys); err != nil {
		return nil, err
	}
	if err := in.Current.CheckKeyColumns(keys); err != nil {
		return nil, err
	}

	out := &Outcome{Transitions: map[Transition]int64{}}

	landing := rowsByKey(in.Landing.Rows, keys)
	current := rowsByKey(in.Current.Rows, keys)
	var prior map[string][]snapshot.Row
	if in.Prior != nil {
		prior = rowsByKey(in.Prior.Rows, keys)
	}

	var dateViol []string
	for _, key := range sortedKeys(landing, current, prior) {
		out.Keys++
		rec := classify(in, key, landing[key], prior, current[key])
		out.Transitions[rec.Observed]++
		if rec.Expected != rec.Observed {
			out.Mismatches = append(out.Mismatches, rec)
		}
		if !in.LoadDate.IsZero() {
			dateViol = append(dateViol, dateViolations(in, key, current[key], rec.Observed)...)
		}
	}

	out.Violations = append(chainViolations(in, current), dateViol...)
	sort.Strings(out.Violations)
	return out, nil
}

// checkMetadata verifies every column role the validator depends on is
// configured.
func checkMetadata(cat *catalog.Catalog, info config.SCDInfo) error {
	missing := func(field string) error {
		return config.NewError(config.ErrCodeSCDMetadata, "scd_info."+field,
			fmt.Sprintf("scd_checks require scd_info.%s", field))
	}
	if len(cat.BusinessKey()) == 0 {
		return missing("business_key")
	}
	if cat.HashMajor() == "" {
		return missing("hash_major")
	}
	if cat.EffectiveDate() == "" {
		return missing("effective_date")
	}
	if cat.EndDate() == "" {
		return missing("end_date")
	}
	if cat.CurrentIndicator() == "" {
		return missing("current_indicator")
	}
	if cat.HashMinor() != "" && info.MinorPolicy == "" {
		return missing("minor_policy")
	}
	if detection(info) == DeleteByIndicator && cat.DeleteIndicator() == "" {
		return missing("delete_indicator")
	}
	return nil
}

func detection(info config.SCDInfo) string {
	if info.DeleteDetection == "" {
		return DeleteByIndicator
	}
	return info.DeleteDetection
}

func openEndDate(info config.SCDInfo) string {
	if info.OpenEndDate == "" {
		return DefaultOpenEndDate
	}
	return info.OpenEndDate
}

// classify works out the expected and observed transition for one key.
func classify(in Input, key string, landingRows []snapshot.Row, prior map[string][]snapshot.Row, currentRows []snapshot.Row) TransitionRecord {
	cat := in.Catalog
	rec := TransitionRecord{BusinessKey: strings.ReplaceAll(key, "\x1f", "|")}

	landed := latestRow(landingRows, cat)
	curRow := currentVersion(currentRows, cat)
	if curRow != nil {
		if sk := cat.SurrogateKey(); sk != "" {
			rec.SurrogateKey = snapshot.Render((*curRow)[sk])
		}
		rec.HashAfter = snapshot.Render((*curRow)[cat.HashMajor()])
	}

	var priorRows []snapshot.Row
	havePrior := prior != nil
	if havePrior {
		priorRows = prior[key]
	}
	priorCur := currentVersion(priorRows, cat)
	if priorCur != nil {
		rec.HashBefore = snapshot.Render((*priorCur)[cat.HashMajor()])
	}

	rec.Expected = expectedTransition(in, landed, priorCur, havePrior, curRow != nil)
	rec.Observed = observedTransition(in, priorCur, curRow, len(priorRows), len(currentRows), havePrior, landed)
	if rec.Expected != rec.Observed {
		rec.Detail = transitionDetail(in, landed, curRow)
	}
	return rec
}

// expectedTransition derives what the landing batch asked for.
func expectedTransition(in Input, landed, priorCur *snapshot.Row, havePrior, existsNow bool) Transition {
	cat := in.Catalog
	if landed == nil {
		// Key absent from landing: a delete under absence detection,
		// otherwise an untouched key.
		if detection(in.Info) == DeleteByAbsence {
			return TransitionDelete
		}
		return TransitionNoop
	}
	if detection(in.Info) == DeleteByIndicator {
		if di := cat.DeleteIndicator(); di != "" && snapshot.IsTrue((*landed)[di]) {
			return TransitionDelete
		}
	}
	if havePrior {
		if priorCur == nil {
			return TransitionInsert
		}
		lh := snapshot.Render((*landed)[cat.HashMajor()])
		ph := snapshot.Render((*priorCur)[cat.HashMajor()])
		if lh != ph {
			return TransitionUpdate
		}
		if minor := cat.HashMinor(); minor != "" {
			if snapshot.Render((*landed)[minor]) != snapshot.Render((*priorCur)[minor]) {
				return TransitionUpdate
			}
		}
		return TransitionNoop
	}
	// No prior snapshot: expectation degrades to existence. A key the
	// landing batch carries must exist; whether it was inserted or
	// updated is unknowable, so mirror the observed side's convention.
	if existsNow {
		return TransitionNoop
	}
	return TransitionInsert
}

// observedTransition derives what the load actually did.
func observedTransition(in Input, priorCur, curRow *snapshot.Row, priorN, curN int, havePrior bool, landed *snapshot.Row) Transition {
	cat := in.Catalog
	deleted := curRow == nil && curN > 0
	if curRow != nil {
		if di := cat.DeleteIndicator(); di != "" && snapshot.IsTrue((*curRow)[di]) {
			deleted = true
		}
	}

	if !havePrior {
		// State-only view: verify the final state honors the batch.
		switch {
		case deleted:
			return TransitionDelete
		case curRow == nil:
			// No current version: either closed out or never loaded.
			return TransitionDelete
		case landed != nil && snapshot.Render((*curRow)[cat.HashMajor()]) != snapshot.Render((*landed)[cat.HashMajor()]):
			// Current version does not reflect the batch: stale update.
			return TransitionUpdate
		case landed != nil && minorDiffers(cat, *curRow, *landed):
			return TransitionUpdate
		default:
			return TransitionNoop
		}
	}

	switch {
	case deleted && priorCur != nil:
		return TransitionDelete
	case priorCur == nil && curRow != nil:
		return TransitionInsert
	case priorCur == nil && curRow == nil:
		return TransitionNoop
	case curRow == nil:
		return TransitionDelete
	}

	before := snapshot.Render((*priorCur)[cat.HashMajor()])
	after := snapshot.Render((*curRow)[cat.HashMajor()])
	if before != after {
		return TransitionUpdate
	}
	if minorDiffers(cat, *priorCur, *curRow) {
		// A minor change under the in_place policy must not grow the
		// version chain; under full_version it must.
		if in.Info.MinorPolicy == MinorInPlace && curN != priorN {
			return TransitionInsert
		}
		if in.Info.MinorPolicy == MinorFullVersion && curN != priorN+1 {
			return TransitionNoop
		}
		return TransitionUpdate
	}
	if curN != priorN {
		return TransitionUpdate
	}
	return TransitionNoop
}

func minorDiffers(cat *catalog.Catalog, a, b snapshot.Row) bool {
	minor := cat.HashMinor()
	if minor == "" {
		return false
	}
	return snapshot.Render(a[minor]) != snapshot.Render(b[minor])
}

func transitionDetail(in Input, landed, curRow *snapshot.Row) string {
	switch {
	case landed == nil:
		return "key absent from landing batch"
	case curRow == nil:
		return "no current version in warehouse"
	default:
		lh := snapshot.Render((*landed)[in.Catalog.HashMajor()])
		ch := snapshot.Render((*curRow)[in.Catalog.HashMajor()])
		if lh != ch {
			return fmt.Sprintf("hash_major %q in landing vs %q in warehouse", lh, ch)
		}
		return "version chain inconsistent with batch"
	}
}

// latestRow picks the batch row for a key: the delete-flagged or newest
// row when landing carries several rows per key.
func latestRow(rows []snapshot.Row, cat *catalog.Catalog) *snapshot.Row {
	if len(rows) == 0 {
		return nil
	}
	best := rows[len(rows)-1]
	if markers := cat.TimelinessMarkers(); len(markers) > 0 {
		col := markers[0].Name
		for _, r := range rows {
			if snapshot.Render(r[col]) > snapshot.Render(best[col]) {
				best = r
			}
		}
	}
	return &best
}

// currentVersion returns the open version of a key, or nil.
func currentVersion(rows []snapshot.Row, cat *catalog.Catalog) *snapshot.Row {
	ind := cat.CurrentIndicator()
	for i := range rows {
		if snapshot.IsTrue(rows[i][ind]) {
			return &rows[i]
		}
	}
	return nil
}

func rowsByKey(rows []snapshot.Row, keys []string) map[string][]snapshot.Row {
	out := map[string][]snapshot.Row{}
	for _, r := range rows {
		k := snapshot.KeyOf(r, keys)
		out[k] = append(out[k], r)
	}
	return out
}

func sortedKeys(sets ...map[string][]snapshot.Row) []string {
	seen := map[string]bool{}
	var keys []string
	for _, s := range sets {
		for k := range s {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseDate(v any) (time.Time, bool) {
	s := strings.TrimSpace(snapshot.Render(v))
	if s == "" || s == "<null>" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
