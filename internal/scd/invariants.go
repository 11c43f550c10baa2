package scd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/snapshot"
)

// chainViolations checks the structural invariants of the loaded
// warehouse snapshot, per business key:
//
//   - at most one current version
//   - effective date never after end date
//   - consecutive versions never overlap
//   - the current version carries the open end-date sentinel
//   - a hash_major change between consecutive versions issues a new
//     surrogate key
//   - SCD system columns are non-null
//
// Violations are rendered strings sorted for deterministic reports.
func chainViolations(in Input, byKey map[string][]snapshot.Row) []string {
	cat := in.Catalog
	eff := cat.EffectiveDate()
	end := cat.EndDate()
	ind := cat.CurrentIndicator()
	sentinel := openEndDate(in.Info)

	var out []string
	add := func(key, format string, args ...any) {
		k := strings.ReplaceAll(key, "\x1f", "|")
		out = append(out, fmt.Sprintf("key=%s: ", k)+fmt.Sprintf(format, args...))
	}

	for key, rows := range byKey {
		currents := 0
		for _, r := range rows {
			if snapshot.IsTrue(r[ind]) {
				currents++
				if e := snapshot.Render(r[end]); e != sentinel && !snapshot.IsTrue(orNil(r, cat.DeleteIndicator())) {
					add(key, "current version end date %q is not the open sentinel %q", e, sentinel)
				}
			}
			for _, col := range cat.SCDColumns() {
				if r[col] == nil {
					add(key, "system column %s is null", col)
				}
			}
			es, eok := parseDate(r[eff])
			en, nok := parseDate(r[end])
			if eok && nok && es.After(en) {
				add(key, "effective date %s after end date %s", snapshot.Render(r[eff]), snapshot.Render(r[end]))
			}
		}
		if currents > 1 {
			add(key, "%d current versions", currents)
		}
		out = append(out, overlaps(in, key, rows)...)
		out = append(out, surrogateReuse(in, key, rows)...)
	}

	sort.Strings(out)
	return out
}

// overlaps reports version ranges that intersect. Versions are ordered by
// effective date; each must end no later than its successor begins.
func overlaps(in Input, key string, rows []snapshot.Row) []string {
	eff := in.Catalog.EffectiveDate()
	end := in.Catalog.EndDate()

	type span struct{ from, to string }
	var spans []span
	for _, r := range rows {
		f, fok := parseDate(r[eff])
		t, tok := parseDate(r[end])
		if !fok || !tok {
			continue
		}
		spans = append(spans, span{f.Format("2006-01-02"), t.Format("2006-01-02")})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].from < spans[j].from })

	var out []string
	for i := 1; i < len(spans); i++ {
		if spans[i-1].to > spans[i].from {
			k := strings.ReplaceAll(key, "\x1f", "|")
			out = append(out, fmt.Sprintf("key=%s: version [%s, %s] overlaps [%s, %s]",
				k, spans[i-1].from, spans[i-1].to, spans[i].from, spans[i].to))
		}
	}
	return out
}

// surrogateReuse reports version pairs whose hash_major changed without
// a new surrogate key. Versions are walked in effective-date order; the
// check only runs when a surrogate key column is configured.
func surrogateReuse(in Input, key string, rows []snapshot.Row) []string {
	sk := in.Catalog.SurrogateKey()
	if sk == "" {
		return nil
	}
	eff := in.Catalog.EffectiveDate()
	hash := in.Catalog.HashMajor()

	ordered := make([]snapshot.Row, len(rows))
	copy(ordered, rows)
	sort.Slice(ordered, func(i, j int) bool {
		return snapshot.Render(ordered[i][eff]) < snapshot.Render(ordered[j][eff])
	})

	var out []string
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if snapshot.Render(prev[hash]) == snapshot.Render(cur[hash]) {
			continue
		}
		if snapshot.Render(prev[sk]) == snapshot.Render(cur[sk]) {
			k := strings.ReplaceAll(key, "\x1f", "|")
			out = append(out, fmt.Sprintf("key=%s: surrogate key %s reused across a hash_major change",
				k, snapshot.Render(cur[sk])))
		}
	}
	return out
}

// dateViolations checks that the rows a load touched are stamped with
// the load date: versions the load opened on effective_date, versions
// it closed on end_date. Inserts and updates are only attributable to
// the load when the prior snapshot is available.
func dateViolations(in Input, key string, rows []snapshot.Row, observed Transition) []string {
	cat := in.Catalog
	ld := in.LoadDate.Format("2006-01-02")
	k := strings.ReplaceAll(key, "\x1f", "|")

	var out []string
	opened := func(r *snapshot.Row) {
		if r == nil {
			return
		}
		if d, ok := parseDate((*r)[cat.EffectiveDate()]); ok && d.Format("2006-01-02") != ld {
			out = append(out, fmt.Sprintf("key=%s: new current version effective date %s is not the load date %s",
				k, d.Format("2006-01-02"), ld))
		}
	}
	closed := func(r *snapshot.Row) {
		if r == nil {
			return
		}
		if d, ok := parseDate((*r)[cat.EndDate()]); ok && d.Format("2006-01-02") != ld {
			out = append(out, fmt.Sprintf("key=%s: closed version end date %s is not the load date %s",
				k, d.Format("2006-01-02"), ld))
		}
	}

	switch observed {
	case TransitionInsert:
		opened(currentVersion(rows, cat))
	case TransitionUpdate:
		if in.Prior != nil {
			opened(currentVersion(rows, cat))
			closed(newestClosed(rows, cat))
		}
	case TransitionDelete:
		r := newestClosed(rows, cat)
		if r == nil {
			// Delete flagged on a version still marked current.
			r = currentVersion(rows, cat)
		}
		closed(r)
	}
	return out
}

// newestClosed returns the non-current version with the latest end date.
func newestClosed(rows []snapshot.Row, cat *catalog.Catalog) *snapshot.Row {
	ind := cat.CurrentIndicator()
	end := cat.EndDate()
	var best *snapshot.Row
	var bestEnd time.Time
	for i := range rows {
		if snapshot.IsTrue(rows[i][ind]) {
			continue
		}
		d, ok := parseDate(rows[i][end])
		if !ok {
			continue
		}
		if best == nil || d.After(bestEnd) {
			best, bestEnd = &rows[i], d
		}
	}
	return best
}

func orNil(r snapshot.Row, col string) any {
	if col == "" {
		return nil
	}
	return r[col]
}
