package checks

import (
	"fmt"
	"time"

	"github.com/datavet/datavet/internal/snapshot"
)

// timeLayouts are the timestamp encodings connectors produce. Tried in
// order; first match wins.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime interprets a snapshot value as a timestamp.
func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// timeliness verifies each marker column's newest value falls within its
// configured age bound, relative to the run clock. Markers bounded at
// zero hours are exempt; when every marker is exempt the whole check is
// reported as skipped rather than silently passing.
func timeliness(in Input) Result {
	snap := in.Snapshot
	markers := in.Catalog.TimelinessMarkers()
	if len(markers) == 0 {
		return skipped(KindTimeliness, snap.Table, snap.Layer, "no timeliness markers configured")
	}

	active := 0
	var violations []string
	var staleCols int64
	for _, marker := range markers {
		if marker.ExpectedHours == 0 {
			continue
		}
		active++
		var latest time.Time
		seen := false
		for _, row := range snap.Rows {
			ts, ok := parseTime(row[marker.Name])
			if !ok {
				continue
			}
			if !seen || ts.After(latest) {
				latest = ts
				seen = true
			}
		}
		if !seen {
			staleCols++
			violations = append(violations, fmt.Sprintf("%s: no parseable timestamps", marker.Name))
			continue
		}
		age := in.Now.Sub(latest)
		bound := time.Duration(marker.ExpectedHours) * time.Hour
		if age > bound {
			staleCols++
			violations = append(violations, fmt.Sprintf(
				"%s: latest %s is %.1fh old, bound %dh",
				marker.Name, snapshot.Render(latest.Format(time.RFC3339)), age.Hours(), marker.ExpectedHours))
		}
	}

	if active == 0 {
		return skipped(KindTimeliness, snap.Table, snap.Layer,
			"all timeliness bounds are zero")
	}

	r := pass(KindTimeliness, snap.Table, snap.Layer,
		fmt.Sprintf("%d marker column(s) within bounds", active)).
		withMetric("markers_checked", int64(active)).
		withMetric("stale_markers", staleCols)
	if staleCols > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d marker column(s) out of bounds", staleCols)
		r = r.withSample(violations)
	}
	return r
}
