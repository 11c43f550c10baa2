// Package report aggregates check results into a single run report with
// a definitive verdict, and renders it as canonical JSON or a terminal
// table.
package report

import (
	"sort"
	"time"

	"github.com/datavet/datavet/internal/checks"
	"github.com/datavet/datavet/internal/config"
)

// Verdict is the run-level outcome.
type Verdict string

const (
	// VerdictPass: every resolved check passed.
	VerdictPass Verdict = "pass"

	// VerdictFail: at least one check failed or errored. Ambiguity never
	// resolves to pass.
	VerdictFail Verdict = "fail"
)

// Report is the immutable outcome of one validation run.
type Report struct {
	// RunToken identifies the run (UUIDv7, time-ordered).
	RunToken string `json:"run_token"`

	// TriggerCounter is the externally-managed retry counter carried
	// through from configuration.
	TriggerCounter int `json:"trigger_counter"`

	Environment string         `json:"environment"`
	RunMode     config.RunMode `json:"run_mode"`
	StartedAt   string         `json:"started_at"`
	Tables      []string       `json:"tables"`

	Checks []checks.Result `json:"checks"`

	Totals  Totals  `json:"totals"`
	Verdict Verdict `json:"verdict"`
}

// Totals summarizes check statuses.
type Totals struct {
	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Error   int `json:"error"`
	Skipped int `json:"skipped"`
}

// Meta is the run identity a sink stamps onto its finalized report.
type Meta struct {
	RunToken       string
	TriggerCounter int
	Environment    string
	RunMode        config.RunMode
	StartedAt      time.Time
	Tables         []string
}

// ComputeVerdict folds statuses into the run verdict. Skipped results
// count as their recorded status (pass), never as unknown.
func ComputeVerdict(results []checks.Result) Verdict {
	for _, r := range results {
		if r.Status != checks.StatusPass {
			return VerdictFail
		}
	}
	return VerdictPass
}

// layerRank and kindRank pin the report ordering to the canonical plan
// ordering so identical run states produce identical reports.
var layerRank = map[config.Layer]int{}
var kindRank = map[checks.Kind]int{}

func init() {
	for i, l := range config.LayerOrder {
		layerRank[l] = i
	}
	for i, k := range checks.KindOrder {
		kindRank[k] = i
	}
}

// normalize orders results by table, layer, category, kind.
func normalize(results []checks.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Layer != b.Layer {
			return layerRank[a.Layer] < layerRank[b.Layer]
		}
		if a.Category != b.Category {
			// data_validation precedes data_quality, matching plan order.
			return a.Category == checks.CategoryDataValidation
		}
		return kindRank[a.Kind] < kindRank[b.Kind]
	})
}

func tally(results []checks.Result) Totals {
	var t Totals
	for _, r := range results {
		switch r.Status {
		case checks.StatusPass:
			t.Pass++
		case checks.StatusFail:
			t.Fail++
		case checks.StatusError:
			t.Error++
		}
		if r.Skipped {
			t.Skipped++
		}
	}
	return t
}

// ExitCode maps a verdict to the process exit status: 0 on pass, 1 on
// validation failure. Command errors exit 2 via the CLI layer.
func ExitCode(v Verdict) int {
	if v == VerdictPass {
		return 0
	}
	return 1
}
