package checks

import (
	"fmt"
	"sort"

	"github.com/datavet/datavet/internal/config"
)

// Status is the outcome of one executed check.
type Status string

const (
	// StatusPass: the check ran and the data honored its contract.
	StatusPass Status = "pass"

	// StatusFail: the check ran and the data violated its contract.
	StatusFail Status = "fail"

	// StatusError: the check could not run (connector failure, malformed
	// layer, internal error). Never collapsed into pass.
	StatusError Status = "error"
)

// SampleLimit bounds the offending-row sample carried by one result.
const SampleLimit = 5

// Result is the immutable outcome of one (layer, check_type) execution.
// Every resolved check produces exactly one Result; multiple column-level
// failures aggregate into the one result's sample.
type Result struct {
	Kind     Kind         `json:"kind"`
	Category Category     `json:"category"`
	Table    string       `json:"table"`
	Layer    config.Layer `json:"layer"`
	Status   Status       `json:"status"`
	Message  string       `json:"message,omitempty"`

	// Metrics carries named counts (rows checked, violations, etc.).
	Metrics map[string]int64 `json:"metrics,omitempty"`

	// Sample holds up to SampleLimit rendered offending rows or values.
	Sample []string `json:"sample,omitempty"`

	// Skipped marks a passing result whose check was configured away
	// (e.g. every timeliness bound set to zero). Skips are reported, never
	// silently dropped from the plan.
	Skipped bool `json:"skipped,omitempty"`
}

// pass builds a passing result.
func pass(kind Kind, table string, layer config.Layer, msg string) Result {
	cat, _ := CategoryOf(kind)
	return Result{Kind: kind, Category: cat, Table: table, Layer: layer, Status: StatusPass, Message: msg}
}

// fail builds a failing result.
func fail(kind Kind, table string, layer config.Layer, msg string) Result {
	cat, _ := CategoryOf(kind)
	return Result{Kind: kind, Category: cat, Table: table, Layer: layer, Status: StatusFail, Message: msg}
}

// Errorf builds an error-status result. Exported for the runner, which
// records connector failures and validation aborts on behalf of every
// check resolved for the broken layer.
func Errorf(kind Kind, table string, layer config.Layer, format string, args ...any) Result {
	cat, _ := CategoryOf(kind)
	return Result{
		Kind: kind, Category: cat, Table: table, Layer: layer,
		Status: StatusError, Message: fmt.Sprintf(format, args...),
	}
}

// skipped builds a passing result flagged as skipped.
func skipped(kind Kind, table string, layer config.Layer, msg string) Result {
	r := pass(kind, table, layer, msg)
	r.Skipped = true
	return r
}

// withMetric attaches one named count.
func (r Result) withMetric(name string, v int64) Result {
	if r.Metrics == nil {
		r.Metrics = map[string]int64{}
	}
	r.Metrics[name] = v
	return r
}

// withSample attaches a bounded, sorted sample. Sorting keeps reports
// byte-identical across runs regardless of map iteration order upstream.
func (r Result) withSample(sample []string) Result {
	if len(sample) == 0 {
		return r
	}
	sorted := make([]string, len(sample))
	copy(sorted, sample)
	sort.Strings(sorted)
	if len(sorted) > SampleLimit {
		sorted = sorted[:SampleLimit]
	}
	r.Sample = sorted
	return r
}
