package checks

import (
	"fmt"

	"github.com/datavet/datavet/internal/snapshot"
)

// ruleChecks evaluates every declared per-column rule against every row.
// Rules pass or fail independently; violations across all rules aggregate
// into the one result.
func ruleChecks(in Input) Result {
	snap := in.Snapshot

	var declared int64
	var failedRules int64
	var violations []string

	for _, col := range in.Catalog.Columns() {
		if len(col.Rules) == 0 {
			continue
		}
		if !snap.HasColumn(col.Name) {
			failedRules += int64(len(col.Rules))
			violations = append(violations, fmt.Sprintf("%s: column absent from layer", col.Name))
			declared += int64(len(col.Rules))
			continue
		}
		for _, rule := range col.Rules {
			declared++
			var ruleViolations int64
			var firstBad string
			for _, row := range snap.Rows {
				lookup := func(name string) (any, bool) {
					v, ok := row[name]
					return v, ok
				}
				ok, err := rule.Eval(row[col.Name], lookup)
				if err != nil {
					return Errorf(KindRuleChecks, snap.Table, snap.Layer,
						"evaluating %s on %s: %v", rule.Describe(), col.Name, err)
				}
				if !ok {
					ruleViolations++
					if firstBad == "" {
						firstBad = snapshot.Render(row[col.Name])
					}
				}
			}
			if ruleViolations > 0 {
				failedRules++
				violations = append(violations, fmt.Sprintf(
					"%s %s: %d violation(s), e.g. %s", col.Name, rule.Describe(), ruleViolations, firstBad))
			}
		}
	}

	if declared == 0 {
		return skipped(KindRuleChecks, snap.Table, snap.Layer, "no validation rules declared")
	}

	r := pass(KindRuleChecks, snap.Table, snap.Layer,
		fmt.Sprintf("%d rule(s) hold over %d rows", declared, snap.RowCount())).
		withMetric("rules", declared).
		withMetric("failed_rules", failedRules).
		withMetric("rows", int64(snap.RowCount()))
	if failedRules > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d of %d rule(s) violated", failedRules, declared)
		r = r.withSample(violations)
	}
	return r
}
