package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/scd"
)

// SCDResult folds one transition-validation outcome into a check result,
// recorded against the warehouse layer.
func SCDResult(table string, layer config.Layer, out *scd.Outcome) Result {
	var r Result
	if out.OK() {
		r = pass(KindSCD, table, layer,
			fmt.Sprintf("%d key(s) classified, all transitions consistent", out.Keys))
	} else {
		r = fail(KindSCD, table, layer,
			fmt.Sprintf("%d transition mismatch(es), %d chain violation(s)",
				len(out.Mismatches), len(out.Violations)))
	}

	r = r.withMetric("keys", int64(out.Keys)).
		withMetric("mismatches", int64(len(out.Mismatches))).
		withMetric("violations", int64(len(out.Violations)))
	for _, t := range sortedTransitions(out.Transitions) {
		r = r.withMetric("transition_"+string(t), out.Transitions[t])
	}

	var sample []string
	for _, m := range out.Mismatches {
		s := fmt.Sprintf("key=%s expected=%s observed=%s", m.BusinessKey, m.Expected, m.Observed)
		if m.Detail != "" {
			s += " (" + m.Detail + ")"
		}
		sample = append(sample, s)
	}
	sample = append(sample, out.Violations...)
	return r.withSample(sample)
}

func sortedTransitions(m map[scd.Transition]int64) []scd.Transition {
	keys := make([]scd.Transition, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.Compare(string(keys[i]), string(keys[j])) < 0
	})
	return keys
}
