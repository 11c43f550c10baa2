package report

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavet/datavet/internal/checks"
	"github.com/datavet/datavet/internal/config"
)

func result(table string, layer config.Layer, kind checks.Kind, status checks.Status) checks.Result {
	cat, _ := checks.CategoryOf(kind)
	return checks.Result{Kind: kind, Category: cat, Table: table, Layer: layer, Status: status}
}

func TestComputeVerdict(t *testing.T) {
	assert.Equal(t, VerdictPass, ComputeVerdict(nil))
	assert.Equal(t, VerdictPass, ComputeVerdict([]checks.Result{
		result("a", config.LayerSource, checks.KindCompleteness, checks.StatusPass),
	}))
	assert.Equal(t, VerdictFail, ComputeVerdict([]checks.Result{
		result("a", config.LayerSource, checks.KindCompleteness, checks.StatusPass),
		result("a", config.LayerSource, checks.KindDuplication, checks.StatusFail),
	}))
	assert.Equal(t, VerdictFail, ComputeVerdict([]checks.Result{
		result("a", config.LayerSource, checks.KindCompleteness, checks.StatusError),
	}), "an errored check never resolves to pass")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(VerdictPass))
	assert.Equal(t, 1, ExitCode(VerdictFail))
}

func TestFinalize_NormalizesOrder(t *testing.T) {
	s := NewSink()
	// Appended in scrambled worker order.
	s.Add(result("orders", config.LayerWarehouse, checks.KindCompleteness, checks.StatusPass))
	s.Add(result("items", config.LayerSource, checks.KindCompleteness, checks.StatusPass))
	s.Add(result("orders", config.LayerSource, checks.KindDuplication, checks.StatusPass))
	s.Add(result("orders", config.LayerSource, checks.KindRuleChecks, checks.StatusPass))
	s.Add(result("orders", config.LayerSource, checks.KindCompleteness, checks.StatusPass))

	r := s.Finalize(Meta{Tables: []string{"orders", "items"}})

	var got []string
	for _, c := range r.Checks {
		got = append(got, c.Table+"/"+string(c.Layer)+"/"+string(c.Kind))
	}
	assert.Equal(t, []string{
		"items/source/completeness",
		"orders/source/rule_checks",
		"orders/source/completeness",
		"orders/source/duplication",
		"orders/warehouse/completeness",
	}, got, "table, then layer, then data_validation before data_quality, then kind order")

	assert.Equal(t, []string{"items", "orders"}, r.Tables)
}

func TestFinalize_TotalsAndVerdict(t *testing.T) {
	s := NewSink()
	s.Add(result("t", config.LayerSource, checks.KindCompleteness, checks.StatusPass))
	s.Add(result("t", config.LayerSource, checks.KindDuplication, checks.StatusFail))
	s.Add(result("t", config.LayerSource, checks.KindAccuracy, checks.StatusError))
	skippedResult := result("t", config.LayerSource, checks.KindTimeliness, checks.StatusPass)
	skippedResult.Skipped = true
	s.Add(skippedResult)

	r := s.Finalize(Meta{
		RunToken:  "tok",
		StartedAt: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
	})
	assert.Equal(t, Totals{Pass: 2, Fail: 1, Error: 1, Skipped: 1}, r.Totals)
	assert.Equal(t, VerdictFail, r.Verdict)
	assert.Equal(t, "2024-06-01T12:30:00Z", r.StartedAt)
}

func TestSink_ConcurrentAdds(t *testing.T) {
	s := NewSink()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(result("t", config.LayerSource, checks.KindCompleteness, checks.StatusPass))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())

	r := s.Finalize(Meta{})
	assert.Len(t, r.Checks, 50)
	assert.Equal(t, VerdictPass, r.Verdict)
}

func TestSink_AddAfterFinalizePanics(t *testing.T) {
	s := NewSink()
	s.Finalize(Meta{})
	assert.Panics(t, func() {
		s.Add(result("t", config.LayerSource, checks.KindCompleteness, checks.StatusPass))
	})
}

func TestFinalize_EmptyRunPasses(t *testing.T) {
	r := NewSink().Finalize(Meta{})
	require.NotNil(t, r.Checks)
	assert.Empty(t, r.Checks)
	assert.Equal(t, VerdictPass, r.Verdict)
}
