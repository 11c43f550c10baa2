package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/datavet/datavet/internal/checks"
)

// RenderText writes the report as a terminal table followed by the
// samples of every non-passing check.
func RenderText(w io.Writer, r *Report) {
	fmt.Fprintf(w, "run %s  mode=%s env=%s trigger=%d\n",
		r.RunToken, r.RunMode, r.Environment, r.TriggerCounter)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Table", "Layer", "Check", "Status", "Message"})
	for _, c := range r.Checks {
		status := string(c.Status)
		if c.Skipped {
			status += " (skipped)"
		}
		tw.AppendRow(table.Row{c.Table, c.Layer, c.Kind, status, c.Message})
	}
	tw.Render()

	for _, c := range r.Checks {
		if c.Status == checks.StatusPass || len(c.Sample) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s/%s/%s sample:\n", c.Table, c.Layer, c.Kind)
		for _, s := range c.Sample {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}

	fmt.Fprintf(w, "\n%d pass, %d fail, %d error, %d skipped: %s\n",
		r.Totals.Pass, r.Totals.Fail, r.Totals.Error, r.Totals.Skipped,
		strings.ToUpper(string(r.Verdict)))
}
