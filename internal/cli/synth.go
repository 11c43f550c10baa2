package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/snapshot"
	"github.com/datavet/datavet/internal/synth"
)

// NewSynthCommand creates the synth command, which generates disposable
// test rows from a table's column metadata without touching any database.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	var tables []string
	var seed int64

	cmd := &cobra.Command{
		Use:           "synth <config-dir>",
		Short:         "Generate synthetic rows for tables with synthetic_data enabled",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(rootOpts, tables, seed, args[0], cmd)
		},
	}
	cmd.Flags().StringSliceVar(&tables, "table", nil, "restrict to specific table documents")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 derives one from the clock)")
	return cmd
}

func runSynth(rootOpts *RootOptions, tables []string, seed int64, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	loaded, err := loadConfigDir(dir, tables)
	if err != nil {
		return err
	}

	generated := map[string][]snapshot.Row{}
	for _, doc := range loaded.Docs {
		if !doc.Synthetic.Enabled && !doc.Synthetic.OPCOGoverned {
			formatter.VerboseLog("skipping %s: synthetic data not enabled", doc.Table)
			continue
		}
		cat, err := config.BuildCatalog(doc)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("invalid column metadata for %s", doc.Table), err)
		}
		rows, err := synth.New(cat, doc.Synthetic, seed).Generate()
		if errors.Is(err, synth.ErrOPCOGoverned) {
			return WrapExitError(ExitFailure, doc.Table, err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("generating rows for %s", doc.Table), err)
		}
		generated[doc.Table] = rows
	}
	if len(generated) == 0 {
		return NewExitError(ExitCommandError, "no table document enables synthetic_data")
	}

	if formatter.Format == "json" {
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(generated)
	}
	for _, doc := range loaded.Docs {
		rows, ok := generated[doc.Table]
		if !ok {
			continue
		}
		cat, _ := config.BuildCatalog(doc)
		cols := cat.ColumnNames()

		fmt.Fprintf(formatter.Writer, "%s: %d row(s)\n", doc.Table, len(rows))
		tw := table.NewWriter()
		tw.SetOutputMirror(formatter.Writer)
		header := make(table.Row, len(cols))
		for i, c := range cols {
			header[i] = c
		}
		tw.AppendHeader(header)
		for _, row := range rows {
			out := make(table.Row, len(cols))
			for i, c := range cols {
				out[i] = snapshot.Render(row[c])
			}
			tw.AppendRow(out)
		}
		tw.Render()
	}
	return nil
}
