package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datavet/datavet/internal/report"
)

// NewRunsCommand creates the runs command, which lists archived run
// reports and prints individual ones back out of the archive.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var env string
	var limit int
	var token string

	cmd := &cobra.Command{
		Use:           "runs <archive.db>",
		Short:         "List or show run reports archived with run --archive",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, env, limit, token, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "restrict to one environment (empty lists all)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs listed")
	cmd.Flags().StringVar(&token, "token", "", "print the full report for one run token")
	return cmd
}

func runRuns(rootOpts *RootOptions, env string, limit int, token, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	store, err := report.OpenStore(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening report archive", err)
	}
	defer store.Close()

	if token != "" {
		rep, err := store.Load(cmd.Context(), token)
		if err != nil {
			return WrapExitError(ExitCommandError, "loading archived report", err)
		}
		if formatter.Format == "json" {
			canonical, marshalErr := report.MarshalCanonical(rep)
			if marshalErr != nil {
				return WrapExitError(ExitCommandError, "marshaling report", marshalErr)
			}
			fmt.Fprintln(formatter.Writer, string(canonical))
			return nil
		}
		report.RenderText(formatter.Writer, rep)
		return nil
	}

	runs, err := store.List(cmd.Context(), env, limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing archived runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "no archived runs")
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(formatter.Writer)
	tw.AppendHeader(table.Row{"Token", "Environment", "Started", "Verdict"})
	for _, r := range runs {
		tw.AppendRow(table.Row{r.RunToken, r.Environment, r.StartedAt, r.Verdict})
	}
	tw.Render()
	return nil
}
