package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datavet/datavet/internal/checks"
	"github.com/datavet/datavet/internal/report"
	"github.com/datavet/datavet/internal/runner"
	"github.com/datavet/datavet/internal/snapshot"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Mode        string
	Environment string
	DSN         string
	Archive     string
	Tables      []string
	Workers     int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <config-dir>",
		Short: "Execute the resolved check plan for every table document",
		Long: `Load the configuration directory, resolve each table's check plan for
the selected run mode, read layer snapshots, execute all checks, and
print the aggregated report.

Exit status: 0 when the verdict is pass, 1 when it is fail, 2 on
command errors.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "local", "run mode (local|cicd|etl)")
	cmd.Flags().StringVar(&opts.Environment, "env", "local", "environment label stamped on the report")
	cmd.Flags().StringVar(&opts.DSN, "db", "", "database DSN (postgres://... or a sqlite file path)")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "sqlite file archiving run reports (optional)")
	cmd.Flags().StringSliceVar(&opts.Tables, "table", nil, "restrict to specific table documents")
	cmd.Flags().IntVar(&opts.Workers, "workers", runner.DefaultWorkers, "table-level parallelism")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	mode, err := parseRunMode(opts.Mode)
	if err != nil {
		return err
	}

	loaded, err := loadConfigDir(dir, opts.Tables)
	if err != nil {
		return err
	}
	formatter.VerboseLog("loaded %d table document(s) from %s", len(loaded.Docs), dir)

	connector, err := openConnector(opts.DSN)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer connector.Close()

	sink := report.NewSink()
	// Documents that failed to load still owe results: one error record
	// per table keeps the report exhaustive.
	for table, loadErr := range loaded.TableErrors {
		sink.Add(checks.Errorf(checks.KindConfig, table, "", "document unusable: %v", loadErr))
	}

	trigger := 0
	for _, doc := range loaded.Docs {
		if doc.TriggerCounter > trigger {
			trigger = doc.TriggerCounter
		}
	}

	rep, err := runner.Run(cmd.Context(), runner.RunContext{
		RunMode:        mode,
		Environment:    opts.Environment,
		TriggerCounter: trigger,
		Connector:      connector,
		Sink:           sink,
		Workers:        opts.Workers,
	}, loaded.Docs)
	if err != nil {
		return WrapExitError(ExitCommandError, "run aborted", err)
	}

	if opts.Archive != "" {
		store, storeErr := report.OpenStore(opts.Archive)
		if storeErr != nil {
			return WrapExitError(ExitCommandError, "opening report archive", storeErr)
		}
		defer store.Close()
		if saveErr := store.Save(cmd.Context(), rep); saveErr != nil {
			return WrapExitError(ExitCommandError, "archiving report", saveErr)
		}
		formatter.VerboseLog("report %s archived to %s", rep.RunToken, opts.Archive)
	}

	if formatter.Format == "json" {
		canonical, marshalErr := report.MarshalCanonical(rep)
		if marshalErr != nil {
			return WrapExitError(ExitCommandError, "marshaling report", marshalErr)
		}
		fmt.Fprintln(formatter.Writer, string(canonical))
	} else {
		report.RenderText(formatter.Writer, rep)
	}

	if code := report.ExitCode(rep.Verdict); code != ExitSuccess {
		return NewExitError(code, fmt.Sprintf("verdict %s: %d fail, %d error",
			rep.Verdict, rep.Totals.Fail, rep.Totals.Error))
	}
	return nil
}

// openConnector picks the connector from the DSN shape: postgres URLs go
// to lib/pq, anything else is treated as a sqlite file path.
func openConnector(dsn string) (snapshot.Connector, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return snapshot.OpenPostgres(dsn)
	}
	return snapshot.OpenSQLite(dsn)
}
