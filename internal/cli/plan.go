package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datavet/datavet/internal/scope"
)

// NewPlanCommand creates the plan command, which resolves and prints the
// check plan without touching any database.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	var mode string
	var tables []string

	cmd := &cobra.Command{
		Use:   "plan <config-dir>",
		Short: "Print the resolved check plan for a run mode",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, mode, tables, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "local", "run mode (local|cicd|etl)")
	cmd.Flags().StringSliceVar(&tables, "table", nil, "restrict to specific table documents")
	return cmd
}

func runPlan(rootOpts *RootOptions, modeFlag string, tables []string, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	mode, err := parseRunMode(modeFlag)
	if err != nil {
		return err
	}
	loaded, err := loadConfigDir(dir, tables)
	if err != nil {
		return err
	}

	var plans []*scope.Plan
	for _, doc := range loaded.Docs {
		plan, resolveErr := scope.Resolve(doc, mode)
		if resolveErr != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("resolving plan for %s", doc.Table), resolveErr)
		}
		plans = append(plans, plan)
	}

	if formatter.Format == "json" {
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(plans)
	}
	for _, plan := range plans {
		fmt.Fprintf(formatter.Writer, "%s (%s): %d check(s)\n", plan.Table, plan.RunMode, len(plan.Checks))
		for _, c := range plan.Checks {
			fmt.Fprintf(formatter.Writer, "  %-10s %-16s %-18s detect_from=%s\n", c.Layer, c.Category, c.Kind, c.DetectFrom)
		}
	}
	return nil
}
