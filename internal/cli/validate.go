package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds document validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Tables []string `json:"tables,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate scope documents without running checks",
		Long: `Validate the configuration directory: CUE schema conformance, merge
against the default document, and relational rules (layer references,
SCD metadata). No database connection is made.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(rootOpts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	loaded, err := loadConfigDir(dir, nil)
	if err != nil {
		return err
	}

	result := ValidationResult{Valid: len(loaded.TableErrors) == 0}
	for _, doc := range loaded.Docs {
		result.Tables = append(result.Tables, doc.Table)
	}
	result.Errors = tableErrorLines(loaded.TableErrors)

	if !result.Valid {
		if formatter.Format == "json" {
			_ = formatter.Success(result)
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Validation failed")
			for _, line := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", line)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d document(s)", len(result.Errors)))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d document(s) valid\n", len(result.Tables))
	return nil
}
