package cli

import (
	"errors"
	"sort"
	"strings"

	"github.com/datavet/datavet/internal/config"
)

// LoadResult holds the documents of one config directory plus the
// per-table errors that did not stop the load.
type LoadResult struct {
	Docs        []*config.Document
	TableErrors map[string]error
}

// loadConfigDir wraps config.LoadDir with exit-code mapping: a missing
// directory is a command error, a fatal default-document problem is a
// validation failure.
func loadConfigDir(dir string, tables []string) (*LoadResult, error) {
	docs, tableErrs, err := config.LoadDir(dir, tables)
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			return nil, WrapExitError(ExitFailure, "invalid default document", err)
		}
		return nil, WrapExitError(ExitCommandError, "loading configuration", err)
	}
	return &LoadResult{Docs: docs, TableErrors: tableErrs}, nil
}

// tableErrorLines renders per-table load errors in a stable order.
func tableErrorLines(errs map[string]error) []string {
	var out []string
	for table, err := range errs {
		out = append(out, table+": "+err.Error())
	}
	sort.Strings(out)
	return out
}

// parseRunMode validates the --mode flag.
func parseRunMode(s string) (config.RunMode, error) {
	mode := config.RunMode(strings.ToLower(strings.TrimSpace(s)))
	if !config.ValidRunModes[mode] {
		return "", NewExitError(ExitCommandError, "invalid --mode: must be local, cicd, or etl")
	}
	return mode, nil
}
