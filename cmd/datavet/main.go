package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/datavet/datavet/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// ExitErrors carry their own code and have already printed their
		// diagnostics; everything else is a command error.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Code == cli.ExitCommandError {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
}
