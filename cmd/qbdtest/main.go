// Command qbdtest is a functional-test tool for QuickBooks Desktop
// integrations.
package main

import (
	"os"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/cli/cobra"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
)

func main() {
	err := cobra.Execute(os.Stdout, os.Stderr)
	if err != nil {
		// Use verbose mode if --verbose global flag was set
		opts := errors.PrintOptions{
			Verbose: cobra.GetGlobalOpts().Verbose,
		}
		errors.PrintWithOptions(os.Stderr, err, opts)
		os.Exit(errors.ExitCode(err))
	}
}
