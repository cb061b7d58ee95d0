// Package cobra provides the Cobra-based CLI command tree for qbdtest.
package cobra

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/version"
)

// globalOpts stores the parsed global options for access by subcommands.
var globalOpts commands.GlobalOpts

// GetGlobalOpts returns the parsed global options.
func GetGlobalOpts() commands.GlobalOpts {
	return globalOpts
}

// NewRootCmd creates the root cobra command for qbdtest.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qbdtest",
		Short: "Functional-test tool for QuickBooks Desktop integrations",
		Long: `qbdtest - functional-test tool for QuickBooks Desktop integrations

qbdtest generates batches of test transactions in a company file, watches
them for status changes as an external integration pays them off, and
verifies that recorded payments landed with the right account, amount,
and memo. A broker process serializes all access to the single desktop
session; every other command talks to it over a local socket.`,
		Version:       version.FullVersion(),
		SilenceErrors: true, // We handle error printing in main.go
		SilenceUsage:  true, // We handle usage printing manually
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&globalOpts.ConfigPath, "config", "", "config file path (default ~/.qbdtest/config.json)")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.Simulate, "simulate", false, "use the in-memory company file instead of QuickBooks Desktop")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.Verbose, "verbose", false, "show detailed error context")

	// Disable Cobra's default completion command (we register our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newBrokerCmd(),
		newCreateCmd(),
		newMonitorCmd(),
		newLSCmd(),
		newShowCmd(),
		newVerifyCmd(),
		newDeleteCmd(),
		newArchiveCmd(),
		newSaveCmd(),
		newLoadCmd(),
		newCompletionCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command with the given output writers.
// This is the main entry point from main.go.
func Execute(stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

// newApp builds the per-command App from the parsed global options.
// The caller owns the returned App and must Close it.
func newApp() (*commands.App, error) {
	return commands.NewApp(globalOpts, logging.New())
}
