package cobra

import (
	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
)

func newDeleteCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete [ref-number...]",
		Short: "Delete test transactions from the company file",
		Long: `Delete test transactions from the company file and the session.
A transaction already gone remotely is still removed from the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return commands.Delete(cmd.Context(), app, commands.DeleteOpts{
				RefNumbers: args,
				All:        all,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "delete every tracked transaction")

	return cmd
}

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <ref-number...>",
		Short: "Exclude transactions from polling without deleting them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return commands.Archive(app, commands.ArchiveOpts{RefNumbers: args}, cmd.OutOrStdout())
		},
	}

	return cmd
}
