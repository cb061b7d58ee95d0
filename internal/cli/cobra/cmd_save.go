package cobra

import (
	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
)

func newSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [path]",
		Short: "Save the session to a file",
		Long: `Save the session to a file.
With no path, writes to the default session file in the data directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return commands.Save(app, path, cmd.OutOrStdout())
		},
	}

	return cmd
}

func newLoadCmd() *cobra.Command {
	var reverify bool

	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Load a session file and make it the current session",
		Long: `Load a session file and make it the current session.
With --reverify, recorded verdicts on closed transactions are cleared so
the next monitor or verify pass checks them again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return commands.Load(app, commands.LoadOpts{
				Path:     args[0],
				Reverify: reverify,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&reverify, "reverify", false, "clear recorded verdicts for re-verification")

	return cmd
}
