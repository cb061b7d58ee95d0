package cobra

import (
	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
)

func newShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <ref-number>",
		Short: "Show details for one tracked transaction",
		Long: `Show details for one tracked transaction, including the
recorded verification checks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return commands.Show(app, commands.ShowOpts{
				RefNumber: args[0],
				JSON:      jsonOutput,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON (stable format)")

	return cmd
}
