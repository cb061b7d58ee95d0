package cobra

import (
	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
)

func newLSCmd() *cobra.Command {
	var opts commands.LSOpts

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List tracked transactions",
		Long: `List tracked transactions and their statuses.
Archived transactions are excluded unless --all is passed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return commands.LS(app, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "include archived transactions")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "output as JSON (stable format)")

	return cmd
}
