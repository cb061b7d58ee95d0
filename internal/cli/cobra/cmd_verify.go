package cobra

import (
	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
)

func newVerifyCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "verify [ref-number...]",
		Short: "Verify payments on closed transactions",
		Long: `Verify payments on closed transactions.
Checks that a payment exists, landed in the expected deposit account,
matches the transaction amount, and carries the expected memo. With no
arguments, verifies every closed transaction without a recorded verdict.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return commands.Verify(cmd.Context(), app, commands.VerifyOpts{
				RefNumbers: args,
				Force:      force,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-verify transactions with a recorded verdict")

	return cmd
}
