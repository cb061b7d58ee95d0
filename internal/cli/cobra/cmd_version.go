package cobra

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print qbdtest version",
		Long:  "Print the qbdtest version string.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "qbdtest %s\n", version.FullVersion())
		},
	}

	return cmd
}
