package cobra

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
)

func newMonitorCmd() *cobra.Command {
	var opts commands.MonitorOpts

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Poll tracked transactions for status changes",
		Long: `Poll tracked transactions for status changes.
Runs until interrupted, reporting open -> closed transitions as the
external integration pays transactions off. Each newly closed
transaction is verified once against the configured expectations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return commands.Monitor(ctx, app, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "poll interval (default from config)")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "run a single polling pass and exit")

	return cmd
}
