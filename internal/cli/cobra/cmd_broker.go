package cobra

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/config"
	"github.com/nrchamb/QBDTestTool-Verosa/internal/logging"
)

func newBrokerCmd() *cobra.Command {
	var idleTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Run the resource broker that owns the desktop session",
		Long: `Run the resource broker that owns the desktop session.
The broker holds the one QuickBooks Desktop connection and serializes
every request arriving over the local socket. Start it before any other
command (or pass --simulate to commands for broker-free dry runs).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := globalOpts.ConfigPath
			if cfgPath == "" {
				cfgPath = config.Path(config.Default().DataDir)
			}
			cfg, _, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := commands.BrokerOpts{
				IdleTimeout: idleTimeout,
				Simulate:    globalOpts.Simulate,
			}
			return commands.Broker(ctx, cfg, opts, logging.New(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 0, "exit after this long with no client activity (0 = never)")

	return cmd
}
