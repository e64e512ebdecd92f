package commands

import (
	"os/signal"
	"syscall"

	"github.com/marmos91/bootkit/internal/logger"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Initialize and start the components, then wait for a signal",
		Long: `Initialize the components and start them in dependency order.

The command blocks until SIGINT or SIGTERM, then runs the stop hooks in
reverse start order within --stop-timeout.

Exit codes:
  0  stopped cleanly
  1  configuration error
  2  wiring error
  3  a start hook failed

Examples:
  # Run with the default property file
  bootkit run

  # Run with explicit properties
  bootkit run -D node.environment=dev -D http-server.port=9090

  # Tolerate properties that no component uses
  bootkit run --config app.yaml --strict-config=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := newBootstrap(cmd, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mgr, err := b.Initialize(ctx)
			if err != nil {
				return err
			}

			logger.Info("Components running, press Ctrl+C to stop", logger.BootstrapID(b.ID()))
			if err := mgr.Wait(ctx); err != nil {
				logger.Error("Shutdown finished with errors", logger.Err(err))
				return err
			}
			logger.Info("Shutdown complete")
			return nil
		},
	}
}
