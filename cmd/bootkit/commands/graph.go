package commands

import (
	"github.com/marmos91/bootkit/internal/cli/output"
	"github.com/spf13/cobra"
)

func newGraphCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the component graph in construction order",
		Long: `Build the component graph without starting it and print each component
with its dependencies and lifecycle hooks. Start hooks run top to bottom,
stop hooks bottom to top.

Examples:
  bootkit graph -D node.environment=dev
  bootkit graph -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd, format)
			if err != nil {
				return err
			}
			b, _, err := newBootstrap(cmd, opts)
			if err != nil {
				return err
			}

			mgr, err := b.DoNotStart().Quiet().Initialize(cmd.Context())
			if err != nil {
				return printFailure(p, err)
			}
			return p.Print(output.NewGraphTable(mgr.Graph()))
		},
	}
	addOutputFlag(cmd, &format, "table")
	return cmd
}
