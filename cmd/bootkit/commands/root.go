// Package commands implements the bootkit command line.
package commands

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/bootkit/pkg/config"
	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	properties []string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bootkit",
		Short: "Configure, wire and run application components",
		Long: `bootkit assembles the demo components from properties, checks that every
property is used, builds the component graph in dependency order and runs
their lifecycle.

Properties come from (lowest to highest precedence) the property file and
--set flags. Values may reference the environment with ${ENV:NAME}.

Use "bootkit [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String(config.KeyConfig, "", "property file (default: $XDG_CONFIG_HOME/bootkit/config.yaml if present)")
	pf.String(config.KeyEnvFile, "", "dotenv file layered over the process environment for ${ENV:NAME}")
	pf.String(config.KeyLogLevel, "INFO", "log level (debug, info, warn, error)")
	pf.String(config.KeyLogFormat, "text", "log format (text, json)")
	pf.String(config.KeyLogOutput, "stderr", "log output (stdout, stderr or a file path)")
	pf.Bool(config.KeyStrictConfig, true, "fail when a property is not used by any component")
	pf.Duration(config.KeyStopTimeout, 30*time.Second, "time allowed for stop hooks on shutdown")
	pf.StringArrayVarP(&opts.properties, "set", "D", nil, "set a property (key=value), repeatable")

	cmd.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newGraphCmd(opts),
		newConfigCmd(),
		newVersionCmd(),
	)
	cmd.CompletionOptions.DisableDefaultCmd = true
	return cmd
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// ExitCode maps err to the process exit code: 0 success, 1 configuration
// error, 2 wiring error, 3 lifecycle start error. Usage errors exit with 1.
func ExitCode(err error) int {
	return bserrors.ExitCode(err)
}

// reportedError wraps an error that was already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var re *reportedError
	return errors.As(err, &re)
}
