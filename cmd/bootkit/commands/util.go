package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/bootkit/internal/cli/output"
	"github.com/marmos91/bootkit/internal/components"
	"github.com/marmos91/bootkit/internal/logger"
	"github.com/marmos91/bootkit/pkg/bootstrap"
	"github.com/marmos91/bootkit/pkg/config"
	"github.com/marmos91/bootkit/pkg/envsubst"
	"github.com/marmos91/bootkit/pkg/metrics"
	"github.com/marmos91/bootkit/pkg/properties"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// initLogger configures the logger from settings. Logs meant for stderr go
// to the command's error writer so tests can capture them.
func initLogger(cmd *cobra.Command, s *config.Settings) error {
	if strings.EqualFold(s.Logging.Output, "stderr") && cmd.ErrOrStderr() != os.Stderr {
		if _, err := logger.ParseLevel(s.Logging.Level); err != nil {
			return err
		}
		logger.InitWithWriter(cmd.ErrOrStderr(), s.Logging.Level, s.Logging.Format, false)
		return nil
	}
	if err := logger.Init(logger.Config{
		Level:  s.Logging.Level,
		Format: s.Logging.Format,
		Output: s.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// parseProperties turns key=value arguments into a Map, keeping their order.
// A repeated key keeps the last value.
func parseProperties(args []string) (*properties.Map, error) {
	props := properties.New()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid property %q: expected key=value", arg)
		}
		props.Set(strings.TrimSpace(key), value)
	}
	return props, nil
}

// newBootstrap loads settings and prepares a Bootstrap for the demo
// components.
func newBootstrap(cmd *cobra.Command, opts *rootOptions) (*bootstrap.Bootstrap, *config.Settings, error) {
	settings, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := initLogger(cmd, settings); err != nil {
		return nil, nil, err
	}

	env := envsubst.FromOS()
	if settings.EnvFile != "" {
		fileEnv, err := envsubst.LoadEnvFile(settings.EnvFile)
		if err != nil {
			return nil, nil, err
		}
		env = env.Overlay(fileEnv)
	}

	props, err := parseProperties(opts.properties)
	if err != nil {
		return nil, nil, err
	}

	reg := metrics.NewRegistry()
	b := bootstrap.New(components.Modules(components.Options{Registry: reg})...).
		SetRequiredProperties(props).
		SetConfigFile(settings.ConfigFile).
		SetEnvironment(env).
		SetMetricsRegisterer(reg).
		SetStopTimeout(settings.StopTimeout)
	if settings.StrictConfig != nil {
		b.SetStrictConfig(*settings.StrictConfig)
	}
	return b, settings, nil
}

// addOutputFlag registers -o/--output.
func addOutputFlag(cmd *cobra.Command, target *string, def string) {
	cmd.Flags().StringVarP(target, "output", "o", def, "output format (table, json, yaml)")
}

// newPrinter creates a printer for cmd's output stream.
func newPrinter(cmd *cobra.Command, format string) (*output.Printer, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	color := false
	if file, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(file.Fd())) && os.Getenv("NO_COLOR") == ""
	}
	return output.NewPrinter(out, f, color), nil
}

// printFailure renders an initialization error and marks it reported.
func printFailure(p *output.Printer, err error) error {
	if perr := p.Print(output.NewErrorReport(err)); perr != nil {
		return err
	}
	return &reportedError{err: err}
}
