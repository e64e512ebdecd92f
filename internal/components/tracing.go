package components

import (
	"context"
	"errors"

	"github.com/marmos91/bootkit/internal/logger"
	"github.com/marmos91/bootkit/internal/telemetry"
	"github.com/marmos91/bootkit/pkg/configbind"
)

var telemetrySchema = configbind.MustSchema[telemetry.Config]("telemetry-config",
	configbind.WithDefaults(func() *telemetry.Config {
		cfg := telemetry.DefaultConfig()
		return &cfg
	}))

// Tracing installs the trace exporter and profiler configured under
// "telemetry". Both stay off unless enabled.
type Tracing struct {
	config telemetry.Config

	shutdown      func(context.Context) error
	stopProfiling func() error
}

// NewTracing creates the tracing component.
func NewTracing(cfg *telemetry.Config) *Tracing {
	return &Tracing{config: *cfg}
}

// Start installs the tracer provider and starts profiling.
func (t *Tracing) Start(ctx context.Context) error {
	shutdown, err := telemetry.Init(ctx, t.config)
	if err != nil {
		return err
	}
	t.shutdown = shutdown

	stop, err := telemetry.InitProfiling(t.config)
	if err != nil {
		_ = shutdown(ctx)
		t.shutdown = nil
		return err
	}
	t.stopProfiling = stop

	if t.config.Enabled || t.config.Profiling.Enabled {
		logger.InfoCtx(ctx, "Telemetry started",
			"tracing", t.config.Enabled, "profiling", t.config.Profiling.Enabled,
			logger.Address(t.config.Endpoint))
	}
	return nil
}

// Stop flushes pending spans and stops the profiler.
func (t *Tracing) Stop(ctx context.Context) error {
	var errs []error
	if t.stopProfiling != nil {
		errs = append(errs, t.stopProfiling())
		t.stopProfiling = nil
	}
	if t.shutdown != nil {
		errs = append(errs, t.shutdown(ctx))
		t.shutdown = nil
	}
	return errors.Join(errs...)
}
