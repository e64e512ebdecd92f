// Package bootstrap assembles an application from modules, properties and
// the environment.
//
// Initialize runs a fixed pipeline. Problems found within one phase are
// reported together; a failing phase stops the pipeline.
//
//	merge       layer optional, file and required properties; check keys
//	substitute  expand ${ENV:NAME} tokens
//	install     run modules into a descriptor registry
//	bind        build every config object from the property ledger
//	strict      reject (or warn about) properties nobody consumed
//	graph       construct components in dependency order
//	start       run start hooks, unless DoNotStart was called
package bootstrap

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/bootkit/internal/logger"
	"github.com/marmos91/bootkit/internal/telemetry"
	"github.com/marmos91/bootkit/pkg/configbind"
	"github.com/marmos91/bootkit/pkg/envsubst"
	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/graph"
	"github.com/marmos91/bootkit/pkg/ledger"
	"github.com/marmos91/bootkit/pkg/lifecycle"
	"github.com/marmos91/bootkit/pkg/properties"
	"github.com/marmos91/bootkit/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
)

// Phase names, as they appear in logs and spans.
const (
	PhaseMerge      = "merge"
	PhaseSubstitute = "substitute"
	PhaseInstall    = "install"
	PhaseBind       = "bind"
	PhaseStrict     = "strict"
	PhaseGraph      = "graph"
	PhaseStart      = "start"
)

// StrictConfigSwitch is the process-wide switch consulted when strict
// config was not set explicitly.
const StrictConfigSwitch = "bootstrap.strict-config"

// SwitchFunc looks up a process-wide switch by name.
type SwitchFunc func(name string) (string, bool)

// SwitchEnvName derives the environment variable backing a switch:
// "bootstrap.strict-config" becomes "BOOTSTRAP_STRICT_CONFIG".
func SwitchEnvName(name string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
}

// EnvSwitches reads switches from the process environment.
func EnvSwitches(name string) (string, bool) {
	return os.LookupEnv(SwitchEnvName(name))
}

// Bootstrap configures and runs one initialization. It is not safe for
// concurrent use and can be initialized once.
type Bootstrap struct {
	modules    []registry.Module
	required   *properties.Map
	optional   *properties.Map
	configFile string
	env        envsubst.Environment
	strict     *bool
	switches   SwitchFunc
	doNotStart bool
	quiet      bool
	registerer prometheus.Registerer
	stopAfter  time.Duration

	initialized bool
	id          string
	effStrict   bool
	ledger      *ledger.Ledger
	report      []configbind.PropertyReport
	unused      []string
}

// New creates a Bootstrap for the given modules.
func New(modules ...registry.Module) *Bootstrap {
	return &Bootstrap{
		modules:  modules,
		required: properties.New(),
		optional: properties.New(),
		switches: EnvSwitches,
	}
}

// SetRequiredConfigurationProperties replaces the required property set.
func (b *Bootstrap) SetRequiredConfigurationProperties(props map[string]string) *Bootstrap {
	return b.SetRequiredProperties(properties.FromMap(props))
}

// SetRequiredProperties replaces the required property set, keeping the
// order of props.
func (b *Bootstrap) SetRequiredProperties(props *properties.Map) *Bootstrap {
	b.required = props.Clone()
	return b
}

// SetOptionalConfigurationProperties sets properties that apply unless a
// required property or the config file sets the same key.
func (b *Bootstrap) SetOptionalConfigurationProperties(props map[string]string) *Bootstrap {
	b.optional = properties.FromMap(props)
	return b
}

// SetConfigFile names a property file layered between the optional and the
// required properties.
func (b *Bootstrap) SetConfigFile(path string) *Bootstrap {
	b.configFile = path
	return b
}

// SetEnvironment sets the environment used for substitution. The default is
// a snapshot of the process environment taken by Initialize.
func (b *Bootstrap) SetEnvironment(env envsubst.Environment) *Bootstrap {
	b.env = env
	return b
}

// SetStrictConfig decides whether unconsumed properties fail Initialize,
// overriding the process-wide switch.
func (b *Bootstrap) SetStrictConfig(strict bool) *Bootstrap {
	b.strict = &strict
	return b
}

// SetSwitches replaces the process-wide switch source.
func (b *Bootstrap) SetSwitches(fn SwitchFunc) *Bootstrap {
	b.switches = fn
	return b
}

// DoNotStart makes Initialize return a manager that has not been started.
func (b *Bootstrap) DoNotStart() *Bootstrap {
	b.doNotStart = true
	return b
}

// Quiet suppresses the property report log.
func (b *Bootstrap) Quiet() *Bootstrap {
	b.quiet = true
	return b
}

// SetMetricsRegisterer registers lifecycle hook metrics with reg.
func (b *Bootstrap) SetMetricsRegisterer(reg prometheus.Registerer) *Bootstrap {
	b.registerer = reg
	return b
}

// SetStopTimeout bounds the stop hooks run by Manager.Wait.
func (b *Bootstrap) SetStopTimeout(d time.Duration) *Bootstrap {
	b.stopAfter = d
	return b
}

// ID returns the id of the last Initialize run.
func (b *Bootstrap) ID() string { return b.id }

// Report returns the properties bound by the last Initialize, with secret
// values masked.
func (b *Bootstrap) Report() []configbind.PropertyReport {
	return append([]configbind.PropertyReport(nil), b.report...)
}

// Unused returns the properties no component consumed.
func (b *Bootstrap) Unused() []string {
	return append([]string(nil), b.unused...)
}

// Ledger returns the property ledger of the last Initialize. It is frozen
// once binding has finished.
func (b *Bootstrap) Ledger() *ledger.Ledger { return b.ledger }

// StrictConfig returns the strict flag Initialize resolved.
func (b *Bootstrap) StrictConfig() bool { return b.effStrict }

// resolveStrict applies: explicit setting, then the switch, then true.
func (b *Bootstrap) resolveStrict() bool {
	if b.strict != nil {
		return *b.strict
	}
	if b.switches != nil {
		if v, ok := b.switches(StrictConfigSwitch); ok {
			switch strings.TrimSpace(v) {
			case "true":
				return true
			case "false":
				return false
			}
		}
	}
	return true
}

// Initialize runs the pipeline and returns the lifecycle manager, started
// unless DoNotStart was called.
func (b *Bootstrap) Initialize(ctx context.Context) (mgr *lifecycle.Manager, err error) {
	if b.initialized {
		return nil, bserrors.New(bserrors.ErrInvalidState, "Bootstrap has already been initialized")
	}
	b.initialized = true
	if ctx == nil {
		ctx = context.Background()
	}

	b.id = uuid.NewString()
	b.effStrict = b.resolveStrict()
	ctx = logger.WithContext(ctx, logger.NewLogContext(b.id))
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanInitialize)
	span.SetAttributes(telemetry.BootstrapID(b.id), telemetry.Strict(b.effStrict))
	defer func() {
		if err != nil {
			span.SetAttributes(telemetry.ErrorKind(bserrors.KindOf(err).String()))
		}
		telemetry.EndSpan(span, err)
	}()

	begin := time.Now()
	logger.DebugCtx(ctx, "Bootstrap initializing", logger.Strict(b.effStrict))

	var (
		merged   *properties.Map
		props    *properties.Map
		reg      *registry.Registry
		bound    *configbind.Result
		built    *graph.Graph
		managed  *lifecycle.Manager
		pipeline = []struct {
			name string
			run  func(context.Context) error
		}{
			{PhaseMerge, func(ctx context.Context) (err error) {
				merged, err = b.merge(ctx)
				return err
			}},
			{PhaseSubstitute, func(ctx context.Context) (err error) {
				props, err = envsubst.Replace(merged, b.environment())
				return err
			}},
			{PhaseInstall, func(ctx context.Context) error {
				reg = registry.New()
				return reg.Install(b.modules...)
			}},
			{PhaseBind, func(ctx context.Context) (err error) {
				b.ledger = ledger.New(props)
				bound, err = configbind.BindAll(b.ledger, reg.ConfigRequests())
				if bound != nil {
					b.report = bound.Reports()
				}
				return err
			}},
			{PhaseStrict, func(ctx context.Context) error {
				return b.checkUnused(ctx)
			}},
			{PhaseGraph, func(ctx context.Context) (err error) {
				configs := make(map[registry.TypeID]any)
				for id, obj := range bound.Objects() {
					configs[registry.TypeID(id)] = obj
				}
				built, err = graph.Build(ctx, reg.Descriptors(), configs)
				return err
			}},
			{PhaseStart, func(ctx context.Context) error {
				var opts []lifecycle.Option
				if b.registerer != nil {
					opts = append(opts, lifecycle.WithMetrics(lifecycle.NewMetrics(b.registerer)))
				}
				if b.stopAfter > 0 {
					opts = append(opts, lifecycle.WithStopTimeout(b.stopAfter))
				}
				managed = lifecycle.New(built, opts...)
				if b.doNotStart {
					return nil
				}
				return managed.Start(ctx)
			}},
		}
	)

	for _, p := range pipeline {
		if err := b.runPhase(ctx, p.name, p.run); err != nil {
			logger.ErrorCtx(ctx, "Bootstrap failed", logger.Phase(p.name),
				logger.Kind(bserrors.KindOf(err).String()), logger.Err(err))
			return nil, err
		}
		if p.name == PhaseBind {
			b.logReport(ctx)
		}
	}

	logger.InfoCtx(ctx, "Bootstrap complete",
		logger.Count(built.Len()), logger.State(managed.State().String()), logger.Since(begin))
	return managed, nil
}

func (b *Bootstrap) runPhase(ctx context.Context, name string, run func(context.Context) error) error {
	ctx = logger.ContextWithPhase(ctx, name)
	ctx, span := telemetry.StartPhaseSpan(ctx, name)
	begin := time.Now()

	err := run(ctx)
	telemetry.EndSpan(span, err)
	if err != nil {
		logger.DebugCtx(ctx, "Phase failed", logger.Since(begin))
		return err
	}
	logger.DebugCtx(ctx, "Phase completed", logger.Since(begin))
	return nil
}

// merge layers optional < config file < required and validates every key.
func (b *Bootstrap) merge(ctx context.Context) (*properties.Map, error) {
	merged := b.optional
	if b.configFile != "" {
		file, err := properties.LoadFile(b.configFile)
		if err != nil {
			return nil, bserrors.Wrap(bserrors.ErrPropertySource, err, "Unable to load configuration file")
		}
		logger.DebugCtx(ctx, "Loaded configuration file",
			logger.Source(b.configFile), logger.Count(file.Len()))
		merged = properties.Merge(merged, file)
	}
	merged = properties.Merge(merged, b.required)

	if bad := properties.InvalidKeys(merged); len(bad) > 0 {
		c := bserrors.NewCollector(bserrors.ErrInvalidPropertyKey)
		for _, key := range bad {
			c.Addf(bserrors.ErrInvalidPropertyKey, "Configuration property key '%s' is invalid", key)
		}
		return nil, c.Err()
	}
	return merged, nil
}

func (b *Bootstrap) environment() envsubst.Environment {
	if b.env == nil {
		b.env = envsubst.FromOS()
	}
	return b.env
}

// checkUnused enforces or reports properties left unconsumed by binding.
// The ledger is frozen afterwards.
func (b *Bootstrap) checkUnused(ctx context.Context) error {
	defer b.ledger.Freeze()

	b.unused = b.ledger.UnconsumedKeys()
	if len(b.unused) == 0 {
		return nil
	}
	if b.effStrict {
		return bserrors.NewUnusedPropertyError(b.unused)
	}
	for _, key := range b.unused {
		logger.WarnCtx(ctx, bserrors.UnusedPropertyMessage(key), logger.Property(key))
	}
	return nil
}

func (b *Bootstrap) logReport(ctx context.Context) {
	if b.quiet || !logger.Enabled(logger.LevelInfo) {
		return
	}
	for _, p := range b.report {
		logger.InfoCtx(ctx, "Configuration property",
			logger.Property(p.Key), logger.Value(p.Runtime), logger.KeyDefault, p.Default)
	}
}
