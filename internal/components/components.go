// Package components provides the demo components the bootkit CLI wires:
// node identity, telemetry, a Prometheus registry and an HTTP server that
// exposes both.
//
// Construction order follows the declared dependencies:
//
//	telemetry
//	node
//	metrics      -> node
//	http-server  -> node, metrics
package components

import (
	"context"

	"github.com/marmos91/bootkit/internal/telemetry"
	"github.com/marmos91/bootkit/pkg/configbind"
	"github.com/marmos91/bootkit/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
)

// Component identities.
const (
	TelemetryID  registry.TypeID = "telemetry"
	NodeID       registry.TypeID = "node"
	MetricsID    registry.TypeID = "metrics"
	HTTPServerID registry.TypeID = "http-server"
)

// Config prefixes.
const (
	TelemetryPrefix  = "telemetry"
	NodePrefix       = "node"
	MetricsPrefix    = "metrics"
	HTTPServerPrefix = "http-server"
)

// Options configures Modules.
type Options struct {
	// Registry receives the component metrics. Nil creates one per
	// metrics component.
	Registry *prometheus.Registry
}

// Schemas returns the config schema of every component, keyed by prefix.
func Schemas() map[string]*configbind.Schema {
	return map[string]*configbind.Schema{
		TelemetryPrefix:  telemetrySchema,
		NodePrefix:       nodeSchema,
		MetricsPrefix:    metricsSchema,
		HTTPServerPrefix: httpSchema,
	}
}

// Modules returns the modules binding every component.
func Modules(opts Options) []registry.Module {
	return []registry.Module{
		TelemetryModule,
		NodeModule,
		MetricsModule(opts.Registry),
		HTTPServerModule,
	}
}

// TelemetryModule binds the tracing component.
func TelemetryModule(b *registry.Binder) {
	b.Bind(TelemetryID).
		WithConfig(telemetrySchema, TelemetryPrefix).
		ToProvider(func(ctx *registry.Context) (any, error) {
			cfg, err := registry.Config[telemetry.Config](ctx)
			if err != nil {
				return nil, err
			}
			return NewTracing(cfg), nil
		}).
		OnStart(func(ctx context.Context, v any) error { return v.(*Tracing).Start(ctx) }).
		OnStop(func(ctx context.Context, v any) error { return v.(*Tracing).Stop(ctx) })
}

// NodeModule binds the node component.
func NodeModule(b *registry.Binder) {
	b.Bind(NodeID).
		WithConfig(nodeSchema, NodePrefix).
		ToProvider(func(ctx *registry.Context) (any, error) {
			cfg, err := registry.Config[NodeConfig](ctx)
			if err != nil {
				return nil, err
			}
			return NewNode(cfg), nil
		}).
		OnStart(func(ctx context.Context, v any) error { return v.(*Node).Start(ctx) })
}

// MetricsModule binds the metrics component, registering into reg.
func MetricsModule(reg *prometheus.Registry) registry.Module {
	return func(b *registry.Binder) {
		b.Bind(MetricsID).
			DependsOn(NodeID).
			WithConfig(metricsSchema, MetricsPrefix).
			ToProvider(func(ctx *registry.Context) (any, error) {
				cfg, err := registry.Config[MetricsConfig](ctx)
				if err != nil {
					return nil, err
				}
				node, err := registry.Dependency[*Node](ctx, NodeID)
				if err != nil {
					return nil, err
				}
				return NewMetrics(cfg, reg, node), nil
			})
	}
}

// HTTPServerModule binds the HTTP server.
func HTTPServerModule(b *registry.Binder) {
	b.Bind(HTTPServerID).
		DependsOn(NodeID, MetricsID).
		WithConfig(httpSchema, HTTPServerPrefix).
		ToProvider(func(ctx *registry.Context) (any, error) {
			cfg, err := registry.Config[HTTPConfig](ctx)
			if err != nil {
				return nil, err
			}
			node, err := registry.Dependency[*Node](ctx, NodeID)
			if err != nil {
				return nil, err
			}
			m, err := registry.Dependency[*Metrics](ctx, MetricsID)
			if err != nil {
				return nil, err
			}
			return NewServer(cfg, node, m), nil
		}).
		OnStart(func(ctx context.Context, v any) error { return v.(*Server).Start(ctx) }).
		OnStop(func(ctx context.Context, v any) error { return v.(*Server).Stop(ctx) })
}
