package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on bootkit spans.
const (
	AttrBootstrapID = "bootkit.bootstrap_id"
	AttrPhase       = "bootkit.phase"
	AttrComponent   = "bootkit.component"
	AttrHook        = "bootkit.hook" // start or stop
	AttrOrdinal     = "bootkit.ordinal"
	AttrErrorKind   = "bootkit.error_kind"
	AttrStrict      = "bootkit.strict_config"
	AttrProperties  = "bootkit.properties"
)

// Span names.
const (
	SpanInitialize = "bootstrap.initialize"
	SpanPhase      = "bootstrap.phase"
	SpanStart      = "lifecycle.start"
	SpanStop       = "lifecycle.stop"
	SpanHook       = "lifecycle.hook"
)

// BootstrapID returns the attribute for an initialize run id.
func BootstrapID(id string) attribute.KeyValue {
	return attribute.String(AttrBootstrapID, id)
}

// Phase returns the attribute for a bootstrap phase name.
func Phase(name string) attribute.KeyValue {
	return attribute.String(AttrPhase, name)
}

// Component returns the attribute for a component type id.
func Component(id string) attribute.KeyValue {
	return attribute.String(AttrComponent, id)
}

// Hook returns the attribute for a lifecycle hook phase.
func Hook(phase string) attribute.KeyValue {
	return attribute.String(AttrHook, phase)
}

// Ordinal returns the attribute for a construction ordinal.
func Ordinal(n int) attribute.KeyValue {
	return attribute.Int(AttrOrdinal, n)
}

// ErrorKind returns the attribute for a bootstrap error kind.
func ErrorKind(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}

// Strict returns the attribute for the effective strict-config flag.
func Strict(strict bool) attribute.KeyValue {
	return attribute.Bool(AttrStrict, strict)
}

// Properties returns the attribute for a property count.
func Properties(n int) attribute.KeyValue {
	return attribute.Int(AttrProperties, n)
}

// StartPhaseSpan starts the span of one bootstrap phase.
func StartPhaseSpan(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Phase(phase)}, attrs...)
	return StartSpan(ctx, SpanPhase+"."+phase, trace.WithAttributes(all...))
}

// StartHookSpan starts the span of one lifecycle hook invocation.
func StartHookSpan(ctx context.Context, hook, component string, ordinal int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanHook+"."+hook, trace.WithAttributes(
		Hook(hook),
		Component(component),
		Ordinal(ordinal),
	))
}
