package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use them consistently so logs can be queried across
// phases and components.
const (
	// ========================================================================
	// Correlation
	// ========================================================================
	KeyBootstrapID = "bootstrap_id" // uuid of one Initialize run
	KeyTraceID     = "trace_id"
	KeySpanID      = "span_id"

	// ========================================================================
	// Bootstrap pipeline
	// ========================================================================
	KeyPhase     = "phase"     // merge, substitute, install, bind, strict, graph, start
	KeyComponent = "component" // component type id
	KeyHook      = "hook"      // start or stop
	KeyOrdinal   = "ordinal"   // construction ordinal
	KeyState     = "state"     // lifecycle state
	KeyStrict    = "strict_config"

	// ========================================================================
	// Properties
	// ========================================================================
	KeyProperty = "property" // fully qualified property key
	KeyPrefix   = "prefix"   // config bind prefix
	KeyValue    = "value"    // runtime value, masked for secrets
	KeyDefault  = "default"
	KeySource   = "source" // file, env file, programmatic
	KeyCount    = "count"

	// ========================================================================
	// Errors & timing
	// ========================================================================
	KeyKind       = "kind" // bootstrap error kind
	KeyError      = "error"
	KeyDurationMs = "duration_ms"

	// ========================================================================
	// Network
	// ========================================================================
	KeyAddress = "address"
	KeyMethod  = "method"
	KeyPath    = "path"
	KeyStatus  = "status"
)

// BootstrapID returns an attribute for the run id.
func BootstrapID(id string) slog.Attr {
	return slog.String(KeyBootstrapID, id)
}

// TraceID returns an attribute for a trace id.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// Phase returns an attribute for a bootstrap phase.
func Phase(name string) slog.Attr {
	return slog.String(KeyPhase, name)
}

// Component returns an attribute for a component type id.
func Component(id string) slog.Attr {
	return slog.String(KeyComponent, id)
}

// Hook returns an attribute for a lifecycle hook phase.
func Hook(phase string) slog.Attr {
	return slog.String(KeyHook, phase)
}

// Ordinal returns an attribute for a construction ordinal.
func Ordinal(n int) slog.Attr {
	return slog.Int(KeyOrdinal, n)
}

// State returns an attribute for a lifecycle state.
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// Strict returns an attribute for the strict-config flag.
func Strict(strict bool) slog.Attr {
	return slog.Bool(KeyStrict, strict)
}

// Property returns an attribute for a property key.
func Property(key string) slog.Attr {
	return slog.String(KeyProperty, key)
}

// Prefix returns an attribute for a config prefix.
func Prefix(p string) slog.Attr {
	return slog.String(KeyPrefix, p)
}

// Value returns an attribute for a property value. Callers mask secrets.
func Value(v string) slog.Attr {
	return slog.String(KeyValue, v)
}

// Source returns an attribute for a property source.
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Count returns an attribute for a count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Kind returns an attribute for an error kind.
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// Err returns an attribute for an error. A nil error yields an empty
// attribute, which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns an attribute for an elapsed time in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Since returns the duration attribute for the time elapsed since start.
func Since(start time.Time) slog.Attr {
	return DurationMs(Duration(start))
}

// Address returns an attribute for a listen address.
func Address(addr string) slog.Attr {
	return slog.String(KeyAddress, addr)
}

// Method returns an attribute for an HTTP method.
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path returns an attribute for a request path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Status returns an attribute for a response status.
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}
