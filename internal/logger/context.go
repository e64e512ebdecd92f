package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext carries the fields of one bootstrap run.
type LogContext struct {
	BootstrapID string // uuid of the Initialize run
	Phase       string // current bootstrap phase
	Component   string // component type id, when one is involved
	TraceID     string
	SpanID      string
	StartTime   time.Time
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext starts a LogContext for a bootstrap run.
func NewLogContext(bootstrapID string) *LogContext {
	return &LogContext{
		BootstrapID: bootstrapID,
		StartTime:   time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithPhase returns a copy with the phase set
func (lc *LogContext) WithPhase(phase string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Phase = phase
	}
	return clone
}

// WithComponent returns a copy with the component set
func (lc *LogContext) WithComponent(component string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Component = component
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}

// ContextWithPhase derives a context whose LogContext has phase set. A
// context without a LogContext gets a fresh one.
func ContextWithPhase(ctx context.Context, phase string) context.Context {
	lc := FromContext(ctx)
	if lc == nil {
		lc = &LogContext{}
	}
	return WithContext(ctx, lc.WithPhase(phase))
}

// ContextWithComponent derives a context whose LogContext has component set.
func ContextWithComponent(ctx context.Context, component string) context.Context {
	lc := FromContext(ctx)
	if lc == nil {
		lc = &LogContext{}
	}
	return WithContext(ctx, lc.WithComponent(component))
}
