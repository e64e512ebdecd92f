// Package lifecycle runs the start and stop hooks of a constructed graph.
//
// A Manager moves through Built -> Started -> Stopped. Start runs start
// hooks in construction order; Stop runs stop hooks in reverse construction
// order. Stopped is terminal.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/bootkit/internal/logger"
	"github.com/marmos91/bootkit/internal/telemetry"
	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/graph"
	"github.com/marmos91/bootkit/pkg/registry"
)

// State is the lifecycle state of a Manager.
type State int

const (
	StateBuilt State = iota
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Hook phases, used in messages, metrics and spans.
const (
	PhaseStart = "start"
	PhaseStop  = "stop"
)

// DefaultStopTimeout bounds the stop hooks run by Wait.
const DefaultStopTimeout = 30 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics attaches hook metrics. Nil disables them.
func WithMetrics(m *Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithStopTimeout sets how long Wait lets the stop hooks run.
func WithStopTimeout(d time.Duration) Option {
	return func(mgr *Manager) {
		if d > 0 {
			mgr.stopTimeout = d
		}
	}
}

// Manager owns a graph and drives its hooks. Start and Stop are serialized;
// hooks must not call Start or Stop on their own manager.
type Manager struct {
	op sync.Mutex // serializes Start and Stop

	mu    sync.RWMutex
	state State

	graph       *graph.Graph
	started     []graph.Instance
	metrics     *Metrics
	stopTimeout time.Duration
	done        chan struct{}
}

// New creates a Manager in state Built.
func New(g *graph.Graph, opts ...Option) *Manager {
	m := &Manager{
		graph:       g,
		stopTimeout: DefaultStopTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.metrics.SetState(StateBuilt)
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Graph returns the owned graph.
func (m *Manager) Graph() *graph.Graph { return m.graph }

// Instance returns the instance bound to id.
func (m *Manager) Instance(id registry.TypeID) (any, error) {
	return m.graph.Instance(id)
}

// Done is closed once the manager reaches Stopped.
func (m *Manager) Done() <-chan struct{} { return m.done }

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.metrics.SetState(s)
	if s == StateStopped {
		close(m.done)
	}
}

// Start runs every start hook in construction order. If a hook fails, the
// instances already started are stopped in reverse order, the manager ends
// in Stopped and the returned LifecycleHookError carries the start failure
// followed by any stop failures.
func (m *Manager) Start(ctx context.Context) (err error) {
	m.op.Lock()
	defer m.op.Unlock()

	if s := m.State(); s != StateBuilt {
		return bserrors.Newf(bserrors.ErrInvalidState, "Cannot start lifecycle in state %s", s)
	}

	ctx = logger.ContextWithPhase(ctx, PhaseStart)
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanStart)
	defer func() { telemetry.EndSpan(span, err) }()

	begin := time.Now()
	for _, inst := range m.graph.Instances() {
		if herr := m.runHook(ctx, PhaseStart, inst); herr != nil {
			c := bserrors.NewCollector(bserrors.ErrLifecycleHook)
			c.AddWithCause(bserrors.ErrLifecycleHook, fmt.Sprintf("Error starting %s: %v", inst.TypeID, herr), herr)
			logger.ErrorCtx(ctx, "Component failed to start, stopping started components",
				logger.Component(string(inst.TypeID)), logger.Err(herr))
			m.stopStarted(ctx, c)
			m.setState(StateStopped)
			return c.Err()
		}
		m.started = append(m.started, inst)
	}

	m.setState(StateStarted)
	logger.InfoCtx(ctx, "Lifecycle started", logger.Count(len(m.started)), logger.Since(begin))
	return nil
}

// Stop runs the stop hooks of started instances in reverse construction
// order and collects every failure. Stopping a manager that never started
// runs no hooks; stopping a stopped manager does nothing.
func (m *Manager) Stop(ctx context.Context) (err error) {
	m.op.Lock()
	defer m.op.Unlock()

	switch m.State() {
	case StateStopped:
		return nil
	case StateBuilt:
		m.setState(StateStopped)
		return nil
	}

	ctx = logger.ContextWithPhase(ctx, PhaseStop)
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanStop)
	defer func() { telemetry.EndSpan(span, err) }()

	begin := time.Now()
	c := bserrors.NewCollector(bserrors.ErrLifecycleHook)
	m.stopStarted(ctx, c)
	m.setState(StateStopped)
	logger.InfoCtx(ctx, "Lifecycle stopped", logger.Since(begin), logger.Count(c.Len()))
	return c.Err()
}

// stopStarted runs stop hooks of started instances in reverse order.
func (m *Manager) stopStarted(ctx context.Context, c *bserrors.Collector) {
	for i := len(m.started) - 1; i >= 0; i-- {
		inst := m.started[i]
		if herr := m.runHook(ctx, PhaseStop, inst); herr != nil {
			c.AddWithCause(bserrors.ErrLifecycleHook, fmt.Sprintf("Error stopping %s: %v", inst.TypeID, herr), herr)
			logger.WarnCtx(ctx, "Component failed to stop",
				logger.Component(string(inst.TypeID)), logger.Err(herr))
		}
	}
	m.started = nil
}

// runHook invokes the phase hook of inst, if any. Panics become errors.
func (m *Manager) runHook(ctx context.Context, phase string, inst graph.Instance) (err error) {
	hook := inst.Start
	if phase == PhaseStop {
		hook = inst.Stop
	}
	if hook == nil {
		return nil
	}

	id := string(inst.TypeID)
	ctx = logger.ContextWithComponent(ctx, id)
	ctx, span := telemetry.StartHookSpan(ctx, phase, id, inst.Ordinal)
	begin := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		m.metrics.ObserveHook(phase, id, time.Since(begin), err)
		telemetry.EndSpan(span, err)
		if err == nil {
			logger.DebugCtx(ctx, "Hook completed", logger.Hook(phase), logger.Since(begin))
		}
	}()

	return hook(ctx, inst.Object)
}

// Wait blocks until ctx is done or the manager stops. When ctx ends first,
// Wait stops the manager, giving the stop hooks the configured timeout.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.stopTimeout)
	defer cancel()
	logger.InfoCtx(ctx, "Shutdown requested", logger.State(m.State().String()))
	return m.Stop(stopCtx)
}
