// Package errors provides the error kinds produced while bootstrapping an
// application graph. This is a leaf package with no internal dependencies so
// that every pipeline stage (substitution, registry, config binding, graph
// construction, lifecycle) can report failures in the same shape.
//
// Import graph: errors <- properties/envsubst/ledger <- configbind/registry
// <- graph <- lifecycle <- bootstrap
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a bootstrap failure.
type ErrorKind int

const (
	// ErrSubstitution indicates a property referenced an unset environment variable.
	ErrSubstitution ErrorKind = iota + 1

	// ErrInvalidPropertyKey indicates a property key does not match the key grammar.
	ErrInvalidPropertyKey

	// ErrConfigCoercion indicates a property value could not be converted to
	// the type of the configuration field it binds to.
	ErrConfigCoercion

	// ErrMissingRequired indicates a required configuration property was absent.
	ErrMissingRequired

	// ErrConfigValidation indicates a bound configuration object violated a
	// declared constraint.
	ErrConfigValidation

	// ErrUnusedConfiguration indicates properties were supplied that no
	// component consumed while strict config was enabled.
	ErrUnusedConfiguration

	// ErrDuplicateBinding indicates two descriptors share a type identity.
	ErrDuplicateBinding

	// ErrInvalidDescriptor indicates a descriptor is malformed.
	ErrInvalidDescriptor

	// ErrUnknownDependency indicates a declared dependency has no descriptor.
	ErrUnknownDependency

	// ErrCircularDependency indicates the declared dependencies form a cycle.
	ErrCircularDependency

	// ErrExplicitBindingsRequired indicates a type was requested that has no
	// explicit binding.
	ErrExplicitBindingsRequired

	// ErrConstructionFailed indicates a provider returned an error.
	ErrConstructionFailed

	// ErrLifecycleHook indicates one or more start/stop hooks failed.
	ErrLifecycleHook

	// ErrInvalidState indicates an operation was called in the wrong state.
	ErrInvalidState

	// ErrPropertySource indicates a property file could not be read.
	ErrPropertySource
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrSubstitution:
		return "SubstitutionError"
	case ErrInvalidPropertyKey:
		return "InvalidPropertyKey"
	case ErrConfigCoercion:
		return "ConfigCoercion"
	case ErrMissingRequired:
		return "MissingRequired"
	case ErrConfigValidation:
		return "ConfigValidation"
	case ErrUnusedConfiguration:
		return "UnusedConfiguration"
	case ErrDuplicateBinding:
		return "DuplicateBinding"
	case ErrInvalidDescriptor:
		return "InvalidDescriptor"
	case ErrUnknownDependency:
		return "UnknownDependency"
	case ErrCircularDependency:
		return "CircularDependency"
	case ErrExplicitBindingsRequired:
		return "ExplicitBindingsRequired"
	case ErrConstructionFailed:
		return "ConstructionFailed"
	case ErrLifecycleHook:
		return "LifecycleHookError"
	case ErrInvalidState:
		return "InvalidState"
	case ErrPropertySource:
		return "PropertySource"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// IsConfiguration reports whether the kind belongs to the configuration
// phases (substitution, binding, strict check).
func (k ErrorKind) IsConfiguration() bool {
	switch k {
	case ErrSubstitution, ErrInvalidPropertyKey, ErrConfigCoercion,
		ErrMissingRequired, ErrConfigValidation, ErrUnusedConfiguration,
		ErrPropertySource:
		return true
	}
	return false
}

// IsWiring reports whether the kind belongs to registry or graph construction.
func (k ErrorKind) IsWiring() bool {
	switch k {
	case ErrDuplicateBinding, ErrInvalidDescriptor, ErrUnknownDependency,
		ErrCircularDependency, ErrExplicitBindingsRequired, ErrConstructionFailed:
		return true
	}
	return false
}

// InitError is an aggregated failure of one bootstrap phase. Every problem
// found in the phase is kept as a separate message so the caller sees all of
// them at once.
type InitError struct {
	Kind     ErrorKind
	Messages []string

	// Causes holds underlying errors (provider or hook failures), if any.
	Causes []error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	if len(e.Messages) == 1 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Messages[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d errors", e.Kind, len(e.Messages))
	for i, msg := range e.Messages {
		fmt.Fprintf(&b, "\n  %d) %s", i+1, msg)
	}
	return b.String()
}

// Unwrap exposes the underlying causes to errors.Is and errors.As.
func (e *InitError) Unwrap() []error {
	return e.Causes
}

// ============================================================================
// Factory Functions
// ============================================================================

// New creates an InitError with the given messages.
func New(kind ErrorKind, messages ...string) *InitError {
	return &InitError{
		Kind:     kind,
		Messages: append([]string(nil), messages...),
	}
}

// Newf creates an InitError with a single formatted message.
func Newf(kind ErrorKind, format string, args ...any) *InitError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an InitError with a single message and an underlying cause.
func Wrap(kind ErrorKind, cause error, format string, args ...any) *InitError {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	e := New(kind, msg)
	if cause != nil {
		e.Causes = []error{cause}
	}
	return e
}

// NewUnusedPropertyError creates the UnusedConfiguration error for the given keys.
func NewUnusedPropertyError(keys []string) *InitError {
	e := &InitError{Kind: ErrUnusedConfiguration}
	for _, key := range keys {
		e.Messages = append(e.Messages, UnusedPropertyMessage(key))
	}
	return e
}

// UnusedPropertyMessage formats the message reported for an unconsumed property.
func UnusedPropertyMessage(key string) string {
	return fmt.Sprintf("Configuration property '%s' was not used", key)
}

// ============================================================================
// Collector
// ============================================================================

// Collector accumulates messages for one phase and produces a single
// InitError. The first kind added decides the kind of the aggregate unless
// a kind is fixed at construction.
type Collector struct {
	kind     ErrorKind
	messages []string
	causes   []error
}

// NewCollector creates a collector for the given kind. Pass 0 to let the
// first added message decide.
func NewCollector(kind ErrorKind) *Collector {
	return &Collector{kind: kind}
}

// Add records a message of the given kind.
func (c *Collector) Add(kind ErrorKind, msg string) {
	if c.kind == 0 {
		c.kind = kind
	}
	c.messages = append(c.messages, msg)
}

// Addf records a formatted message of the given kind.
func (c *Collector) Addf(kind ErrorKind, format string, args ...any) {
	c.Add(kind, fmt.Sprintf(format, args...))
}

// AddWithCause records msg and keeps cause for errors.Is and errors.As.
func (c *Collector) AddWithCause(kind ErrorKind, msg string, cause error) {
	c.Add(kind, msg)
	if cause != nil {
		c.causes = append(c.causes, cause)
	}
}

// AddError records err. InitErrors are flattened; other errors become a
// single message and are kept as causes.
func (c *Collector) AddError(kind ErrorKind, err error) {
	if err == nil {
		return
	}
	var ie *InitError
	if goerrors.As(err, &ie) {
		for _, msg := range ie.Messages {
			c.Add(ie.Kind, msg)
		}
		c.causes = append(c.causes, ie.Causes...)
		return
	}
	c.Add(kind, err.Error())
	c.causes = append(c.causes, err)
}

// Len returns the number of recorded messages.
func (c *Collector) Len() int {
	return len(c.messages)
}

// Err returns the aggregate, or nil when nothing was recorded.
func (c *Collector) Err() error {
	if len(c.messages) == 0 {
		return nil
	}
	return &InitError{
		Kind:     c.kind,
		Messages: append([]string(nil), c.messages...),
		Causes:   append([]error(nil), c.causes...),
	}
}

// ============================================================================
// Error Type Checking Helpers
// ============================================================================

// KindOf returns the kind of err, or 0 if err is not an InitError.
func KindOf(err error) ErrorKind {
	var ie *InitError
	if goerrors.As(err, &ie) {
		return ie.Kind
	}
	return 0
}

// MessagesOf returns the messages of err, or err.Error() for foreign errors.
func MessagesOf(err error) []string {
	if err == nil {
		return nil
	}
	var ie *InitError
	if goerrors.As(err, &ie) {
		return ie.Messages
	}
	return []string{err.Error()}
}

// IsKind returns true if err is an InitError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsExplicitBindingsRequired returns true if err reports a missing explicit
// binding: either a runtime request for an undeclared dependency
// (ExplicitBindingsRequired) or a declared dependency that has no
// descriptor (UnknownDependency).
func IsExplicitBindingsRequired(err error) bool {
	return IsKind(err, ErrExplicitBindingsRequired) || IsKind(err, ErrUnknownDependency)
}

// IsCircularDependency returns true if err reports a dependency cycle.
func IsCircularDependency(err error) bool {
	return IsKind(err, ErrCircularDependency)
}

// IsUnusedConfiguration returns true if err reports unconsumed properties.
func IsUnusedConfiguration(err error) bool {
	return IsKind(err, ErrUnusedConfiguration)
}

// ============================================================================
// Exit Codes
// ============================================================================

// Exit codes used by command line front ends.
const (
	ExitOK             = 0
	ExitConfiguration  = 1
	ExitWiring         = 2
	ExitLifecycleStart = 3
)

// ExitCode maps err to a process exit code. Unknown errors are treated as
// configuration errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	kind := KindOf(err)
	switch {
	case kind.IsWiring():
		return ExitWiring
	case kind == ErrLifecycleHook:
		return ExitLifecycleStart
	default:
		return ExitConfiguration
	}
}
