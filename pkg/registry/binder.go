package registry

import (
	"context"
	"fmt"

	"github.com/marmos91/bootkit/pkg/configbind"
	bserrors "github.com/marmos91/bootkit/pkg/errors"
)

// Module contributes bindings to a Binder.
type Module func(b *Binder)

// Binder collects bindings declared by modules. Problems are recorded rather
// than returned so that every module runs and all errors surface together.
type Binder struct {
	bindings []*Binding
	errs     []error
}

func newBinder() *Binder {
	return &Binder{}
}

// Install runs nested modules against b.
func (b *Binder) Install(modules ...Module) {
	for _, m := range modules {
		if m == nil {
			continue
		}
		m(b)
	}
}

// Bind starts a binding for id.
//
//	b.Bind("http-server").
//	    DependsOn("node").
//	    WithConfig(serverSchema, "http-server").
//	    ToProvider(newServer).
//	    OnStart(startServer).
//	    OnStop(stopServer)
func (b *Binder) Bind(id TypeID) *Binding {
	binding := &Binding{d: Descriptor{TypeID: id}}
	b.bindings = append(b.bindings, binding)
	return binding
}

// BindConfig registers a config-only component whose instance is the config
// object bound from prefix. Its TypeID is the schema name.
func (b *Binder) BindConfig(schema *configbind.Schema, prefix string) *Binding {
	if schema == nil {
		b.AddError(bserrors.Newf(bserrors.ErrInvalidDescriptor, "Config binding for prefix '%s' has no schema", prefix))
		return &Binding{}
	}
	return b.Bind(TypeID(schema.Name())).WithConfig(schema, prefix)
}

// Register adds a fully built descriptor.
func (b *Binder) Register(d Descriptor) {
	b.bindings = append(b.bindings, &Binding{d: d.clone()})
}

// AddError records a module-level error.
func (b *Binder) AddError(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// Errorf records a formatted InvalidDescriptor error.
func (b *Binder) Errorf(format string, args ...any) {
	b.AddError(bserrors.New(bserrors.ErrInvalidDescriptor, fmt.Sprintf(format, args...)))
}

// Binding is a descriptor under construction.
type Binding struct {
	d Descriptor
}

// DependsOn appends declared dependencies.
func (bd *Binding) DependsOn(ids ...TypeID) *Binding {
	bd.d.Deps = append(bd.d.Deps, ids...)
	return bd
}

// WithConfig binds schema from properties under prefix.
func (bd *Binding) WithConfig(schema *configbind.Schema, prefix string) *Binding {
	bd.d.Config = schema
	bd.d.ConfigPrefix = prefix
	return bd
}

// ToProvider sets the constructor.
func (bd *Binding) ToProvider(p Provider) *Binding {
	bd.d.Provider = p
	return bd
}

// ToInstance binds a pre-built value.
func (bd *Binding) ToInstance(v any) *Binding {
	bd.d.Provider = func(*Context) (any, error) { return v, nil }
	return bd
}

// OnStart sets the start hook.
func (bd *Binding) OnStart(h Hook) *Binding {
	bd.d.Start = h
	return bd
}

// OnStop sets the stop hook.
func (bd *Binding) OnStop(h Hook) *Binding {
	bd.d.Stop = h
	return bd
}

// HookFunc adapts a callback that does not need the instance.
func HookFunc(fn func(ctx context.Context) error) Hook {
	return func(ctx context.Context, _ any) error { return fn(ctx) }
}

// Descriptor returns a copy of the descriptor built so far.
func (bd *Binding) Descriptor() Descriptor {
	return bd.d.clone()
}
