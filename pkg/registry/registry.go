// Package registry holds the component descriptors that make up an
// application graph.
//
// Descriptors are registered explicitly, keyed by a TypeID. Nothing is ever
// discovered or instantiated implicitly: a type that was not registered
// cannot be constructed or injected.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/bootkit/pkg/configbind"
	bserrors "github.com/marmos91/bootkit/pkg/errors"
)

// TypeID identifies a component.
type TypeID string

// String implements fmt.Stringer.
func (id TypeID) String() string { return string(id) }

// Provider constructs a component instance.
type Provider func(ctx *Context) (any, error)

// Hook is a lifecycle callback invoked with the constructed instance.
type Hook func(ctx context.Context, instance any) error

// Descriptor declares one component.
type Descriptor struct {
	TypeID TypeID
	Deps   []TypeID

	// Config, when set, is bound from properties under ConfigPrefix before
	// construction. A descriptor without a Provider uses the bound config
	// object as its instance.
	Config       *configbind.Schema
	ConfigPrefix string

	Provider Provider
	Start    Hook
	Stop     Hook
}

// ConfigOnly reports whether the instance is the bound config object.
func (d Descriptor) ConfigOnly() bool {
	return d.Provider == nil && d.Config != nil
}

// DependsOn reports whether id is a declared dependency.
func (d Descriptor) DependsOn(id TypeID) bool {
	for _, dep := range d.Deps {
		if dep == id {
			return true
		}
	}
	return false
}

func (d Descriptor) clone() Descriptor {
	d.Deps = append([]TypeID(nil), d.Deps...)
	return d
}

// Registry is an ordered set of descriptors.
type Registry struct {
	mu          sync.RWMutex
	descriptors []Descriptor
	index       map[TypeID]int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{index: make(map[TypeID]int)}
}

// Register validates d and appends a copy of it.
func (r *Registry) Register(d Descriptor) error {
	if err := validate(d); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[d.TypeID]; exists {
		return bserrors.Newf(bserrors.ErrDuplicateBinding, "A binding to %s was already configured", d.TypeID)
	}
	r.index[d.TypeID] = len(r.descriptors)
	r.descriptors = append(r.descriptors, d.clone())
	return nil
}

func validate(d Descriptor) error {
	c := bserrors.NewCollector(bserrors.ErrInvalidDescriptor)
	if d.TypeID == "" {
		c.Add(bserrors.ErrInvalidDescriptor, "Descriptor has an empty type identity")
	}
	if d.Provider == nil && d.Config == nil {
		c.Addf(bserrors.ErrInvalidDescriptor, "%s has no provider", d.TypeID)
	}
	seen := make(map[TypeID]bool, len(d.Deps))
	for _, dep := range d.Deps {
		if dep == "" {
			c.Addf(bserrors.ErrInvalidDescriptor, "%s declares an empty dependency", d.TypeID)
			continue
		}
		if seen[dep] {
			c.Addf(bserrors.ErrInvalidDescriptor, "%s declares dependency %s more than once", d.TypeID, dep)
		}
		seen[dep] = true
	}
	return c.Err()
}

// Install runs modules against a Binder and registers everything they bind,
// in order. All problems are reported in one aggregated error.
func (r *Registry) Install(modules ...Module) error {
	b := newBinder()
	b.Install(modules...)

	c := bserrors.NewCollector(0)
	for _, err := range b.errs {
		c.AddError(bserrors.ErrInvalidDescriptor, err)
	}
	for _, binding := range b.bindings {
		c.AddError(bserrors.ErrInvalidDescriptor, r.Register(binding.d))
	}
	return c.Err()
}

// Descriptors returns copies of the descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.descriptors))
	for i, d := range r.descriptors {
		out[i] = d.clone()
	}
	return out
}

// Lookup returns the descriptor registered for id.
func (r *Registry) Lookup(id TypeID) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i].clone(), true
}

// Has reports whether id is registered.
func (r *Registry) Has(id TypeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// Len returns the number of descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// ConfigRequests lists the config bindings of every descriptor, in
// registration order.
func (r *Registry) ConfigRequests() []configbind.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reqs []configbind.Request
	for _, d := range r.descriptors {
		if d.Config == nil {
			continue
		}
		reqs = append(reqs, configbind.Request{
			ID:     string(d.TypeID),
			Schema: d.Config,
			Prefix: d.ConfigPrefix,
		})
	}
	return reqs
}

// String lists the registered ids.
func (r *Registry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]TypeID, len(r.descriptors))
	for i, d := range r.descriptors {
		ids[i] = d.TypeID
	}
	return fmt.Sprint(ids)
}
