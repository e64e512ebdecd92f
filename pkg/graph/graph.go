// Package graph materializes component instances from registered
// descriptors.
//
// Build validates the declared dependencies, rejects cycles and constructs
// every component in a topological order. Ties between components that are
// ready at the same time are broken by registration order, so the same
// registry always yields the same construction order.
package graph

import (
	"context"
	"fmt"

	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/registry"
)

// Instance is a constructed component.
type Instance struct {
	TypeID  registry.TypeID
	Object  any
	Ordinal int
	Deps    []registry.TypeID
	Start   registry.Hook
	Stop    registry.Hook
}

// Graph holds instances in construction order.
type Graph struct {
	instances []*Instance
	index     map[registry.TypeID]*Instance
}

// Build constructs every descriptor. configs holds the bound config object
// of each descriptor that declares one.
func Build(ctx context.Context, descriptors []registry.Descriptor, configs map[registry.TypeID]any) (*Graph, error) {
	index := make(map[registry.TypeID]int, len(descriptors))
	for i, d := range descriptors {
		if _, dup := index[d.TypeID]; dup {
			return nil, bserrors.Newf(bserrors.ErrDuplicateBinding, "A binding to %s was already configured", d.TypeID)
		}
		index[d.TypeID] = i
	}

	if err := checkDeclared(descriptors, index); err != nil {
		return nil, err
	}

	n := newNodes(descriptors, index)
	if err := n.cycles(); err != nil {
		return nil, err
	}
	order, err := n.topoOrder()
	if err != nil {
		return nil, bserrors.Wrap(bserrors.ErrCircularDependency, err, "Unable to order components")
	}

	g := &Graph{index: make(map[registry.TypeID]*Instance, len(descriptors))}
	for _, i := range order {
		inst, err := g.construct(ctx, descriptors[i], configs[descriptors[i].TypeID], index)
		if err != nil {
			return nil, err
		}
		inst.Ordinal = len(g.instances)
		g.instances = append(g.instances, inst)
		g.index[inst.TypeID] = inst
	}
	return g, nil
}

func checkDeclared(descriptors []registry.Descriptor, index map[registry.TypeID]int) error {
	c := bserrors.NewCollector(bserrors.ErrUnknownDependency)
	for _, d := range descriptors {
		for _, dep := range d.Deps {
			if _, ok := index[dep]; !ok {
				c.Addf(bserrors.ErrUnknownDependency,
					"Explicit bindings are required and %s is not explicitly bound: %s depends on %s, which has no descriptor",
					dep, d.TypeID, dep)
			}
		}
	}
	return c.Err()
}

func (g *Graph) construct(ctx context.Context, d registry.Descriptor, config any, index map[registry.TypeID]int) (inst *Instance, err error) {
	inst = &Instance{
		TypeID: d.TypeID,
		Deps:   append([]registry.TypeID(nil), d.Deps...),
		Start:  d.Start,
		Stop:   d.Stop,
	}

	if d.Provider == nil {
		if config == nil {
			return nil, bserrors.Newf(bserrors.ErrConstructionFailed, "Error constructing %s: no bound configuration", d.TypeID)
		}
		inst.Object = config
		return inst, nil
	}

	// A provider asking for something it may not have fails the build even
	// when the provider swallows the error.
	var bindErr error
	resolve := func(id registry.TypeID) (any, error) {
		if _, ok := index[id]; !ok {
			return nil, keepFirst(&bindErr, bserrors.Newf(bserrors.ErrExplicitBindingsRequired,
				"Explicit bindings are required and %s is not explicitly bound", id))
		}
		if !d.DependsOn(id) {
			return nil, keepFirst(&bindErr, bserrors.Newf(bserrors.ErrExplicitBindingsRequired,
				"Explicit bindings are required and %s is not a declared dependency of %s", id, d.TypeID))
		}
		return g.index[id].Object, nil
	}

	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = bserrors.Newf(bserrors.ErrConstructionFailed, "Error constructing %s: panic: %v", d.TypeID, r)
		}
	}()

	obj, perr := d.Provider(registry.NewContext(ctx, d.TypeID, config, resolve))
	if bindErr != nil {
		return nil, bindErr
	}
	if perr != nil {
		return nil, bserrors.Wrap(bserrors.ErrConstructionFailed, perr, "Error constructing %s", d.TypeID)
	}
	inst.Object = obj
	return inst, nil
}

func keepFirst(slot *error, err error) error {
	if *slot == nil {
		*slot = err
	}
	return err
}

// Len returns the number of instances.
func (g *Graph) Len() int {
	return len(g.instances)
}

// Instances returns the instances in construction order.
func (g *Graph) Instances() []Instance {
	out := make([]Instance, len(g.instances))
	for i, inst := range g.instances {
		out[i] = *inst
	}
	return out
}

// Order returns the type ids in construction order.
func (g *Graph) Order() []registry.TypeID {
	out := make([]registry.TypeID, len(g.instances))
	for i, inst := range g.instances {
		out[i] = inst.TypeID
	}
	return out
}

// Lookup returns the instance record for id.
func (g *Graph) Lookup(id registry.TypeID) (Instance, bool) {
	inst, ok := g.index[id]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// Instance returns the object bound to id. Asking for an id that was never
// bound is an ExplicitBindingsRequired error; nothing is created on demand.
func (g *Graph) Instance(id registry.TypeID) (any, error) {
	inst, ok := g.index[id]
	if !ok {
		return nil, bserrors.Newf(bserrors.ErrExplicitBindingsRequired,
			"Explicit bindings are required and %s is not explicitly bound", id)
	}
	return inst.Object, nil
}

// MustInstance is Instance that panics on error.
func (g *Graph) MustInstance(id registry.TypeID) any {
	v, err := g.Instance(id)
	if err != nil {
		panic(err)
	}
	return v
}

// Get returns the object bound to id as a T.
func Get[T any](g *Graph, id registry.TypeID) (T, error) {
	var zero T
	v, err := g.Instance(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("instance %s is %T, not %T", id, v, zero)
	}
	return t, nil
}
