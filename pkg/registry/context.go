package registry

import (
	"context"
	"fmt"
)

// ResolveFunc returns the instance of a dependency for the component being
// constructed.
type ResolveFunc func(id TypeID) (any, error)

// Context is handed to a Provider. It exposes the bound config object and
// the already constructed declared dependencies.
type Context struct {
	ctx     context.Context
	typeID  TypeID
	config  any
	resolve ResolveFunc
}

// NewContext creates a provider context. The graph builder supplies resolve.
func NewContext(ctx context.Context, id TypeID, config any, resolve ResolveFunc) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{ctx: ctx, typeID: id, config: config, resolve: resolve}
}

// Context returns the context of the build.
func (c *Context) Context() context.Context { return c.ctx }

// TypeID returns the id of the component being constructed.
func (c *Context) TypeID() TypeID { return c.typeID }

// Config returns the bound config object, or nil.
func (c *Context) Config() any { return c.config }

// Dependency returns the instance bound to id.
func (c *Context) Dependency(id TypeID) (any, error) {
	if c.resolve == nil {
		return nil, fmt.Errorf("%s: no dependency resolver", c.typeID)
	}
	return c.resolve(id)
}

// Dependency returns the instance bound to id as a T.
func Dependency[T any](c *Context, id TypeID) (T, error) {
	var zero T
	v, err := c.Dependency(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s: dependency %s is %T, not %T", c.typeID, id, v, zero)
	}
	return t, nil
}

// Config returns the bound config object of c as a *T.
func Config[T any](c *Context) (*T, error) {
	cfg, ok := c.config.(*T)
	if !ok {
		return nil, fmt.Errorf("%s: config is %T, not %T", c.typeID, c.config, (*T)(nil))
	}
	return cfg, nil
}
