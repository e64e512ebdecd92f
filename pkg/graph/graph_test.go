package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	name string
	deps []any
}

// providerFor builds a provider that resolves every declared dependency.
func providerFor(id registry.TypeID, deps ...registry.TypeID) registry.Descriptor {
	return registry.Descriptor{
		TypeID: id,
		Deps:   deps,
		Provider: func(ctx *registry.Context) (any, error) {
			n := &node{name: string(ctx.TypeID())}
			for _, dep := range deps {
				v, err := ctx.Dependency(dep)
				if err != nil {
					return nil, err
				}
				n.deps = append(n.deps, v)
			}
			return n, nil
		},
	}
}

func build(t *testing.T, descriptors ...registry.Descriptor) (*Graph, error) {
	t.Helper()
	return Build(context.Background(), descriptors, nil)
}

// ============================================================================
// Explicit bindings
// ============================================================================

func TestImplicitBindingRejected(t *testing.T) {
	t.Parallel()

	g, err := build(t)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())

	_, err = g.Instance("Instance")
	require.Error(t, err)
	assert.True(t, bserrors.IsExplicitBindingsRequired(err))
	assert.Contains(t, err.Error(), "Explicit bindings are required")

	_, err = Get[*node](g, "Instance")
	assert.True(t, bserrors.IsExplicitBindingsRequired(err))
	assert.Panics(t, func() { g.MustInstance("Instance") })
}

func TestProviderRequestsUnboundType(t *testing.T) {
	t.Parallel()

	_, err := build(t, registry.Descriptor{
		TypeID: "a",
		Provider: func(ctx *registry.Context) (any, error) {
			// Swallowing the error must not hide the missing binding.
			_, _ = ctx.Dependency("Instance")
			return "a", nil
		},
	})
	require.Error(t, err)
	assert.True(t, bserrors.IsExplicitBindingsRequired(err))
	assert.Equal(t, []string{"Explicit bindings are required and Instance is not explicitly bound"}, bserrors.MessagesOf(err))
}

func TestProviderRequestsUndeclaredDependency(t *testing.T) {
	t.Parallel()

	_, err := build(t,
		providerFor("a"),
		registry.Descriptor{
			TypeID: "b",
			Provider: func(ctx *registry.Context) (any, error) {
				return ctx.Dependency("a")
			},
		},
	)
	require.Error(t, err)
	assert.True(t, bserrors.IsExplicitBindingsRequired(err))
	assert.Contains(t, err.Error(), "a is not a declared dependency of b")
}

func TestUnknownDependency(t *testing.T) {
	t.Parallel()

	_, err := build(t,
		providerFor("a", "missing"),
		providerFor("b", "a", "ghost"),
	)
	require.Error(t, err)
	assert.Equal(t, bserrors.ErrUnknownDependency, bserrors.KindOf(err))
	assert.True(t, bserrors.IsExplicitBindingsRequired(err))
	assert.Equal(t, []string{
		"Explicit bindings are required and missing is not explicitly bound: a depends on missing, which has no descriptor",
		"Explicit bindings are required and ghost is not explicitly bound: b depends on ghost, which has no descriptor",
	}, bserrors.MessagesOf(err))
	assert.Equal(t, bserrors.ExitWiring, bserrors.ExitCode(err))
}

// ============================================================================
// Cycles
// ============================================================================

func TestCycleRejected(t *testing.T) {
	t.Parallel()

	_, err := build(t, providerFor("A", "B"), providerFor("B", "A"))
	require.Error(t, err)
	assert.True(t, bserrors.IsCircularDependency(err))
	assert.Contains(t, err.Error(), "circular dependencies are disabled")
	assert.Equal(t, []string{"Found circular dependency A -> B -> A; circular dependencies are disabled"}, bserrors.MessagesOf(err))
}

func TestCycleVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		descriptors []registry.Descriptor
		want        []string
	}{
		{
			name:        "self loop",
			descriptors: []registry.Descriptor{providerFor("a", "a")},
			want:        []string{"Found circular dependency a -> a; circular dependencies are disabled"},
		},
		{
			name: "three node cycle behind a healthy node",
			descriptors: []registry.Descriptor{
				providerFor("root"),
				providerFor("x", "root", "y"),
				providerFor("y", "z"),
				providerFor("z", "x"),
			},
			want: []string{"Found circular dependency x -> y -> z -> x; circular dependencies are disabled"},
		},
		{
			name: "two independent cycles",
			descriptors: []registry.Descriptor{
				providerFor("p", "q"),
				providerFor("m", "n"),
				providerFor("q", "p"),
				providerFor("n", "m"),
			},
			want: []string{
				"Found circular dependency p -> q -> p; circular dependencies are disabled",
				"Found circular dependency m -> n -> m; circular dependencies are disabled",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, tt.descriptors...)
			require.Error(t, err)
			assert.True(t, bserrors.IsCircularDependency(err))
			assert.Equal(t, tt.want, bserrors.MessagesOf(err))
		})
	}
}

func TestCycleCheckedBeforeConstruction(t *testing.T) {
	t.Parallel()

	called := false
	d := providerFor("ok")
	d.Provider = func(*registry.Context) (any, error) { called = true; return nil, nil }

	_, err := build(t, d, providerFor("A", "B"), providerFor("B", "A"))
	require.Error(t, err)
	assert.False(t, called)
}

// ============================================================================
// Construction
// ============================================================================

func TestConstructionOrder(t *testing.T) {
	t.Parallel()

	// Registration order breaks ties: "c" and "a" are both ready first.
	g, err := build(t,
		providerFor("http", "metrics", "node"),
		providerFor("c"),
		providerFor("metrics", "node"),
		providerFor("node"),
		providerFor("a"),
	)
	require.NoError(t, err)

	assert.Equal(t, []registry.TypeID{"c", "node", "metrics", "http", "a"}, g.Order())

	for i, inst := range g.Instances() {
		assert.Equal(t, i, inst.Ordinal)
	}

	http, err := Get[*node](g, "http")
	require.NoError(t, err)
	require.Len(t, http.deps, 2)
	assert.Equal(t, "metrics", http.deps[0].(*node).name)
	assert.Equal(t, "node", http.deps[1].(*node).name)

	// Dependencies are shared, not re-created.
	metrics, _ := Get[*node](g, "metrics")
	assert.Same(t, metrics, http.deps[0])

	inst, ok := g.Lookup("http")
	require.True(t, ok)
	assert.Equal(t, []registry.TypeID{"metrics", "node"}, inst.Deps)
	_, ok = g.Lookup("nope")
	assert.False(t, ok)

	_, err = Get[string](g, "http")
	assert.Error(t, err)
}

func TestConstructionIsDeterministic(t *testing.T) {
	t.Parallel()

	descriptors := []registry.Descriptor{
		providerFor("e", "b"),
		providerFor("d"),
		providerFor("b", "d"),
		providerFor("a"),
		providerFor("c", "a", "d"),
	}
	first, err := build(t, descriptors...)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := build(t, descriptors...)
		require.NoError(t, err)
		assert.Equal(t, first.Order(), again.Order())
	}
}

func TestConfigPassedToProvider(t *testing.T) {
	t.Parallel()

	type cfg struct{ Value string }
	bound := &cfg{Value: "v"}

	g, err := Build(context.Background(), []registry.Descriptor{
		{
			TypeID: "svc",
			Provider: func(ctx *registry.Context) (any, error) {
				c, err := registry.Config[cfg](ctx)
				if err != nil {
					return nil, err
				}
				return strings.ToUpper(c.Value), nil
			},
		},
		{TypeID: "config-only"},
	}, map[registry.TypeID]any{"svc": bound, "config-only": bound})
	require.NoError(t, err)

	v, err := g.Instance("svc")
	require.NoError(t, err)
	assert.Equal(t, "V", v)
	assert.Same(t, bound, g.MustInstance("config-only"))
}

func TestConfigOnlyWithoutConfig(t *testing.T) {
	t.Parallel()

	_, err := build(t, registry.Descriptor{TypeID: "config-only"})
	require.Error(t, err)
	assert.Equal(t, bserrors.ErrConstructionFailed, bserrors.KindOf(err))
}

func TestProviderFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	later := false

	_, err := build(t,
		registry.Descriptor{TypeID: "bad", Provider: func(*registry.Context) (any, error) { return nil, boom }},
		registry.Descriptor{TypeID: "later", Provider: func(*registry.Context) (any, error) { later = true; return 1, nil }},
	)
	require.Error(t, err)
	assert.Equal(t, bserrors.ErrConstructionFailed, bserrors.KindOf(err))
	assert.Equal(t, []string{"Error constructing bad: boom"}, bserrors.MessagesOf(err))
	assert.ErrorIs(t, err, boom)
	assert.False(t, later, "construction stops at the first failure")
}

func TestProviderPanic(t *testing.T) {
	t.Parallel()

	_, err := build(t, registry.Descriptor{
		TypeID:   "panicky",
		Provider: func(*registry.Context) (any, error) { panic("kaboom") },
	})
	require.Error(t, err)
	assert.Equal(t, bserrors.ErrConstructionFailed, bserrors.KindOf(err))
	assert.Contains(t, err.Error(), "panic: kaboom")
}

func TestDuplicateDescriptor(t *testing.T) {
	t.Parallel()

	_, err := build(t, providerFor("a"), providerFor("a"))
	assert.Equal(t, bserrors.ErrDuplicateBinding, bserrors.KindOf(err))
}
