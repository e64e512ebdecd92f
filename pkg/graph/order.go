package graph

import (
	"container/heap"
	"fmt"
	"slices"
	"strings"

	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/registry"
)

// nodes is the dependency graph over registration indexes. edges[i] lists
// the indexes i depends on, in declaration order.
type nodes struct {
	ids   []registry.TypeID
	edges [][]int
}

func newNodes(descriptors []registry.Descriptor, index map[registry.TypeID]int) *nodes {
	n := &nodes{
		ids:   make([]registry.TypeID, len(descriptors)),
		edges: make([][]int, len(descriptors)),
	}
	for i, d := range descriptors {
		n.ids[i] = d.TypeID
		for _, dep := range d.Deps {
			if j, ok := index[dep]; ok {
				n.edges[i] = append(n.edges[i], j)
			}
		}
	}
	return n
}

// cycles reports every strongly connected component that forms a cycle,
// ordered by the lowest registration index it contains.
func (n *nodes) cycles() error {
	t := &tarjan{
		n:       n,
		index:   make([]int, len(n.ids)),
		lowlink: make([]int, len(n.ids)),
		onStack: make([]bool, len(n.ids)),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for i := range n.ids {
		if t.index[i] < 0 {
			t.strongConnect(i)
		}
	}

	type cycle struct {
		low     int
		members map[int]bool
	}
	var found []cycle
	for _, scc := range t.components {
		if len(scc) == 1 && !n.selfLoop(scc[0]) {
			continue
		}
		c := cycle{low: scc[0], members: make(map[int]bool, len(scc))}
		for _, v := range scc {
			c.low = min(c.low, v)
			c.members[v] = true
		}
		found = append(found, c)
	}
	if len(found) == 0 {
		return nil
	}
	slices.SortFunc(found, func(a, b cycle) int { return a.low - b.low })

	c := bserrors.NewCollector(bserrors.ErrCircularDependency)
	for _, cy := range found {
		path := n.cyclePath(cy.low, cy.members)
		names := make([]string, len(path))
		for i, v := range path {
			names[i] = string(n.ids[v])
		}
		c.Addf(bserrors.ErrCircularDependency,
			"Found circular dependency %s; circular dependencies are disabled", strings.Join(names, " -> "))
	}
	return c.Err()
}

func (n *nodes) selfLoop(v int) bool {
	for _, w := range n.edges[v] {
		if w == v {
			return true
		}
	}
	return false
}

// cyclePath walks from start through members back to start, following
// dependencies in declaration order.
func (n *nodes) cyclePath(start int, members map[int]bool) []int {
	visited := make(map[int]bool)
	var path []int
	var walk func(v int) bool
	walk = func(v int) bool {
		visited[v] = true
		path = append(path, v)
		for _, w := range n.edges[v] {
			if w == start {
				path = append(path, start)
				return true
			}
			if members[w] && !visited[w] && walk(w) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	walk(start)
	return path
}

type tarjan struct {
	n          *nodes
	counter    int
	index      []int
	lowlink    []int
	onStack    []bool
	stack      []int
	components [][]int
}

func (t *tarjan) strongConnect(v int) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.n.edges[v] {
		switch {
		case t.index[w] < 0:
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		case t.onStack[w]:
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	var scc []int
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.components = append(t.components, scc)
}

// topoOrder returns registration indexes so that every node follows its
// dependencies. Among ready nodes the earliest registered goes first.
func (n *nodes) topoOrder() ([]int, error) {
	pending := make([]int, len(n.ids))
	dependents := make([][]int, len(n.ids))
	for v, deps := range n.edges {
		pending[v] = len(deps)
		for _, w := range deps {
			dependents[w] = append(dependents[w], v)
		}
	}

	ready := &indexHeap{}
	for v, p := range pending {
		if p == 0 {
			heap.Push(ready, v)
		}
	}

	order := make([]int, 0, len(n.ids))
	for ready.Len() > 0 {
		v := heap.Pop(ready).(int)
		order = append(order, v)
		for _, d := range dependents[v] {
			pending[d]--
			if pending[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(order) != len(n.ids) {
		return nil, fmt.Errorf("dependency graph is not acyclic")
	}
	return order, nil
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
