// Package ordering turns independently declared "before"/"after" constraints
// into one deterministic linear order.
package ordering

import (
	"container/heap"
	"fmt"
	"sync"
)

// CycleError is returned by Finalize when the constraints cannot be satisfied.
// Nodes lists every node that lies on a cycle, in registration order.
type CycleError[K comparable] struct {
	Nodes []K
}

func (e *CycleError[K]) Error() string {
	return fmt.Sprintf("ordering cycle between %v", e.Nodes)
}

// Edge is a "From before To" constraint.
type Edge[K comparable] struct {
	From K
	To   K
}

// Graph collects nodes and constraints until Finalize is called.
// Ties between unconstrained nodes are broken by registration order, except
// that deferred nodes yield to any other ready node.
type Graph[K comparable] struct {
	mu       sync.Mutex
	rank     map[K]int
	nodes    []K
	succ     map[K][]K
	edges    map[Edge[K]]struct{}
	deferred map[K]bool

	once   sync.Once
	order  []K
	err    error
	sealed bool
}

// New returns an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		rank:     make(map[K]int),
		succ:     make(map[K][]K),
		edges:    make(map[Edge[K]]struct{}),
		deferred: make(map[K]bool),
	}
}

// AddNode registers k. The first registration fixes its tie-break rank.
// It reports false once the graph is finalized.
func (g *Graph[K]) AddNode(k K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return false
	}
	g.addNode(k)
	return true
}

// Defer registers k and marks it as deferred: when it is ready together with
// non-deferred nodes, it is emitted after them. It reports false once the
// graph is finalized.
func (g *Graph[K]) Defer(k K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return false
	}
	g.addNode(k)
	g.deferred[k] = true
	return true
}

// HasEdge reports whether the constraint "from before to" was recorded.
func (g *Graph[K]) HasEdge(from, to K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.edges[Edge[K]{From: from, To: to}]
	return ok
}

func (g *Graph[K]) addNode(k K) {
	if _, ok := g.rank[k]; ok {
		return
	}
	g.rank[k] = len(g.nodes)
	g.nodes = append(g.nodes, k)
}

// AddConstraint records that from must come before to. Unseen endpoints are
// registered, from first. It reports false once the graph is finalized.
func (g *Graph[K]) AddConstraint(from, to K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return false
	}
	g.addNode(from)
	g.addNode(to)
	e := Edge[K]{From: from, To: to}
	if _, dup := g.edges[e]; dup {
		return true
	}
	g.edges[e] = struct{}{}
	g.succ[from] = append(g.succ[from], to)
	return true
}

// Has reports whether k was registered.
func (g *Graph[K]) Has(k K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.rank[k]
	return ok
}

// Nodes returns the registered nodes in registration order.
func (g *Graph[K]) Nodes() []K {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]K(nil), g.nodes...)
}

// Edges returns the constraints, grouped by source in registration order.
func (g *Graph[K]) Edges() []Edge[K] {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Edge[K]
	for _, from := range g.nodes {
		for _, to := range g.succ[from] {
			out = append(out, Edge[K]{From: from, To: to})
		}
	}
	return out
}

// Finalize seals the graph and returns its linear order. The first result is
// cached; later calls return it without recomputation.
func (g *Graph[K]) Finalize() ([]K, error) {
	g.once.Do(func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.sealed = true
		g.order, g.err = g.sort()
	})
	if g.err != nil {
		return nil, g.err
	}
	return append([]K(nil), g.order...), nil
}

// sort is Kahn's algorithm with a min-heap on (deferred, rank) as the ready set.
func (g *Graph[K]) sort() ([]K, error) {
	indegree := make([]int, len(g.nodes))
	for _, from := range g.nodes {
		for _, to := range g.succ[from] {
			indegree[g.rank[to]]++
		}
	}

	ready := &rankHeap{deferred: make([]bool, len(g.nodes))}
	for k := range g.deferred {
		ready.deferred[g.rank[k]] = true
	}
	for i, d := range indegree {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]K, 0, len(g.nodes))
	for ready.Len() > 0 {
		r := heap.Pop(ready).(int)
		n := g.nodes[r]
		order = append(order, n)
		for _, to := range g.succ[n] {
			tr := g.rank[to]
			indegree[tr]--
			if indegree[tr] == 0 {
				heap.Push(ready, tr)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}
	return nil, &CycleError[K]{Nodes: g.cycleMembers(indegree)}
}

// cycleMembers returns the nodes left over by Kahn's algorithm that lie on a
// cycle, as opposed to nodes merely downstream of one.
func (g *Graph[K]) cycleMembers(indegree []int) []K {
	remaining := make(map[K]bool)
	for i, d := range indegree {
		if d > 0 {
			remaining[g.nodes[i]] = true
		}
	}

	var out []K
	for _, n := range g.nodes {
		if remaining[n] && g.reaches(n, n, remaining) {
			out = append(out, n)
		}
	}
	return out
}

// reaches reports whether target is reachable from start through at least one
// edge, staying inside allowed.
func (g *Graph[K]) reaches(start, target K, allowed map[K]bool) bool {
	seen := make(map[K]bool)
	stack := append([]K(nil), g.succ[start]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		if seen[n] || !allowed[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.succ[n]...)
	}
	return false
}

// rankHeap holds ready ranks. Non-deferred ranks sort first.
type rankHeap struct {
	ranks    []int
	deferred []bool // indexed by rank
}

func (h *rankHeap) Len() int { return len(h.ranks) }
func (h *rankHeap) Less(i, j int) bool {
	a, b := h.ranks[i], h.ranks[j]
	if h.deferred[a] != h.deferred[b] {
		return !h.deferred[a]
	}
	return a < b
}
func (h *rankHeap) Swap(i, j int) { h.ranks[i], h.ranks[j] = h.ranks[j], h.ranks[i] }
func (h *rankHeap) Push(x any)   { h.ranks = append(h.ranks, x.(int)) }
func (h *rankHeap) Pop() any {
	old := h.ranks
	n := len(old)
	x := old[n-1]
	h.ranks = old[:n-1]
	return x
}
