// Package ptg implements the per-function points-to graph (spec.md §3/§4.2):
// nodes are IR values, an undirected edge means "may alias in the same
// function". Construction is idempotent given a stable alias oracle
// (internal/prean/steens); lifetime is tied to the owning function.
//
// The graph is an arena with stable integer handles plus adjacency lists
// indexed by handle, per spec.md's Design Notes §9 — the same shape the
// teacher uses for basic-block ids, generalized from string ids to a
// handle-indexed slice so edge lookups never hash a value id; each
// handle's neighbor set is itself a small map keyed by handle.
package ptg

// Handle is a stable integer reference to a node in a Graph.
type Handle int32

// Graph is one function's points-to graph.
type Graph struct {
	FuncID string

	ids     map[string]Handle // value id -> handle
	values  []string          // handle -> value id
	adjSet  []map[Handle]bool // handle -> set of aliasing handles
}

// NewGraph returns an empty points-to graph owned by funcID.
func NewGraph(funcID string) *Graph {
	return &Graph{FuncID: funcID, ids: make(map[string]Handle)}
}

// Intern returns the handle for valueID, allocating one if this is the
// first time valueID is seen.
func (g *Graph) Intern(valueID string) Handle {
	if h, ok := g.ids[valueID]; ok {
		return h
	}
	h := Handle(len(g.values))
	g.ids[valueID] = h
	g.values = append(g.values, valueID)
	g.adjSet = append(g.adjSet, nil)
	return h
}

// Lookup returns the handle for valueID without allocating, ok=false if
// valueID was never interned.
func (g *Graph) Lookup(valueID string) (Handle, bool) {
	h, ok := g.ids[valueID]
	return h, ok
}

// ValueID returns the value id a handle was interned with.
func (g *Graph) ValueID(h Handle) string { return g.values[h] }

// AddEdge records that a and b may alias. Idempotent and symmetric.
func (g *Graph) AddEdge(a, b Handle) {
	if a == b {
		return
	}
	if g.adjSet[a] == nil {
		g.adjSet[a] = make(map[Handle]bool)
	}
	if g.adjSet[b] == nil {
		g.adjSet[b] = make(map[Handle]bool)
	}
	g.adjSet[a][b] = true
	g.adjSet[b][a] = true
}

// MayAlias reports whether a and b are connected by an edge.
func (g *Graph) MayAlias(a, b Handle) bool {
	return g.adjSet[a] != nil && g.adjSet[a][b]
}

// Neighbors returns the handles that may alias h.
func (g *Graph) Neighbors(h Handle) []Handle {
	out := make([]Handle, 0, len(g.adjSet[h]))
	for n := range g.adjSet[h] {
		out = append(out, n)
	}
	return out
}

// Size returns the number of interned nodes.
func (g *Graph) Size() int { return len(g.values) }
