// Package icfg builds the interprocedural control-flow graph (spec.md
// §4.4): an arena of statement nodes connected by intraprocedural,
// call, return, call-to-return, and unresolved edges, constructed by one
// of three walker strategies (CHA/RTA/Pointer) and one of two resolve
// strategies (Declared call targets only, or OTF on-the-fly resolution
// against a running solver).
//
// Grounded on the teacher's BuildCallGraph (callgraph.go), which walks a
// golang.org/x/tools/go/callgraph.Graph and emits call/call_site/param_in/
// param_out/call_to_return edges; this package keeps that edge taxonomy
// but builds it from whichever of cha/rta/vta the caller selects, and
// indexes everything by stable instruction ids instead of emitting a
// flat property-graph edge list.
package icfg

import (
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/ssa"

	"goflow/internal/ch"
	"goflow/internal/ids"
	"goflow/internal/irdb"
)

// WalkerStrategy selects which golang.org/x/tools/go/callgraph builder
// resolves indirect and interface calls, spec.md §4.4.
type WalkerStrategy int

const (
	// CHA: class-hierarchy analysis, coarsest and cheapest. Maps to
	// golang.org/x/tools/go/callgraph/cha.
	CHA WalkerStrategy = iota
	// RTA: rapid type analysis, seeded from reachable roots. Maps to
	// golang.org/x/tools/go/callgraph/rta.
	RTA
	// Pointer: points-to-informed call resolution, the most precise.
	// Maps to golang.org/x/tools/go/callgraph/vta (value-flow points-to
	// analysis over SSA), the strategy the teacher already used.
	Pointer
)

// ResolveStrategy controls when an ambiguous call edge is pinned down,
// spec.md §4.4.
type ResolveStrategy int

const (
	// Declared trusts statically bound call targets only: an interface-
	// method (invoke) call edge reported by the walker becomes an
	// Unresolved edge.
	Declared ResolveStrategy = iota
	// OTF (on-the-fly) records the walker's interface-method call edges as
	// ordinary Call edges. Graph.ResolveOTF and Hook let a caller add and
	// observe further call targets after Build; the solvers in
	// internal/solver do not use them.
	OTF
)

// EdgeKind classifies one ICFG edge, spec.md §4.4's five edge kinds.
type EdgeKind int

const (
	Intra EdgeKind = iota
	Call
	Return
	CallToReturn
	Unresolved
)

// NodeID is a stable handle into the ICFG's node arena.
type NodeID int32

// Node is one ICFG node: a single SSA instruction, addressable by handle
// instead of by pointer so solver worklists can use a dense int key.
type Node struct {
	ID     NodeID
	Instr  ssa.Instruction
	Func   *ssa.Function
	StmtID string
}

// Edge connects two nodes with a kind; Call/Return/Unresolved edges also
// record the callee for caller-side lookups.
type Edge struct {
	From, To NodeID
	Kind     EdgeKind
	Callee   *ssa.Function // nil for Intra/CallToReturn
}

// Hook lets a running solver register newly discovered call targets under
// OTF resolution (spec.md §4.4's on-the-fly back-edge). Graph.ResolveOTF
// calls back into the solver through this interface so a target found
// mid-fixed-point can be folded into the in-flight worklist rather than
// requiring a second full pass.
type Hook interface {
	// OnEdgeAdded is invoked once per edge added after the initial Build,
	// so the solver can seed its worklist with the new call/return pair.
	OnEdgeAdded(e Edge)
}

// Graph is the built ICFG: a node arena plus adjacency lists, using the
// same handle-indexed-slice shape as internal/ptg (spec.md's Design Notes
// §9 arena discipline).
type Graph struct {
	nodes    []Node
	byID     map[string]NodeID
	succ     [][]Edge
	pred     [][]Edge
	entry    map[*ssa.Function]NodeID // function -> its entry node
	walker   WalkerStrategy
	resolve  ResolveStrategy
	hook     Hook
	hierarchy *ch.Hierarchy
}

func (g *Graph) intern(instr ssa.Instruction) NodeID {
	id := ids.Instr(instr)
	if nid, ok := g.byID[id]; ok {
		return nid
	}
	nid := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{ID: nid, Instr: instr, Func: instr.Parent(), StmtID: id})
	g.succ = append(g.succ, nil)
	g.pred = append(g.pred, nil)
	g.byID[id] = nid
	return nid
}

func (g *Graph) addEdge(e Edge) {
	g.succ[e.From] = append(g.succ[e.From], e)
	g.pred[e.To] = append(g.pred[e.To], e)
	if g.hook != nil {
		g.hook.OnEdgeAdded(e)
	}
}

// Node returns the node stored at id.
func (g *Graph) Node(id NodeID) Node { return g.nodes[id] }

// Successors returns id's outgoing edges.
func (g *Graph) Successors(id NodeID) []Edge { return g.succ[id] }

// Predecessors returns id's incoming edges.
func (g *Graph) Predecessors(id NodeID) []Edge { return g.pred[id] }

// Entry returns the ICFG entry node for fn, if fn has a body.
func (g *Graph) Entry(fn *ssa.Function) (NodeID, bool) {
	id, ok := g.entry[fn]
	return id, ok
}

// Size returns the number of nodes in the arena.
func (g *Graph) Size() int { return len(g.nodes) }

// SetHook installs (or clears, with nil) the OTF callback.
func (g *Graph) SetHook(h Hook) { g.hook = h }

// Hierarchy returns the class hierarchy the graph was built against, used
// by a solver resolving an Unresolved virtual-dispatch edge via VTable
// lookups rather than re-running a walker pass.
func (g *Graph) Hierarchy() *ch.Hierarchy { return g.hierarchy }

// Build constructs the ICFG for every function in db's modules (or, once
// db.LinkForWPA has run, the single synthetic WPA module), spec.md §4.4.
// entryPoints names the functions icfg treats as analysis roots for RTA
// seeding; it is ignored by CHA and Pointer, which are whole-program by
// construction.
func Build(hierarchy *ch.Hierarchy, db *irdb.DB, walker WalkerStrategy, resolve ResolveStrategy, entryPoints []*ssa.Function) *Graph {
	g := &Graph{
		byID:      make(map[string]NodeID),
		entry:     make(map[*ssa.Function]NodeID),
		walker:    walker,
		resolve:   resolve,
		hierarchy: hierarchy,
	}

	var allFuncs []*ssa.Function
	for _, m := range db.Modules() {
		allFuncs = append(allFuncs, m.Funcs...)
	}

	g.buildIntra(allFuncs)

	cg := buildCallGraph(walker, allFuncs, entryPoints)
	g.buildInterprocedural(cg, resolve)

	return g
}

// buildIntra wires every instruction of every function's basic-block
// predecessor/successor boundary into Intra edges: for instructions other
// than the block's last, the edge is instr(i)->instr(i+1); for a block's
// last instruction, one Intra edge per CFG successor block's first
// instruction.
func (g *Graph) buildIntra(funcs []*ssa.Function) {
	for _, fn := range funcs {
		if len(fn.Blocks) == 0 {
			continue
		}
		entryBlock := fn.Blocks[0]
		if len(entryBlock.Instrs) > 0 {
			g.entry[fn] = g.intern(entryBlock.Instrs[0])
		}
		for _, block := range fn.Blocks {
			for i, instr := range block.Instrs {
				from := g.intern(instr)
				if i+1 < len(block.Instrs) {
					to := g.intern(block.Instrs[i+1])
					g.addEdge(Edge{From: from, To: to, Kind: Intra})
					continue
				}
				for _, succ := range block.Succs {
					if len(succ.Instrs) == 0 {
						continue
					}
					to := g.intern(succ.Instrs[0])
					g.addEdge(Edge{From: from, To: to, Kind: Intra})
				}
			}
		}
	}
}

// buildCallGraph dispatches to the x/tools callgraph builder matching
// walker, exactly the three strategies spec.md §4.4 names as CHA/RTA/
// Pointer.
func buildCallGraph(walker WalkerStrategy, allFuncs []*ssa.Function, entryPoints []*ssa.Function) *callgraph.Graph {
	funcSet := make(map[*ssa.Function]bool, len(allFuncs))
	for _, fn := range allFuncs {
		funcSet[fn] = true
	}

	switch walker {
	case CHA:
		var prog *ssa.Program
		for fn := range funcSet {
			prog = fn.Prog
			break
		}
		if prog == nil {
			return callgraph.New(nil)
		}
		return cha.CallGraph(prog)
	case RTA:
		roots := entryPoints
		if len(roots) == 0 {
			roots = allFuncs
		}
		return rta.Analyze(roots, true).CallGraph
	default: // Pointer
		cg := vta.CallGraph(funcSet, nil)
		cg.DeleteSyntheticNodes()
		return cg
	}
}

// buildInterprocedural walks cg's edges and emits Call/Return/
// CallToReturn edges (under Declared resolution, an interface-method call
// edge is emitted as Unresolved instead of Call), following the teacher's
// BuildCallGraph edge taxonomy in callgraph.go. A call site for which cg
// has no edge gets no interprocedural edge.
func (g *Graph) buildInterprocedural(cg *callgraph.Graph, resolve ResolveStrategy) {
	_ = callgraph.GraphVisitEdges(cg, func(e *callgraph.Edge) error {
		if e.Site == nil {
			return nil
		}
		callInstr, ok := e.Site.(ssa.Instruction)
		if !ok {
			return nil
		}
		callee := e.Callee.Func
		if len(callee.Blocks) == 0 {
			// No body to enter: only a call-to-return edge makes sense.
			g.emitCallToReturn(callInstr)
			return nil
		}

		callNode := g.intern(callInstr)
		entryID, ok := g.entry[callee]
		if !ok {
			if len(callee.Blocks) > 0 && len(callee.Blocks[0].Instrs) > 0 {
				entryID = g.intern(callee.Blocks[0].Instrs[0])
				g.entry[callee] = entryID
			} else {
				g.emitCallToReturn(callInstr)
				return nil
			}
		}

		if e.Site.Common().IsInvoke() && resolve == Declared {
			// Declared resolution only trusts statically bound call targets;
			// a virtual dispatch is recorded but left for a later OTF pass
			// (or a more precise walker) to confirm.
			g.addEdge(Edge{From: callNode, To: entryID, Kind: Unresolved, Callee: callee})
		} else {
			g.addEdge(Edge{From: callNode, To: entryID, Kind: Call, Callee: callee})
		}

		for _, exitBlock := range callee.Blocks {
			if len(exitBlock.Succs) != 0 || len(exitBlock.Instrs) == 0 {
				continue
			}
			exitInstr := exitBlock.Instrs[len(exitBlock.Instrs)-1]
			exitNode := g.intern(exitInstr)
			g.addEdge(Edge{From: exitNode, To: callNode, Kind: Return, Callee: callee})
		}

		g.emitCallToReturn(callInstr)
		return nil
	})
}

func (g *Graph) emitCallToReturn(callInstr ssa.Instruction) {
	block := callInstr.Block()
	for i, instr := range block.Instrs {
		if instr == callInstr && i+1 < len(block.Instrs) {
			from := g.intern(callInstr)
			to := g.intern(block.Instrs[i+1])
			g.addEdge(Edge{From: from, To: to, Kind: CallToReturn})
			return
		}
	}
}

// ResolveOTF adds a Call edge from callSite to callee's entry and a Return
// edge from each of callee's exits, for a target found after Build (e.g. a
// virtual dispatch pinned down by the points-to graph); addEdge notifies
// Hook of each new edge if one is installed. The solvers in
// internal/solver do not call it.
func (g *Graph) ResolveOTF(callSite NodeID, callee *ssa.Function) {
	if len(callee.Blocks) == 0 || len(callee.Blocks[0].Instrs) == 0 {
		return
	}
	entryID, ok := g.entry[callee]
	if !ok {
		entryID = g.intern(callee.Blocks[0].Instrs[0])
		g.entry[callee] = entryID
	}
	g.addEdge(Edge{From: callSite, To: entryID, Kind: Call, Callee: callee})
	for _, exitBlock := range callee.Blocks {
		if len(exitBlock.Succs) != 0 || len(exitBlock.Instrs) == 0 {
			continue
		}
		exitInstr := exitBlock.Instrs[len(exitBlock.Instrs)-1]
		exitNode := g.intern(exitInstr)
		g.addEdge(Edge{From: exitNode, To: callSite, Kind: Return, Callee: callee})
	}
}

// Merge folds other's nodes and edges into g, used by MW (module-wise)
// mode to compose per-module ICFGs into a whole-program view, spec.md
// §4.4/§4.7's MW composition step. Nodes are deduplicated by stmt id and
// an edge already present in g is not added again. Call sites are not
// re-resolved against the merged function set.
func (g *Graph) Merge(other *Graph) {
	remap := make(map[NodeID]NodeID, len(other.nodes))
	for _, n := range other.nodes {
		remap[n.ID] = g.intern(n.Instr)
	}
	for fn, id := range other.entry {
		if _, exists := g.entry[fn]; !exists {
			g.entry[fn] = remap[id]
		}
	}
	for _, edges := range other.succ {
	next:
		for _, e := range edges {
			merged := Edge{From: remap[e.From], To: remap[e.To], Kind: e.Kind, Callee: e.Callee}
			for _, existing := range g.succ[merged.From] {
				if existing == merged {
					continue next
				}
			}
			g.addEdge(merged)
		}
	}
}
