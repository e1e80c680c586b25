package problem

import (
	"golang.org/x/tools/go/ssa"

	"goflow/internal/icfg"
	"goflow/internal/ids"
)

// Uninitialized is the ifds_uninit problem (spec.md §8 scenario 2): a
// local read before any store to it is reported as a fact naming the
// uninitialized value. It tracks ssa.Alloc cells, so it is only
// meaningful over a module built with mem2reg disabled (ssa.NaiveForm) —
// promoted SSA registers have no uninitialized-read state to observe,
// since go/ssa's own SSA construction already proves every register is
// defined before use.
type Uninitialized struct{}

// NewUninitialized returns a fresh, stateless instance.
func NewUninitialized() *Uninitialized { return &Uninitialized{} }

// Name implements IFDS.
func (u *Uninitialized) Name() string { return "ifds_uninit" }

// InitialSeeds seeds every ssa.Alloc cell reachable from entry as
// uninitialized — the cell only stops being a fact once a Store targets
// it (see FlowNormal).
func (u *Uninitialized) InitialSeeds(g *icfg.Graph, entry icfg.NodeID) []Fact {
	fn := g.Node(entry).Func
	var seeds []Fact
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			if alloc, ok := instr.(*ssa.Alloc); ok {
				seeds = append(seeds, ValueFact{ValueID: ids.Value(alloc), Tag: "uninit"})
			}
		}
	}
	return seeds
}

// FlowNormal kills the fact for an Alloc's cell once a Store targets it;
// every other instruction passes the fact through, so it is still present
// at a read of the cell (a *ssa.UnOp dereference, since go/ssa lowers a
// plain local read of a NaiveForm cell to that shape) that precedes the
// first store. No separate fact is generated for the read itself.
func (u *Uninitialized) FlowNormal(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	vf, ok := in.(ValueFact)
	if !ok || vf.Tag != "uninit" {
		return []Fact{in}
	}
	instr := g.Node(edge.From).Instr
	if store, ok := instr.(*ssa.Store); ok {
		if ids.Value(store.Addr) == vf.ValueID {
			return nil // killed: the cell is now initialized
		}
	}
	return []Fact{in}
}

// FlowCall passes no uninitialized-local facts into the callee: a local
// variable in the caller is never visible inside a callee's frame.
func (u *Uninitialized) FlowCall(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	return nil
}

// FlowReturn never reintroduces a caller-side fact from a callee's exit,
// matching the previous FlowCall: the two domains do not share values.
func (u *Uninitialized) FlowReturn(g *icfg.Graph, edge icfg.Edge, callerFact Fact, calleeExitFact Fact) []Fact {
	return nil
}

// FlowCallToReturn is where the real work happens: a caller-local fact
// survives a call unless the call store-writes to it, which cannot
// happen through the call-to-return edge's own instruction (a call
// never itself stores to an Alloc other than its own result), so the
// fact always survives.
func (u *Uninitialized) FlowCallToReturn(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	return []Fact{in}
}
