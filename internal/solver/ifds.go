package solver

import (
	"golang.org/x/tools/go/ssa"

	"goflow/internal/icfg"
	"goflow/internal/problem"
)

// IFDSResult is the output of an IFDS run: the set of facts reached at
// every ICFG node, spec.md §6's per-analysis result shape before JSON
// projection.
type IFDSResult struct {
	Facts map[icfg.NodeID]map[string]problem.Fact
	// Cancelled is true if a CancelToken fired before the worklist
	// emptied; Facts then holds only a lower bound, spec.md §5.
	Cancelled bool
}

func newIFDSResult() *IFDSResult {
	return &IFDSResult{Facts: make(map[icfg.NodeID]map[string]problem.Fact)}
}

func (r *IFDSResult) add(n icfg.NodeID, f problem.Fact) bool {
	bucket, ok := r.Facts[n]
	if !ok {
		bucket = make(map[string]problem.Fact)
		r.Facts[n] = bucket
	}
	if _, exists := bucket[f.Key()]; exists {
		return false
	}
	bucket[f.Key()] = f
	return true
}

type workItem struct {
	node icfg.NodeID
	fact problem.Fact
}

// RunIFDS solves p over g, seeded at every entry point in entries
// (spec.md §4.4's entry_points), following the exploded-supergraph model
// of spec.md §4.5: a worklist of (node, fact) pairs propagated along
// Intra/Call/Return/CallToReturn edges until no new pair is discovered.
// cancel may be nil.
func RunIFDS(g *icfg.Graph, p problem.IFDS, entries []*ssa.Function, cancel *CancelToken) *IFDSResult {
	res := newIFDSResult()
	var worklist []workItem

	push := func(n icfg.NodeID, f problem.Fact) {
		if res.add(n, f) {
			worklist = append(worklist, workItem{node: n, fact: f})
		}
	}

	for _, fn := range entries {
		entry, ok := g.Entry(fn)
		if !ok {
			continue
		}
		push(entry, problem.Zero{})
		for _, seed := range p.InitialSeeds(g, entry) {
			push(entry, seed)
		}
	}

	for len(worklist) > 0 {
		if cancel.Cancelled() {
			res.Cancelled = true
			break
		}
		item := worklist[0]
		worklist = worklist[1:]

		for _, edge := range g.Successors(item.node) {
			switch edge.Kind {
			case icfg.Intra:
				for _, out := range p.FlowNormal(g, edge, item.fact) {
					push(edge.To, out)
				}
			case icfg.CallToReturn:
				for _, out := range p.FlowCallToReturn(g, edge, item.fact) {
					push(edge.To, out)
				}
			case icfg.Call:
				for _, out := range p.FlowCall(g, edge, item.fact) {
					push(edge.To, out)
				}
			case icfg.Return:
				// item.node is the callee exit; edge.To is the call site.
				// Every caller fact already reached at the call site is a
				// valid context to resume from (context-insensitive reuse,
				// spec.md §4.5's end-summary propagation collapsed to a
				// direct worklist fixpoint).
				for _, callerFact := range res.Facts[edge.To] {
					for _, out := range p.FlowReturn(g, edge, callerFact, item.fact) {
						push(edge.To, out)
					}
				}
			case icfg.Unresolved:
				// Recorded in the ICFG itself; spec.md §7 treats this as
				// not-an-error, so the solver simply does not propagate
				// through it.
			}
		}
	}

	return res
}
