package solver

import (
	"golang.org/x/tools/go/ssa"

	"goflow/internal/icfg"
	"goflow/internal/problem"
)

// IDEResult extends IFDSResult with the meet-over-all-paths edge value
// computed for every (node, fact) pair, spec.md §4.5's phase 2 output.
type IDEResult struct {
	*IFDSResult
	Values map[icfg.NodeID]map[string]problem.EdgeValue
}

func (r *IDEResult) setVal(p problem.IDE, n icfg.NodeID, fact problem.Fact, v problem.EdgeValue) bool {
	bucket, ok := r.Values[n]
	if !ok {
		bucket = make(map[string]problem.EdgeValue)
		r.Values[n] = bucket
	}
	cur, exists := bucket[fact.Key()]
	merged := v
	if exists {
		merged = p.MeetEdgeValues(cur, v)
		if merged.Equal(cur) {
			return false
		}
	}
	bucket[fact.Key()] = merged
	return true
}

type ideItem struct {
	node icfg.NodeID
	fact problem.Fact
}

// RunIDE solves p over g: phase 1 runs the embedded IFDS problem exactly
// as RunIFDS does (IDE's domain D is identical to its underlying IFDS
// problem, spec.md §4.5: "phase 1 identical to IFDS on (D ∪ {0})");
// phase 2 then computes the meet-over-all-paths edge value for every
// reached (node, fact) pair by replaying the same edge traversal with
// Combine/Meet in place of fact propagation.
func RunIDE(g *icfg.Graph, p problem.IDE, entries []*ssa.Function, cancel *CancelToken) *IDEResult {
	ifdsRes := RunIFDS(g, p, entries, cancel)
	res := &IDEResult{IFDSResult: ifdsRes, Values: make(map[icfg.NodeID]map[string]problem.EdgeValue)}
	if ifdsRes.Cancelled {
		return res
	}

	var worklist []ideItem
	push := func(n icfg.NodeID, f problem.Fact, v problem.EdgeValue) {
		if res.setVal(p, n, f, v) {
			worklist = append(worklist, ideItem{node: n, fact: f})
		}
	}

	for _, fn := range entries {
		entry, ok := g.Entry(fn)
		if !ok {
			continue
		}
		push(entry, problem.Zero{}, p.Identity())
		for _, seed := range p.InitialSeeds(g, entry) {
			push(entry, seed, p.Identity())
		}
	}

	for len(worklist) > 0 {
		if cancel.Cancelled() {
			res.Cancelled = true
			break
		}
		item := worklist[0]
		worklist = worklist[1:]
		curVal := res.Values[item.node][item.fact.Key()]

		for _, edge := range g.Successors(item.node) {
			switch edge.Kind {
			case icfg.Intra:
				for _, out := range p.FlowNormal(g, edge, item.fact) {
					push(edge.To, out, curVal.Combine(p.EdgeValueNormal(g, edge, item.fact, out)))
				}
			case icfg.CallToReturn:
				for _, out := range p.FlowCallToReturn(g, edge, item.fact) {
					push(edge.To, out, curVal.Combine(p.EdgeValueNormal(g, edge, item.fact, out)))
				}
			case icfg.Call:
				for _, out := range p.FlowCall(g, edge, item.fact) {
					push(edge.To, out, curVal.Combine(p.EdgeValueCall(g, edge, item.fact, out)))
				}
			case icfg.Return:
				for _, callerFact := range ifdsRes.Facts[edge.To] {
					callerVal, ok := res.Values[edge.To][callerFact.Key()]
					if !ok {
						continue
					}
					for _, out := range p.FlowReturn(g, edge, callerFact, item.fact) {
						ev := p.EdgeValueReturn(g, edge, item.fact, out)
						push(edge.To, out, callerVal.Combine(curVal).Combine(ev))
					}
				}
			case icfg.Unresolved:
			}
		}
	}

	return res
}
