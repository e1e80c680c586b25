package problem

import (
	"golang.org/x/tools/go/ssa"

	"goflow/internal/icfg"
	"goflow/internal/ids"
)

// TypePropagation is the ifds_type problem: tracks, for every interface-
// typed value, the concrete dynamic type it was most recently boxed
// from, by following ssa.MakeInterface sites. The fact's Tag carries the
// dynamic type's string form so two distinct boxed types at the same
// value id are distinguishable facts in the domain, per spec.md §3's
// "finite, per-problem domain D".
type TypePropagation struct{}

// NewTypePropagation returns a fresh, stateless instance.
func NewTypePropagation() *TypePropagation { return &TypePropagation{} }

// Name implements IFDS.
func (t *TypePropagation) Name() string { return "ifds_type" }

// InitialSeeds seeds one fact per MakeInterface site reachable from
// entry's function, naming the boxed value and its concrete type.
func (t *TypePropagation) InitialSeeds(g *icfg.Graph, entry icfg.NodeID) []Fact {
	fn := g.Node(entry).Func
	var seeds []Fact
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			if mi, ok := instr.(*ssa.MakeInterface); ok {
				seeds = append(seeds, ValueFact{ValueID: ids.Value(mi), Tag: "type:" + mi.X.Type().String()})
			}
		}
	}
	return seeds
}

func (t *TypePropagation) isTypeFact(f Fact) (ValueFact, bool) {
	vf, ok := f.(ValueFact)
	return vf, ok && len(vf.Tag) > len("type:") && vf.Tag[:5] == "type:"
}

// FlowNormal propagates a dynamic-type fact through any instruction that
// consumes the boxed value as an operand, the same field-insensitive
// propagation Taint.FlowNormal uses.
func (t *TypePropagation) FlowNormal(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	vf, ok := t.isTypeFact(in)
	if !ok {
		return []Fact{in}
	}
	out := []Fact{in}
	instr := g.Node(edge.From).Instr
	val, isVal := instr.(ssa.Value)
	if !isVal {
		return out
	}
	for _, operand := range instr.Operands(nil) {
		if operand != nil && *operand != nil && ids.Value(*operand) == vf.ValueID {
			out = append(out, ValueFact{ValueID: ids.Value(val), Tag: vf.Tag})
			break
		}
	}
	return out
}

// FlowCall maps a typed argument onto its formal parameter.
func (t *TypePropagation) FlowCall(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	vf, ok := t.isTypeFact(in)
	if !ok || edge.Callee == nil {
		return nil
	}
	instr, ok := g.Node(edge.From).Instr.(ssa.CallInstruction)
	if !ok {
		return nil
	}
	for i, arg := range instr.Common().Args {
		if ids.Value(arg) == vf.ValueID && i < len(edge.Callee.Params) {
			return []Fact{ValueFact{ValueID: ids.Value(edge.Callee.Params[i]), Tag: vf.Tag}}
		}
	}
	return nil
}

// FlowReturn maps a typed return value back to the call's result.
func (t *TypePropagation) FlowReturn(g *icfg.Graph, edge icfg.Edge, callerFact Fact, calleeExitFact Fact) []Fact {
	vf, ok := t.isTypeFact(calleeExitFact)
	if !ok {
		return nil
	}
	ret, ok := g.Node(edge.From).Instr.(*ssa.Return)
	if !ok {
		return nil
	}
	for _, result := range ret.Results {
		if ids.Value(result) == vf.ValueID {
			if callSite, isVal := g.Node(edge.To).Instr.(ssa.Value); isVal {
				return []Fact{ValueFact{ValueID: ids.Value(callSite), Tag: vf.Tag}}
			}
		}
	}
	return nil
}

// FlowCallToReturn keeps a caller-local typed fact alive across an
// unrelated call.
func (t *TypePropagation) FlowCallToReturn(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	return []Fact{in}
}
