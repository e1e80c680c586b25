package problem

import (
	"golang.org/x/tools/go/ssa"

	"goflow/internal/icfg"
	"goflow/internal/ids"
)

// SourcePredicate reports whether fn's value v is a taint source.
type SourcePredicate func(fn *ssa.Function, v ssa.Value) bool

// SinkPredicate reports whether instr is a taint sink.
type SinkPredicate func(instr ssa.Instruction) bool

// DefaultIsSource treats every parameter of an entry-point function as a
// taint source, matching spec.md §8 scenario 3 ("a source at main's
// argument").
func DefaultIsSource(fn *ssa.Function, v ssa.Value) bool {
	param, ok := v.(*ssa.Parameter)
	return ok && param.Parent() == fn
}

// DefaultIsSink treats a call to a function with no body (a "declared
// library call", spec.md §8 scenario 3) as a sink.
func DefaultIsSink(instr ssa.Instruction) bool {
	call, ok := instr.(*ssa.Call)
	if !ok || call.Call.IsInvoke() {
		return false
	}
	callee, ok := call.Call.Value.(*ssa.Function)
	return ok && len(callee.Blocks) == 0
}

// Taint is the ifds_taint problem: a value tainted at a source survives
// assignment and call/return boundaries, flagged as a fact at any sink
// that consumes it.
type Taint struct {
	isSource SourcePredicate
	isSink   SinkPredicate
}

// NewTaint returns a Taint problem; nil predicates fall back to
// DefaultIsSource/DefaultIsSink.
func NewTaint(isSource SourcePredicate, isSink SinkPredicate) *Taint {
	if isSource == nil {
		isSource = DefaultIsSource
	}
	if isSink == nil {
		isSink = DefaultIsSink
	}
	return &Taint{isSource: isSource, isSink: isSink}
}

// Name implements IFDS.
func (t *Taint) Name() string { return "ifds_taint" }

// InitialSeeds marks every source value in entry's function as tainted.
func (t *Taint) InitialSeeds(g *icfg.Graph, entry icfg.NodeID) []Fact {
	fn := g.Node(entry).Func
	var seeds []Fact
	for _, p := range fn.Params {
		if t.isSource(fn, p) {
			seeds = append(seeds, ValueFact{ValueID: ids.Value(p), Tag: "tainted"})
		}
	}
	return seeds
}

// FlowNormal propagates a tainted fact to any value it flows into
// (assignment, arithmetic, field/index addressing all count as
// propagation — a field-insensitive over-approximation mirroring the
// alias oracle's own field-insensitivity), and keeps the original fact
// alive alongside the new one.
func (t *Taint) FlowNormal(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	vf, ok := in.(ValueFact)
	if !ok || vf.Tag != "tainted" {
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
			out = append(out, ValueFact{ValueID: ids.Value(val), Tag: "tainted"})
			break
		}
	}
	return out
}

// FlowCall maps a tainted argument onto the corresponding formal
// parameter.
func (t *Taint) FlowCall(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	vf, ok := in.(ValueFact)
	if !ok || vf.Tag != "tainted" || edge.Callee == nil {
		return nil
	}
	instr := g.Node(edge.From).Instr
	call, ok := instr.(ssa.CallInstruction)
	if !ok {
		return nil
	}
	common := call.Common()
	for i, arg := range common.Args {
		if ids.Value(arg) == vf.ValueID && i < len(edge.Callee.Params) {
			return []Fact{ValueFact{ValueID: ids.Value(edge.Callee.Params[i]), Tag: "tainted"}}
		}
	}
	return nil
}

// FlowReturn maps a tainted return value back onto the call's result at
// the caller.
func (t *Taint) FlowReturn(g *icfg.Graph, edge icfg.Edge, callerFact Fact, calleeExitFact Fact) []Fact {
	vf, ok := calleeExitFact.(ValueFact)
	if !ok || vf.Tag != "tainted" {
		return nil
	}
	exitInstr := g.Node(edge.From).Instr
	ret, ok := exitInstr.(*ssa.Return)
	if !ok {
		return nil
	}
	for _, result := range ret.Results {
		if ids.Value(result) == vf.ValueID {
			callSite, isVal := g.Node(edge.To).Instr.(ssa.Value)
			if isVal {
				return []Fact{ValueFact{ValueID: ids.Value(callSite), Tag: "tainted"}}
			}
		}
	}
	return nil
}

// FlowCallToReturn keeps a caller-local tainted fact alive across a call
// the taint itself does not flow through, and additionally reports a
// fact at the sink if the called instruction matches isSink and consumes
// a tainted argument — spec.md §8 scenario 3's "fact chain linking the
// source to the sink".
func (t *Taint) FlowCallToReturn(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	out := []Fact{in}
	vf, ok := in.(ValueFact)
	if !ok || vf.Tag != "tainted" {
		return out
	}
	instr := g.Node(edge.From).Instr
	call, isCall := instr.(ssa.CallInstruction)
	if !isCall || !t.isSink(instr) {
		return out
	}
	for _, arg := range call.Common().Args {
		if ids.Value(arg) == vf.ValueID {
			out = append(out, ValueFact{ValueID: ids.Instr(instr), Tag: "tainted_at_sink"})
			break
		}
	}
	return out
}
