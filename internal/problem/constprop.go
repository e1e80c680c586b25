package problem

import (
	"go/constant"

	"golang.org/x/tools/go/ssa"

	"goflow/internal/ids"
)

// constKind classifies one tracked value's knowledge in the constant-
// propagation lattice: Undefined is the bottom element (not yet
// observed), Const carries a known literal, Top means "provably not a
// single constant" — spec.md §8 scenario 4's distinguished top element.
type constKind int

const (
	undefinedConst constKind = iota
	definiteConst
	topConst
)

type constElem struct {
	kind constKind
	val  int64 // only meaningful when kind == definiteConst
}

func (a constElem) join(b constElem) constElem {
	switch {
	case a.kind == undefinedConst:
		return b
	case b.kind == undefinedConst:
		return a
	case a.kind == topConst || b.kind == topConst:
		return constElem{kind: topConst}
	case a.val == b.val:
		return a
	default:
		return constElem{kind: topConst}
	}
}

// Env is the mono_intra_fullconstpropagation lattice element: a snapshot
// of every tracked local's constElem at one program point. It implements
// problem.LatticeValue.
type Env struct {
	vals map[string]constElem
}

func emptyEnv() Env { return Env{vals: make(map[string]constElem)} }

// Join implements LatticeValue: pointwise join over the union of keys.
func (e Env) Join(other LatticeValue) LatticeValue {
	o, ok := other.(Env)
	if !ok {
		return e
	}
	out := make(map[string]constElem, len(e.vals)+len(o.vals))
	for k, v := range e.vals {
		out[k] = v
	}
	for k, v := range o.vals {
		out[k] = out[k].join(v)
	}
	return Env{vals: out}
}

// Equal implements LatticeValue.
func (e Env) Equal(other LatticeValue) bool {
	o, ok := other.(Env)
	if !ok || len(o.vals) != len(e.vals) {
		return false
	}
	for k, v := range e.vals {
		ov, ok := o.vals[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// At returns the constant value known for valueID, if any, and whether
// it is a definite (non-top, non-undefined) constant.
func (e Env) At(valueID string) (int64, bool) {
	v, ok := e.vals[valueID]
	return v.val, ok && v.kind == definiteConst
}

func (e Env) with(key string, v constElem) Env {
	out := make(map[string]constElem, len(e.vals)+1)
	for k, val := range e.vals {
		out[k] = val
	}
	out[key] = v
	return Env{vals: out}
}

// ConstPropagation is mono_intra_fullconstpropagation: classic constant
// propagation over NaiveForm SSA, where every local lives in an
// *ssa.Alloc cell and is read/written through Store/UnOp(*) pairs — the
// shape spec.md §8 scenario 4 describes ("local x assigned 1 then 2").
type ConstPropagation struct{}

// NewConstPropagation returns a fresh, stateless instance.
func NewConstPropagation() *ConstPropagation { return &ConstPropagation{} }

// Name implements IntraMonotone.
func (c *ConstPropagation) Name() string { return "mono_intra_fullconstpropagation" }

// Top implements IntraMonotone: the empty environment, in which no local
// has been observed — the identity of Join, which the solver uses as the
// starting value of blocks not yet reached.
func (c *ConstPropagation) Top() LatticeValue { return emptyEnv() }

// InitialValue implements IntraMonotone: no locals observed yet at
// function entry.
func (c *ConstPropagation) InitialValue() LatticeValue { return emptyEnv() }

// Transfer updates env for one instruction: a Store of a constant
// literal records a definite value for its target cell; a Store of a
// non-constant value (or a value itself not yet resolved to a constant
// in env) marks the cell Top; a dereferencing UnOp reads the cell's
// current element back onto its own value id so downstream uses see it.
func (c *ConstPropagation) Transfer(instr ssa.Instruction, in LatticeValue) LatticeValue {
	env, ok := in.(Env)
	if !ok {
		env = emptyEnv()
	}
	switch v := instr.(type) {
	case *ssa.Store:
		addr := ids.Value(v.Addr)
		return env.with(addr, constOf(v.Val, env))
	case *ssa.UnOp:
		if v.Op.String() != "*" {
			return env
		}
		addr := ids.Value(v.X)
		return env.with(ids.Value(v), env.vals[addr])
	default:
		return env
	}
}

// constOf resolves val to a constElem: a literal constant yields a
// definite element directly; any other value yields whatever env
// already knows for that value's id, or Top if nothing is known (a
// conservative default — "unknown as of now" degrades to Top rather than
// Undefined so a single unresolved assignment cannot masquerade as
// bottom forever).
func constOf(val ssa.Value, env Env) constElem {
	if k, ok := val.(*ssa.Const); ok && k.Value != nil {
		if iv, exact := constInt64(k); exact {
			return constElem{kind: definiteConst, val: iv}
		}
		return constElem{kind: topConst}
	}
	if e, ok := env.vals[ids.Value(val)]; ok {
		return e
	}
	return constElem{kind: topConst}
}

func constInt64(k *ssa.Const) (int64, bool) {
	if k.Value == nil || k.Value.Kind() != constant.Int {
		return 0, false
	}
	return constant.Int64Val(k.Value)
}
