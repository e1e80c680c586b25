// Package steens implements a flow-insensitive, field-insensitive
// Steensgaard-style alias oracle (spec.md §4.2 step 4): a union-find
// unification over every pointer-typed SSA value in a module, seeded by
// allocation sites and unified across stores, loads, field/index
// addressing (folded into the base — Steensgaard's classic
// field-insensitivity), phi nodes, and statically resolvable call
// argument/parameter/return pairs.
//
// Unlike golang.org/x/tools/go/pointer (an Andersen-style, flow-sensitive,
// context-sensitive points-to analysis — a different, more expensive
// algorithm than what spec.md asks for here) there is no ecosystem package
// implementing Steensgaard's algorithm for go/ssa, so this is hand-rolled,
// grounded directly in spec.md §4.2's algorithm description.
package steens

import (
	"go/types"

	"golang.org/x/tools/go/ssa"

	"goflow/internal/ids"
)

// Oracle holds the unification result: every pointer-typed value is
// assigned to exactly one partition class. Values in the same class may
// alias; values in different classes provably do not (under Steensgaard's
// unification semantics).
type Oracle struct {
	parent map[string]string // value id -> parent id (union-find)
	rank   map[string]int
}

// New returns an oracle with no values unioned yet.
func New() *Oracle {
	return &Oracle{parent: make(map[string]string), rank: make(map[string]int)}
}

func (o *Oracle) find(id string) string {
	if _, ok := o.parent[id]; !ok {
		o.parent[id] = id
		return id
	}
	root := id
	for o.parent[root] != root {
		root = o.parent[root]
	}
	// Path compression.
	for o.parent[id] != root {
		next := o.parent[id]
		o.parent[id] = root
		id = next
	}
	return root
}

func (o *Oracle) union(a, b string) {
	ra, rb := o.find(a), o.find(b)
	if ra == rb {
		return
	}
	if o.rank[ra] < o.rank[rb] {
		ra, rb = rb, ra
	}
	o.parent[rb] = ra
	if o.rank[ra] == o.rank[rb] {
		o.rank[ra]++
	}
}

// Class returns the partition representative for v, or ("", false) if v
// was never a pointer-typed value seen by the oracle.
func (o *Oracle) Class(valueID string) (string, bool) {
	if _, ok := o.parent[valueID]; !ok {
		return "", false
	}
	return o.find(valueID), true
}

// isPointerLike reports whether t is a type the oracle tracks: pointers,
// maps, channels, slices, interfaces, and function values all denote
// indirection in Go's memory model and so participate in aliasing.
func isPointerLike(t types.Type) bool {
	switch t.Underlying().(type) {
	case *types.Pointer, *types.Map, *types.Chan, *types.Slice, *types.Interface, *types.Signature:
		return true
	default:
		return false
	}
}

func (o *Oracle) see(v ssa.Value) {
	if v == nil || !isPointerLike(v.Type()) {
		return
	}
	o.find(ids.Value(v)) // ensures a singleton class exists
}

// Run unifies every pointer-typed value across fn's instructions into the
// oracle's partition. Call it once per function, in a fixed visitation
// order (declaration order of blocks and instructions), so that repeated
// runs over an unchanged function are idempotent (spec.md §8).
func (o *Oracle) Run(fn *ssa.Function) {
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			o.visit(instr)
		}
	}
}

func (o *Oracle) visit(instr ssa.Instruction) {
	switch v := instr.(type) {
	case *ssa.Alloc:
		o.see(v)
	case *ssa.MakeClosure:
		o.see(v)
		if fn, ok := v.Fn.(*ssa.Function); ok {
			for i, binding := range v.Bindings {
				if i < len(fn.FreeVars) {
					o.see(binding)
					o.unifyValues(binding, fn.FreeVars[i])
				}
			}
		}
	case *ssa.MakeChan:
		o.see(v)
	case *ssa.MakeMap:
		o.see(v)
	case *ssa.MakeSlice:
		o.see(v)
	case *ssa.MakeInterface:
		o.see(v)
		o.see(v.X)
		o.unifyValues(v, v.X)
	case *ssa.Store:
		// *addr := val: the pointee of addr is unified with val.
		o.see(v.Addr)
		o.see(v.Val)
		o.unifyValues(v.Addr, v.Val)
	case *ssa.UnOp:
		if v.Op.String() == "*" {
			o.see(v)
			o.see(v.X)
			o.unifyValues(v, v.X)
		}
	case *ssa.FieldAddr:
		// Field-insensitive: the field address is unified with its base.
		o.see(v)
		o.see(v.X)
		o.unifyValues(v, v.X)
	case *ssa.IndexAddr:
		o.see(v)
		o.see(v.X)
		o.unifyValues(v, v.X)
	case *ssa.Index:
		o.see(v)
		o.see(v.X)
		o.unifyValues(v, v.X)
	case *ssa.Lookup:
		o.see(v)
		o.see(v.X)
		o.unifyValues(v, v.X)
	case *ssa.Phi:
		o.see(v)
		for _, edge := range v.Edges {
			o.see(edge)
			o.unifyValues(v, edge)
		}
	case *ssa.Call:
		o.visitCall(&v.Call, v)
	case *ssa.Go:
		o.visitCall(&v.Call, nil)
	case *ssa.Defer:
		o.visitCall(&v.Call, nil)
	}
}

// visitCall unifies statically resolvable argument/parameter pairs and,
// when result is non-nil, the callee's single return value with the call
// result — this is what makes the oracle span whole-module rather than
// purely intra-procedural, matching spec.md's description of an oracle
// run "across every module" whose results are later sliced per function.
func (o *Oracle) visitCall(common *ssa.CallCommon, result ssa.Value) {
	if common.IsInvoke() {
		return // interface dispatch: not statically resolvable
	}
	callee, ok := common.Value.(*ssa.Function)
	if !ok {
		return // indirect call through a function value
	}
	for i, arg := range common.Args {
		if i >= len(callee.Params) {
			break
		}
		o.see(arg)
		o.see(callee.Params[i])
		o.unifyValues(arg, callee.Params[i])
	}
	if result != nil {
		o.see(result)
		for _, b := range callee.Blocks {
			if n := len(b.Instrs); n > 0 {
				if ret, ok := b.Instrs[n-1].(*ssa.Return); ok && len(ret.Results) == 1 {
					o.see(ret.Results[0])
					o.unifyValues(result, ret.Results[0])
				}
			}
		}
	}
}

func (o *Oracle) unifyValues(a, b ssa.Value) {
	if !isPointerLike(a.Type()) || !isPointerLike(b.Type()) {
		return
	}
	o.union(ids.Value(a), ids.Value(b))
}
