// Package ids generates stable, printable identifiers for SSA-level
// entities. Every identifier is derived from a position plus a qualifying
// prefix so that two runs over the same IR produce byte-identical ids.
package ids

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// Func returns a stable id for a function or method value.
func Func(fn *ssa.Function) string {
	if fn.Pkg != nil {
		return fmt.Sprintf("%s::%s", fn.Pkg.Pkg.Path(), fn.RelString(fn.Pkg.Pkg))
	}
	return fmt.Sprintf("ext::%s", fn.String())
}

// QualifiedFunc returns a stable id for a *types.Func method or function
// object, in the same "pkgpath::receiver.name" shape Func produces for SSA
// values. Used by class-hierarchy reconstruction, which runs on go/types
// before SSA is built.
func QualifiedFunc(fn *types.Func) string {
	sig, _ := fn.Type().(*types.Signature)
	pkgPath := "ext"
	if fn.Pkg() != nil {
		pkgPath = fn.Pkg().Path()
	}
	if sig != nil && sig.Recv() != nil {
		recvType := sig.Recv().Type()
		if ptr, ok := recvType.(*types.Pointer); ok {
			recvType = ptr.Elem()
		}
		if named, ok := recvType.(*types.Named); ok {
			return fmt.Sprintf("%s::(%s).%s", pkgPath, named.Obj().Name(), fn.Name())
		}
	}
	return fmt.Sprintf("%s::%s", pkgPath, fn.Name())
}

// Name returns the unqualified function name used as the IRDB symbol key.
// Deliberately coarser than Func: this is what makes LinkConflict
// observable across packages, mirroring same-named symbols across
// translation units in the system this framework is modeled on.
func Name(fn *ssa.Function) string {
	return fn.Name()
}

// Block returns a stable id for a basic block.
func Block(fn *ssa.Function, index int) string {
	return fmt.Sprintf("%s::bb%d", Func(fn), index)
}

// Instr returns a stable id for an instruction, keyed on its owning block
// and its position within that block's instruction stream. Two
// instructions sharing the same source position (common after inlining
// of synthetic wrappers) are disambiguated by stream index, so ids never
// collide within a function.
func Instr(instr ssa.Instruction) string {
	block := instr.Block()
	fn := block.Parent()
	for i, candidate := range block.Instrs {
		if candidate == instr {
			return fmt.Sprintf("%s::i%d", Block(fn, block.Index), i)
		}
	}
	return fmt.Sprintf("%s::i?", Block(fn, block.Index))
}

// Value returns a stable id for any SSA value, resolving to its defining
// instruction when the value is itself an instruction (the common case),
// and falling back to a kind-qualified id for non-instruction values
// (parameters, free variables, globals, constants).
func Value(v ssa.Value) string {
	switch val := v.(type) {
	case ssa.Instruction:
		return Instr(val)
	case *ssa.Parameter:
		return fmt.Sprintf("%s::param:%s", Func(val.Parent()), val.Name())
	case *ssa.FreeVar:
		return fmt.Sprintf("%s::free:%s", Func(val.Parent()), val.Name())
	case *ssa.Global:
		return fmt.Sprintf("global::%s", val.String())
	case *ssa.Function:
		return Func(val)
	default:
		return fmt.Sprintf("const::%s", v.String())
	}
}
