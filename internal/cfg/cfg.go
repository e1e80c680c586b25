// Package cfg exposes the intraprocedural control-flow graph (spec.md §4.6)
// as a thin, stably-identified wrapper over golang.org/x/tools/go/ssa's own
// basic-block graph — go/ssa already builds and maintains this graph during
// Program.Build(), so there is nothing to reconstruct here, only to index
// with the framework's own ids for use by the solvers and the diagnostic
// exporters.
package cfg

import (
	"golang.org/x/tools/go/ssa"

	"goflow/internal/ids"
)

// Graph is one function's CFG: a stably-ided view over fn.Blocks.
type Graph struct {
	Func   *ssa.Function
	blocks map[string]*ssa.BasicBlock
}

// Build wraps fn's existing SSA block graph.
func Build(fn *ssa.Function) *Graph {
	g := &Graph{Func: fn, blocks: make(map[string]*ssa.BasicBlock, len(fn.Blocks))}
	for i, b := range fn.Blocks {
		g.blocks[ids.Block(fn, i)] = b
	}
	return g
}

// Entry returns the function's entry block, or nil for an external
// declaration with no body.
func (g *Graph) Entry() *ssa.BasicBlock {
	if len(g.Func.Blocks) == 0 {
		return nil
	}
	return g.Func.Blocks[0]
}

// Exits returns every block with no successors (return or unreachable
// blocks ending in a no-successor terminator).
func (g *Graph) Exits() []*ssa.BasicBlock {
	var out []*ssa.BasicBlock
	for _, b := range g.Func.Blocks {
		if len(b.Succs) == 0 {
			out = append(out, b)
		}
	}
	return out
}

// Block looks up a block by its stable id.
func (g *Graph) Block(id string) (*ssa.BasicBlock, bool) {
	b, ok := g.blocks[id]
	return b, ok
}

// Successors returns a block's successor blocks, mirroring fn.Blocks[i].Succs
// directly — go/ssa already resolves fallthrough, conditional, and jump
// edges into this slice, including the synthetic edges it inserts for
// panic/recover control flow.
func Successors(b *ssa.BasicBlock) []*ssa.BasicBlock { return b.Succs }

// Predecessors returns a block's predecessor blocks.
func Predecessors(b *ssa.BasicBlock) []*ssa.BasicBlock { return b.Preds }

// IsBranch reports whether b ends in a conditional branch (two successors).
func IsBranch(b *ssa.BasicBlock) bool { return len(b.Succs) == 2 }

// Instructions returns b's instruction stream in program order.
func Instructions(b *ssa.BasicBlock) []ssa.Instruction { return b.Instrs }
