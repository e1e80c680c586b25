package solver

import (
	"golang.org/x/tools/go/ssa"

	"goflow/internal/cfg"
	"goflow/internal/problem"
)

// IntraMonotoneResult holds one lattice value per instruction, spec.md
// §4.5's intra-monotone output.
type IntraMonotoneResult struct {
	Values    map[ssa.Instruction]problem.LatticeValue
	Cancelled bool
	// Transfers counts total transfer invocations, the quantity spec.md
	// §8's monotone lattice property bounds by h·s.
	Transfers int
}

// RunIntraMonotone solves p over g's single-function CFG: a classic
// worklist that joins predecessor values and reapplies Transfer until no
// block's exit value changes, spec.md §4.5.
func RunIntraMonotone(g *cfg.Graph, p problem.IntraMonotone, cancel *CancelToken) *IntraMonotoneResult {
	res := &IntraMonotoneResult{Values: make(map[ssa.Instruction]problem.LatticeValue)}

	entry := g.Entry()
	if entry == nil {
		return res
	}

	blockIn := make(map[*ssa.BasicBlock]problem.LatticeValue, len(g.Func.Blocks))
	for _, b := range g.Func.Blocks {
		blockIn[b] = p.Top()
	}
	blockIn[entry] = p.InitialValue()

	worklist := []*ssa.BasicBlock{entry}
	queued := map[*ssa.BasicBlock]bool{entry: true}

	for len(worklist) > 0 {
		if cancel.Cancelled() {
			res.Cancelled = true
			return res
		}
		block := worklist[0]
		worklist = worklist[1:]
		queued[block] = false

		val := blockIn[block]
		for _, instr := range cfg.Instructions(block) {
			val = p.Transfer(instr, val)
			res.Transfers++
			res.Values[instr] = val
		}

		for _, succ := range cfg.Successors(block) {
			joined := blockIn[succ].Join(val)
			if joined.Equal(blockIn[succ]) {
				continue
			}
			blockIn[succ] = joined
			if !queued[succ] {
				worklist = append(worklist, succ)
				queued[succ] = true
			}
		}
	}

	return res
}
