package problem

import (
	"golang.org/x/tools/go/ssa"

	"goflow/internal/icfg"
)

// IFDSSolverTest is the identity IFDS problem spec.md §8's universal
// soundness property is stated against: every flow function returns
// exactly its input fact, unchanged, at every edge kind. A correct
// solver must report the seeded fact at every node reachable from the
// seed.
type IFDSSolverTest struct{}

// NewIFDSSolverTest returns a fresh instance.
func NewIFDSSolverTest() *IFDSSolverTest { return &IFDSSolverTest{} }

func (s *IFDSSolverTest) Name() string { return "ifds_solvertest" }

// InitialSeeds seeds the zero fact at entry — the identity problem needs
// no problem-specific domain element to prove reachability.
func (s *IFDSSolverTest) InitialSeeds(g *icfg.Graph, entry icfg.NodeID) []Fact {
	return []Fact{Zero{}}
}

func (s *IFDSSolverTest) FlowNormal(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	return []Fact{in}
}

func (s *IFDSSolverTest) FlowCall(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	return []Fact{in}
}

func (s *IFDSSolverTest) FlowReturn(g *icfg.Graph, edge icfg.Edge, callerFact Fact, calleeExitFact Fact) []Fact {
	return []Fact{calleeExitFact}
}

func (s *IFDSSolverTest) FlowCallToReturn(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact {
	return []Fact{in}
}

// IDESolverTest is IFDSSolverTest's IDE counterpart: identity flow
// functions paired with a trivial one-element edge-value lattice, so the
// IDE phase-2 pass has something to compute without a problem-specific
// lattice obscuring solver correctness.
type IDESolverTest struct {
	*IFDSSolverTest
}

// NewIDESolverTest returns a fresh instance.
func NewIDESolverTest() *IDESolverTest { return &IDESolverTest{IFDSSolverTest: NewIFDSSolverTest()} }

func (s *IDESolverTest) Name() string { return "ide_solvertest" }

// unit is IDESolverTest's sole, bottom-is-top edge value.
type unit struct{}

func (unit) Equal(other EdgeValue) bool { _, ok := other.(unit); return ok }

func (unit) Combine(EdgeValue) EdgeValue { return unit{} }

func (s *IDESolverTest) Identity() EdgeValue { return unit{} }

func (s *IDESolverTest) Bottom() EdgeValue { return unit{} }

func (s *IDESolverTest) MeetEdgeValues(a, b EdgeValue) EdgeValue { return unit{} }

func (s *IDESolverTest) EdgeValueNormal(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue {
	return unit{}
}

func (s *IDESolverTest) EdgeValueCall(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue {
	return unit{}
}

func (s *IDESolverTest) EdgeValueReturn(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue {
	return unit{}
}

// boolValue is a two-point lattice (false < true) used by the monotone
// solver-test problems: enough to exercise join/transfer without
// encoding a real analysis.
type boolValue bool

func (v boolValue) Join(other LatticeValue) LatticeValue {
	o, ok := other.(boolValue)
	return v || (ok && bool(o))
}

func (v boolValue) Equal(other LatticeValue) bool {
	o, ok := other.(boolValue)
	return ok && o == v
}

// IntraMonotoneSolverTest is mono_intra_solvertest: the lattice value at
// every instruction becomes true once any predecessor is true (classic
// reachability-as-a-lattice), exercising join and transfer without a
// real analysis's complexity.
type IntraMonotoneSolverTest struct{}

// NewIntraMonotoneSolverTest returns a fresh instance.
func NewIntraMonotoneSolverTest() *IntraMonotoneSolverTest { return &IntraMonotoneSolverTest{} }

func (s *IntraMonotoneSolverTest) Name() string { return "mono_intra_solvertest" }

func (s *IntraMonotoneSolverTest) Top() LatticeValue { return boolValue(false) }

func (s *IntraMonotoneSolverTest) InitialValue() LatticeValue { return boolValue(true) }

func (s *IntraMonotoneSolverTest) Transfer(instr ssa.Instruction, in LatticeValue) LatticeValue {
	return in
}

// InterMonotoneSolverTest is mono_inter_solvertest: the ICFG-wide
// analog, identity transfer over the same two-point lattice.
type InterMonotoneSolverTest struct{}

// NewInterMonotoneSolverTest returns a fresh instance.
func NewInterMonotoneSolverTest() *InterMonotoneSolverTest { return &InterMonotoneSolverTest{} }

func (s *InterMonotoneSolverTest) Name() string { return "mono_inter_solvertest" }

func (s *InterMonotoneSolverTest) Top() LatticeValue { return boolValue(false) }

func (s *InterMonotoneSolverTest) InitialValue() LatticeValue { return boolValue(true) }

func (s *InterMonotoneSolverTest) Transfer(node icfg.Node, in LatticeValue) LatticeValue {
	return in
}
