package problem

import (
	"goflow/internal/icfg"
)

// Distance is the ide_taint problem's edge-value lattice element: the
// number of propagation hops from source to the current fact. Meet is
// numeric minimum (the shortest known taint path wins), and the lattice
// is bounded by construction: Bottom is a large sentinel, never
// literally unbounded, so spec.md §4.5's "L must be bounded-height"
// precondition holds trivially.
type Distance int

// Equal implements EdgeValue.
func (d Distance) Equal(other EdgeValue) bool {
	o, ok := other.(Distance)
	return ok && o == d
}

// Combine implements EdgeValue: sequential path composition is addition
// of hop counts, saturating at bottomDistance so an already-unreachable
// segment stays unreachable rather than overflowing.
func (d Distance) Combine(other EdgeValue) EdgeValue {
	o, ok := other.(Distance)
	if !ok {
		return d
	}
	if d >= bottomDistance || o >= bottomDistance {
		return bottomDistance
	}
	return d + o
}

const bottomDistance Distance = 1 << 30

// TaintIDE is ide_taint: IFDS taint tracking (delegated to an embedded
// Taint) augmented with a Distance edge value per spec.md §4.5's IDE
// phase 2.
type TaintIDE struct {
	*Taint
}

// NewTaintIDE returns a fresh TaintIDE; nil predicates use Taint's
// defaults.
func NewTaintIDE(isSource SourcePredicate, isSink SinkPredicate) *TaintIDE {
	return &TaintIDE{Taint: NewTaint(isSource, isSink)}
}

// Name implements IDE.
func (t *TaintIDE) Name() string { return "ide_taint" }

// Identity implements IDE: a zero-length path contributes no hops.
func (t *TaintIDE) Identity() EdgeValue { return Distance(0) }

// Bottom implements IDE: the identity of MeetEdgeValues, a path length no
// real propagation can reach.
func (t *TaintIDE) Bottom() EdgeValue { return bottomDistance }

// MeetEdgeValues implements IDE: shortest known path wins.
func (t *TaintIDE) MeetEdgeValues(a, b EdgeValue) EdgeValue {
	da, aok := a.(Distance)
	db, bok := b.(Distance)
	switch {
	case !aok:
		return b
	case !bok:
		return a
	case da < db:
		return da
	default:
		return db
	}
}

// EdgeValueNormal charges one hop for any edge that actually propagates
// the fact (d1 != d2 after FlowNormal would have produced a new fact);
// since the edge-value function only needs to be consistent with the
// flow function's gen behavior, a flat one-hop cost per instruction is
// the simplest correct weighting.
func (t *TaintIDE) EdgeValueNormal(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue {
	return hopCost(d1, d2)
}

// EdgeValueCall charges one hop for crossing into a callee.
func (t *TaintIDE) EdgeValueCall(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue {
	return hopCost(d1, d2)
}

// EdgeValueReturn charges one hop for crossing back out of a callee.
func (t *TaintIDE) EdgeValueReturn(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue {
	return hopCost(d1, d2)
}

func hopCost(d1, d2 Fact) EdgeValue {
	if d1 == nil || d2 == nil {
		return Distance(0)
	}
	if d1.Key() == d2.Key() {
		return Distance(0)
	}
	return Distance(1)
}
