// Package problem defines the capability sets an analysis problem
// supplies to a solver (spec.md §4.5/§9's "polymorphic analysis
// problems" design note: tagged dispatch over a capability set, not
// subtype inheritance) and the string-keyed registry of recognized
// analysis names (spec.md §4.7).
package problem

import (
	"fmt"
	"sort"

	"golang.org/x/tools/go/ssa"
	errors "gopkg.in/src-d/go-errors.v1"

	"goflow/internal/icfg"
)

// ErrUnknownAnalysis is returned by Registry.Lookup for a name with no
// registered factory, at config time, never at run time (spec.md §4.7).
var ErrUnknownAnalysis = errors.NewKind("unknown analysis %q")

// Fact is one data-flow fact in an IFDS/IDE problem's finite domain D.
// Every concrete fact type must be comparable by Key so the solver can
// use facts as map keys without a problem-supplied equality callback for
// the common case; Key is the "equal" capability spec.md §3 names.
type Fact interface {
	Key() string
}

// Zero is the distinguished "no fact" tautological fact IFDS/IDE seed at
// the entry of every analyzed function (the Λ fact in the classical
// formulation), represented concretely so facts and the zero fact share
// one domain type.
type Zero struct{}

// Key implements Fact.
func (Zero) Key() string { return "\x00zero" }

// IFDS is the capability set spec.md §3/§9 calls out for the IFDS
// variant: seeds, and one flow function per ICFG edge kind. Every flow
// function receives the graph alongside the edge so it can resolve
// either endpoint's instruction — mirroring how classical IFDS solver
// libraries hand the supergraph itself to the transfer function rather
// than just a bare edge.
type IFDS interface {
	Name() string
	InitialSeeds(g *icfg.Graph, entry icfg.NodeID) []Fact
	FlowNormal(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact
	FlowCall(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact
	FlowReturn(g *icfg.Graph, edge icfg.Edge, callerFact Fact, calleeExitFact Fact) []Fact
	FlowCallToReturn(g *icfg.Graph, edge icfg.Edge, in Fact) []Fact
}

// EdgeValue is one element of an IDE problem's second lattice L
// (spec.md §4.5's IDE phase 2). Combine sequentially composes the value
// of two path segments (spec.md's "composed edge-value functions");
// Equal supports fixed-point comparison.
type EdgeValue interface {
	Combine(EdgeValue) EdgeValue
	Equal(EdgeValue) bool
}

// IDE extends IFDS with edge-value functions over L and a meet operator,
// spec.md §4.5. Identity is the Combine-neutral element a path of length
// zero carries (e.g. the zero distance at a seed); Bottom is the
// Meet-neutral element (the "no path found yet" sentinel).
type IDE interface {
	IFDS
	EdgeValueNormal(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue
	EdgeValueCall(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue
	EdgeValueReturn(g *icfg.Graph, edge icfg.Edge, d1, d2 Fact) EdgeValue
	Identity() EdgeValue
	Bottom() EdgeValue
	MeetEdgeValues(a, b EdgeValue) EdgeValue
}

// LatticeValue is one element of a monotone-framework problem's bounded
// lattice.
type LatticeValue interface {
	Join(LatticeValue) LatticeValue
	Equal(LatticeValue) bool
}

// IntraMonotone is the capability set for a classic single-function
// worklist analysis, spec.md §4.5.
type IntraMonotone interface {
	Name() string
	Top() LatticeValue
	InitialValue() LatticeValue
	Transfer(instr ssa.Instruction, in LatticeValue) LatticeValue
}

// InterMonotone is the context-sensitive ICFG-wide variant, spec.md
// §4.5's call-string abstraction.
type InterMonotone interface {
	Name() string
	Top() LatticeValue
	InitialValue() LatticeValue
	Transfer(node icfg.Node, in LatticeValue) LatticeValue
}

// Kind tags which capability set a registered factory produces, since
// Go has no sum type and the registry is dispatched on this tag rather
// than a type switch over every call site (spec.md §9: "tagged dispatch,
// not subtype inheritance").
type Kind int

const (
	KindIFDS Kind = iota
	KindIDE
	KindIntraMonotone
	KindInterMonotone
	// KindNone selects no data-flow problem at all: the "none" analysis
	// (spec.md §4.7) exists purely to drive ICFG construction/merge and
	// diagnostic export without running a solver.
	KindNone
)

// Entry is one registered analysis: its capability kind and a factory
// producing a fresh instance (problems hold no shared mutable state
// across runs, spec.md §4.6).
type Entry struct {
	Name    string
	Kind    Kind
	Factory func() any
}

// Registry is the string-keyed analysis-name table, spec.md §4.7.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns an empty registry. This package's Default function
// in registry.go returns one pre-populated with the ten recognized
// analysis names (spec.md §4.7's exact list).
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register installs an entry, overwriting any previous registration
// under the same name (used by tests to inject stub problems).
func (r *Registry) Register(e Entry) { r.entries[e.Name] = e }

// Lookup resolves name to its registered Entry, or ErrUnknownAnalysis.
func (r *Registry) Lookup(name string) (Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, ErrUnknownAnalysis.New(name)
	}
	return e, nil
}

// Names returns every registered analysis name, sorted for deterministic
// error messages and listings.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (k Kind) String() string {
	switch k {
	case KindIFDS:
		return "ifds"
	case KindIDE:
		return "ide"
	case KindIntraMonotone:
		return "mono_intra"
	case KindInterMonotone:
		return "mono_inter"
	case KindNone:
		return "none"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}
