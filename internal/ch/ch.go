// Package ch reconstructs a class hierarchy over the analyzed module set
// (spec.md §4.3): a DAG of type declarations connected by embeds/implements
// edges, plus a per-interface virtual dispatch table. It is grounded on the
// teacher's ExtractTypeRelationships/emitSatisfiesMethod (types.go), which
// walks go/types the same way to build implements/embeds/satisfies_method
// edges for its property graph; here the output is a queryable Hierarchy
// instead of graph-database edges.
package ch

import (
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"

	"goflow/internal/ids"
)

// EdgeKind distinguishes a subtyping DAG edge's origin.
type EdgeKind int

const (
	// Embeds connects a struct to a type it embeds by value or pointer.
	Embeds EdgeKind = iota
	// Implements connects a concrete type to an interface it satisfies.
	Implements
)

// Edge is one DAG edge. Contested marks an Embeds edge whose target is one
// of two or more embedded fields promoting a method of the same name —
// spec.md §4.3's ambiguous-parent rule: the edge is still
// recorded (the DAG is not required to be a tree), but flagged so callers
// that need single-parent resolution know to treat it specially.
type Edge struct {
	From      string // type id
	To        string // type id
	Kind      EdgeKind
	Contested bool
}

// typeInfo is one declared named type or interface, keyed by a stable id.
type typeInfo struct {
	id      string
	obj     *types.TypeName
	iface   *types.Interface // non-nil iff this is an interface declaration
	concrete types.Type
}

// Hierarchy is the reconstructed class hierarchy: a DAG over declared
// types plus a vtable cache built lazily per (interface, concrete) pair.
type Hierarchy struct {
	types map[string]*typeInfo
	edges []Edge

	// byFrom/byTo index edges for fast traversal.
	byFrom map[string][]Edge
	byTo   map[string][]Edge

	vtables map[vtKey][]string // (iface id, concrete id) -> method ids, memoized
}

type vtKey struct{ iface, concrete string }

// TypeID returns the stable id ch assigns to a *types.TypeName declaration:
// its package path joined with its name, since go/types interns *types.Named
// per declaration and that pair is already globally unique within a module
// set (no position component needed, unlike the teacher's position-keyed
// CPG node ids — spec.md's DAG is declaration-keyed, not syntax-keyed).
func TypeID(obj *types.TypeName) string {
	if obj.Pkg() == nil {
		return obj.Name() // universe scope, e.g. "error"
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

// Build walks every named type and interface declared in pkgs and
// reconstructs the subtyping DAG, following the teacher's
// ExtractTypeRelationships traversal (scope.Names over each package,
// split into concretes and interfaces, then types.Implements / embedded
// struct fields to connect them).
func Build(pkgs []*packages.Package) *Hierarchy {
	h := &Hierarchy{
		types:   make(map[string]*typeInfo),
		byFrom:  make(map[string][]Edge),
		byTo:    make(map[string][]Edge),
		vtables: make(map[vtKey][]string),
	}

	var concretes, ifaces []*typeInfo

	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			obj, ok := scope.Lookup(name).(*types.TypeName)
			if !ok {
				continue
			}
			info := &typeInfo{id: TypeID(obj), obj: obj, concrete: obj.Type()}
			h.types[info.id] = info
			if iface, ok := obj.Type().Underlying().(*types.Interface); ok && types.IsInterface(obj.Type()) {
				info.iface = iface
				ifaces = append(ifaces, info)
			} else {
				concretes = append(concretes, info)
			}
		}
	}

	for _, c := range concretes {
		h.linkImplements(c, ifaces)
		h.linkEmbeds(c)
	}

	h.sortEdges()
	return h
}

func (h *Hierarchy) linkImplements(concrete *typeInfo, ifaces []*typeInfo) {
	ptrType := types.NewPointer(concrete.concrete)
	for _, iface := range ifaces {
		if iface.iface.NumMethods() == 0 {
			continue
		}
		if types.Implements(concrete.concrete, iface.iface) || types.Implements(ptrType, iface.iface) {
			h.addEdge(Edge{From: concrete.id, To: iface.id, Kind: Implements})
		}
	}
}

// linkEmbeds records one Embeds edge per embedded struct field. When two or
// more embedded fields promote a method of the same name (the classic Go
// "ambiguous selector" case), the edges to every one of those embedded
// targets are marked Contested — spec.md §4.3's explicit rule for
// contested multi-parent relations. Each field's method set is taken from
// its declared type (T or *T).
func (h *Hierarchy) linkEmbeds(concrete *typeInfo) {
	st, ok := concrete.concrete.Underlying().(*types.Struct)
	if !ok {
		return
	}
	providers := make(map[string][]string) // method name -> embedded targets promoting it
	var targets []string
	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		if !field.Embedded() {
			continue
		}
		t := field.Type()
		if ptr, ok := t.(*types.Pointer); ok {
			t = ptr.Elem()
		}
		named, ok := t.(*types.Named)
		if !ok {
			continue
		}
		target := TypeID(named.Obj())
		if _, known := h.types[target]; !known {
			continue
		}
		targets = append(targets, target)
		mset := types.NewMethodSet(field.Type())
		for j := 0; j < mset.Len(); j++ {
			name := mset.At(j).Obj().Name()
			providers[name] = append(providers[name], target)
		}
	}

	contested := make(map[string]bool)
	for _, ts := range providers {
		if len(ts) > 1 {
			for _, t := range ts {
				contested[t] = true
			}
		}
	}
	for _, target := range targets {
		h.addEdge(Edge{From: concrete.id, To: target, Kind: Embeds, Contested: contested[target]})
	}
}

func (h *Hierarchy) addEdge(e Edge) {
	h.edges = append(h.edges, e)
	h.byFrom[e.From] = append(h.byFrom[e.From], e)
	h.byTo[e.To] = append(h.byTo[e.To], e)
}

func (h *Hierarchy) sortEdges() {
	sort.Slice(h.edges, func(i, j int) bool {
		if h.edges[i].From != h.edges[j].From {
			return h.edges[i].From < h.edges[j].From
		}
		return h.edges[i].To < h.edges[j].To
	})
}

// Edges returns every DAG edge, in a deterministic order.
func (h *Hierarchy) Edges() []Edge { return h.edges }

// Parents returns the types typeID is directly connected to (embeds or
// implements), in deterministic order.
func (h *Hierarchy) Parents(typeID string) []Edge { return h.byFrom[typeID] }

// Children returns the types that embed or implement typeID.
func (h *Hierarchy) Children(typeID string) []Edge { return h.byTo[typeID] }

// Implementers returns every concrete type id that implements the named
// interface, derived from the DAG's Implements edges rather than
// recomputed from go/types each call.
func (h *Hierarchy) Implementers(ifaceID string) []string {
	var out []string
	for _, e := range h.byTo[ifaceID] {
		if e.Kind == Implements {
			out = append(out, e.From)
		}
	}
	return out
}

// VTable returns the function ids that realize ifaceID's methods on
// concreteID, following the teacher's emitSatisfiesMethod: build the
// method set for both T and *T and match each interface method by name,
// accepting only an unpromoted (direct, Index length 1) match; a method
// reached through an embedded field is not included. Results are
// memoized since a given (interface, concrete) pair is looked up
// repeatedly during ICFG construction's virtual-call resolution.
func (h *Hierarchy) VTable(ifaceID, concreteID string) []string {
	key := vtKey{ifaceID, concreteID}
	if cached, ok := h.vtables[key]; ok {
		return cached
	}

	iface := h.types[ifaceID]
	concrete := h.types[concreteID]
	if iface == nil || concrete == nil || iface.iface == nil {
		return nil
	}

	var out []string
	for _, base := range []types.Type{concrete.concrete, types.NewPointer(concrete.concrete)} {
		mset := types.NewMethodSet(base)
		var found []string
		for i := 0; i < iface.iface.NumMethods(); i++ {
			ifaceMethod := iface.iface.Method(i)
			sel := mset.Lookup(ifaceMethod.Pkg(), ifaceMethod.Name())
			if sel == nil || len(sel.Index()) != 1 {
				continue
			}
			if fn, ok := sel.Obj().(*types.Func); ok {
				found = append(found, ids.QualifiedFunc(fn))
			}
		}
		if len(found) > 0 {
			out = found
			break
		}
	}

	h.vtables[key] = out
	return out
}
