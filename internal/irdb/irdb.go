// Package irdb implements the IR database (spec.md §4.1): it owns modules,
// indexes their functions by name, and holds the points-to graph for every
// defined function.
package irdb

import (
	"sort"

	"golang.org/x/tools/go/ssa"
	errors "gopkg.in/src-d/go-errors.v1"

	"goflow/internal/ids"
	"goflow/internal/ptg"
)

// Error kinds, spec.md §7. Built with gopkg.in/src-d/go-errors.v1's
// errors.NewKind, the same typed-error pattern the retrieved
// dolthub/go-mysql-server codebase uses for its own error taxonomy
// (auth.ErrNotAuthorized, auth.ErrNoPermission).
var (
	ErrDuplicateModule = errors.NewKind("module %q already present in IRDB")
	ErrLinkConflict    = errors.NewKind("link conflict: %q strongly defined in both %q and %q")
)

// Linkage classifies a function's definedness for link_for_wpa's collision
// rule (spec.md §4.1): the higher value wins, Strong over Weak over
// External. Go has no weak-symbol
// concept, so it is reconstructed from go/ssa facts — see SPEC_FULL.md §3.
type Linkage int

const (
	// External: the function's package is outside the analyzed module set.
	External Linkage = iota
	// Weak: a compiler-synthesized wrapper (bound-method thunk, interface
	// thunk, synthetic init) inside an analyzed module.
	Weak
	// Strong: a user-written function with a body in an analyzed module.
	Strong
)

// linkageOf classifies fn per the rules above. known reports whether fn's
// package belongs to the module set being linked.
func linkageOf(fn *ssa.Function, known func(pkgPath string) bool) Linkage {
	if fn.Pkg == nil || !known(fn.Pkg.Pkg.Path()) {
		return External
	}
	if fn.Synthetic != "" {
		return Weak
	}
	if len(fn.Blocks) == 0 {
		return External // declaration only, e.g. an assembly stub
	}
	return Strong
}

// Module is an immutable (post-pre-analysis) IR translation unit: one
// analyzed *ssa.Package (spec.md §3).
type Module struct {
	ID    string // import path
	Pkg   *ssa.Package
	Funcs []*ssa.Function
}

// Context is the opaque owner of type uniqueness for a Module, spec.md §3's
// "context handle". Backed by the ssa.Program that built the module, since
// that is what interns *types.Type values across the module set.
type Context struct {
	Prog *ssa.Program
}

type moduleEntry struct {
	module  Module
	context Context
}

// DB is the IR database, spec.md §3/§4.1.
type DB struct {
	modules   map[string]*moduleEntry // module id -> entry, preserves no order; see order
	order     []string                // insertion order, for deterministic iteration (spec.md §8)
	symbolMod map[string]string       // unqualified function name -> defining module id
	ptgs      map[string]*ptg.Graph   // unqualified function name -> owned PTG

	wpa       bool
	wpaModule *Module
}

// New returns an empty IRDB.
func New() *DB {
	return &DB{
		modules:   make(map[string]*moduleEntry),
		symbolMod: make(map[string]string),
		ptgs:      make(map[string]*ptg.Graph),
	}
}

// AddModule takes ownership of module, failing with ErrDuplicateModule if
// id is already present.
func (db *DB) AddModule(id string, pkg *ssa.Package, ctx Context) error {
	if _, exists := db.modules[id]; exists {
		return ErrDuplicateModule.New(id)
	}
	var funcs []*ssa.Function
	for _, mem := range pkg.Members {
		if fn, ok := mem.(*ssa.Function); ok {
			funcs = append(funcs, fn)
			for _, anon := range fn.AnonFuncs {
				funcs = append(funcs, anon)
			}
		}
	}
	db.modules[id] = &moduleEntry{
		module:  Module{ID: id, Pkg: pkg, Funcs: funcs},
		context: ctx,
	}
	db.order = append(db.order, id)

	for _, fn := range funcs {
		name := ids.Name(fn)
		if _, exists := db.symbolMod[name]; !exists {
			db.symbolMod[name] = id
		} else if _, defined := db.ModuleDefining(name); !defined && len(fn.Blocks) > 0 {
			// First-wins, but a defining function always displaces a bare
			// declaration recorded earlier for the same name.
			db.symbolMod[name] = id
		}
	}
	return nil
}

// Modules returns modules in insertion order (spec.md §8's determinism
// clause pins iteration order to this).
func (db *DB) Modules() []Module {
	out := make([]Module, 0, len(db.order))
	for _, id := range db.order {
		out = append(out, db.modules[id].module)
	}
	return out
}

// ModuleDefining returns the module containing the definition of fname, or
// ok=false if only a declaration exists (or the symbol is unknown).
func (db *DB) ModuleDefining(fname string) (Module, bool) {
	id, ok := db.symbolMod[fname]
	if !ok {
		return Module{}, false
	}
	entry := db.modules[id]
	for _, fn := range entry.module.Funcs {
		if ids.Name(fn) == fname && len(fn.Blocks) > 0 {
			return entry.module, true
		}
	}
	return Module{}, false
}

// InsertPTG installs the points-to graph for fname. At most one per
// function name; re-insertion replaces, which is only meaningful during
// pre-analysis (spec.md §4.1).
func (db *DB) InsertPTG(fname string, g *ptg.Graph) {
	db.ptgs[fname] = g
}

// PTG returns the points-to graph for fname, or nil if none was installed.
func (db *DB) PTG(fname string) *ptg.Graph {
	return db.ptgs[fname]
}

// IsWPA reports whether LinkForWPA has succeeded.
func (db *DB) IsWPA() bool { return db.wpa }

// WPAModule returns the sole module after a successful LinkForWPA.
func (db *DB) WPAModule() (Module, bool) {
	if db.wpaModule == nil {
		return Module{}, false
	}
	return *db.wpaModule, true
}

// LinkForWPA reduces the database to a single synthetic module whose
// symbol table is the union of all inputs, spec.md §4.1. A symbol collision
// keeps the definition with the higher Linkage (Strong over Weak over
// External, the first one seen on a tie); two strong definitions of the same
// symbol is ErrLinkConflict. Deterministic: modules are walked in
// insertion order, so diagnostics always name the same pair of modules.
func (db *DB) LinkForWPA() error {
	known := func(pkgPath string) bool {
		for _, id := range db.order {
			if id == pkgPath {
				return true
			}
		}
		return false
	}

	type winner struct {
		fn      *ssa.Function
		linkage Linkage
		module  string
	}
	best := make(map[string]winner) // unqualified name -> current winner

	for _, id := range db.order {
		entry := db.modules[id]
		for _, fn := range entry.module.Funcs {
			name := ids.Name(fn)
			lk := linkageOf(fn, known)
			cur, exists := best[name]
			if !exists {
				best[name] = winner{fn, lk, id}
				continue
			}
			switch {
			case lk > cur.linkage:
				best[name] = winner{fn, lk, id}
			case lk == cur.linkage && lk == Strong && fn != cur.fn:
				return ErrLinkConflict.New(name, cur.module, id)
			}
		}
	}

	// Build the synthetic module: union of winning symbols, stable order.
	names := make([]string, 0, len(best))
	for name := range best {
		names = append(names, name)
	}
	sort.Strings(names)

	funcs := make([]*ssa.Function, 0, len(names))
	for _, name := range names {
		funcs = append(funcs, best[name].fn)
	}

	synthetic := &Module{ID: "wpa::linked", Funcs: funcs}
	db.wpaModule = synthetic
	db.wpa = true

	db.symbolMod = make(map[string]string, len(names))
	for _, name := range names {
		db.symbolMod[name] = synthetic.ID
	}
	db.modules = map[string]*moduleEntry{
		synthetic.ID: {module: *synthetic},
	}
	db.order = []string{synthetic.ID}
	return nil
}

// Verify runs a structural check over module and reports ok=false plus a
// debug-info note on failure. It never aborts the framework — the caller
// is expected to log at critical and continue (spec.md §4.1/§7).
//
// go/ssa has no separate verifier pass, so this is a structural proxy:
// every referrer of a value must belong to a block of the same function,
// and every named function with a body must carry a valid
// position (its absence is reported as broken debug info rather than a
// broken module, matching the distinction spec.md draws between the two).
func Verify(m Module) (ok bool, brokenDebugInfo bool) {
	ok = true
	for _, fn := range m.Funcs {
		if len(fn.Blocks) > 0 && !fn.Pos().IsValid() {
			brokenDebugInfo = true
		}
		for _, block := range fn.Blocks {
			for _, instr := range block.Instrs {
				val, isVal := instr.(ssa.Value)
				if !isVal {
					continue
				}
				refs := val.Referrers()
				if refs == nil {
					continue
				}
				for _, ref := range *refs {
					if ref.Block() == nil || ref.Parent() != fn {
						ok = false
					}
				}
			}
		}
	}
	return ok, brokenDebugInfo
}
