// Package controller implements the framework's dispatcher (spec.md
// §4.6): it drives a run configuration through pre-analysis, ICFG
// construction (and, in module-wise mode, merge), and the sequential
// analysis list, in the phased style the teacher's run (main.go) drives
// its own numbered phases through one function.
package controller

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/go/ssa"
	errors "gopkg.in/src-d/go-errors.v1"

	"goflow/internal/ch"
	icfgcfg "goflow/internal/cfg"
	"goflow/internal/config"
	"goflow/internal/diag"
	"goflow/internal/icfg"
	"goflow/internal/irdb"
	"goflow/internal/loader"
	"goflow/internal/prean"
	"goflow/internal/problem"
	"goflow/internal/result"
	"goflow/internal/solver"
)

// State is the controller's explicit progress marker, spec.md §4.6's
// "Controller State" — surfaced to callers through Report.FinalState so
// a partial run's stopping point is never ambiguous.
type State int

const (
	Init State = iota
	PreAnalyzed
	ICFGBuilt     // WPA mode only
	PerModICFGs   // MW mode only, before merge
	Merged        // MW mode only, after merge
	Solving
	Done
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case PreAnalyzed:
		return "pre_analyzed"
	case ICFGBuilt:
		return "icfg_built"
	case PerModICFGs:
		return "per_mod_icfgs"
	case Merged:
		return "merged"
	case Solving:
		return "solving"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// ErrMWUnsupported is returned when a module-wise run names any analysis
// other than "none". spec.md's Open Question on module-wise scope
// resolves against the original implementation, whose module-wise switch
// arm is commented out for every real analysis and only ever merges and
// exports diagnostics (SPEC_FULL.md §9) — so module-wise here is a
// construct-and-merge-and-export mode, not a second solver path.
var ErrMWUnsupported = errors.NewKind("module-wise mode supports only the %q analysis, got %q")

// AnalysisOutcome is one analysis's result within a Report.
type AnalysisOutcome struct {
	Name     string
	Document result.Document
	Err      error
}

// Report is Run's complete output: the final state reached and every
// analysis's outcome, in configured order.
type Report struct {
	FinalState State
	Hierarchy  *ch.Hierarchy
	Graph      *icfg.Graph
	Outcomes   []AnalysisOutcome
}

// Run drives cfg through the full pipeline, spec.md §4.6's load →
// pre-analyze → build/merge ICFG → solve sequence, logging through log.
// It validates cfg against registry first (rejecting UnknownAnalysis
// before any loading work begins, spec.md §8 scenario 5) and resolves
// the entry points once the program is loaded.
func Run(cfg config.Run, registry *problem.Registry, log *diag.Logger) (*Report, error) {
	if err := cfg.Validate(registry); err != nil {
		return nil, err
	}
	if cfg.Mode == config.MW {
		for _, name := range cfg.Analyses {
			if name != "none" {
				return nil, ErrMWUnsupported.New("none", name)
			}
		}
	}

	report := &Report{FinalState: Init}

	log.Info("loading %v", cfg.Patterns)
	loaded, err := loader.Load(loader.Options{
		Dir:           cfg.Dir,
		SkipTests:     true,
		SkipGenerated: true,
		Mem2Reg:       cfg.Mem2Reg,
	}, cfg.Patterns...)
	if err != nil {
		return report, fmt.Errorf("load: %w", err)
	}

	entries, err := config.ResolveEntryPoints(loaded.Prog, cfg.EntryPoints)
	if err != nil {
		return report, err
	}

	db, err := loader.BuildIRDB(loaded)
	if err != nil {
		return report, fmt.Errorf("build irdb: %w", err)
	}

	log.Info("pre-analyzing %d modules", len(db.Modules()))
	for _, mod := range db.Modules() {
		prean.Run(db, mod)
		ok, brokenDebugInfo := irdb.Verify(mod)
		if !ok {
			log.Critical("module %q failed verification", mod.ID)
		}
		if brokenDebugInfo {
			log.Warning("module %q has broken debug info", mod.ID)
		}
	}
	report.FinalState = PreAnalyzed

	hierarchy := ch.Build(loaded.Packages)
	report.Hierarchy = hierarchy

	graph, err := buildGraph(cfg, db, hierarchy, entries, report, log)
	if err != nil {
		return report, err
	}
	report.Graph = graph

	report.FinalState = Solving
	for _, name := range cfg.Analyses {
		outcome := runOne(graph, entries, registry, name, cfg.CallStringDepth, log)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Err == nil {
			if err := writeOutputs(cfg, outcome.Document, graph, log); err != nil {
				log.Warning("writing outputs for %q: %v", name, err)
			}
		}
	}
	report.FinalState = Done

	if err := writeDiagnostics(cfg, hierarchy, graph, log); err != nil {
		log.Warning("writing diagnostics: %v", err)
	}

	return report, nil
}

// buildGraph constructs the run's ICFG, branching on cfg.Mode exactly as
// spec.md §4.6 describes: WPA links the IRDB to one module first, MW
// builds one ICFG per module and merges them (spec.md §4.5's
// Merge(Hg1, Hg2) commutative composition).
func buildGraph(cfg config.Run, db *irdb.DB, hierarchy *ch.Hierarchy, entries []*ssa.Function, report *Report, log *diag.Logger) (*icfg.Graph, error) {
	if cfg.Mode == config.WPA {
		if err := db.LinkForWPA(); err != nil {
			return nil, fmt.Errorf("link for wpa: %w", err)
		}
		wpaMod, _ := db.WPAModule()
		log.Info("building whole-program ICFG over %d functions", len(wpaMod.Funcs))
		g := icfg.Build(hierarchy, db, cfg.Walker, cfg.Resolve, entries)
		report.FinalState = ICFGBuilt
		return g, nil
	}

	log.Info("building %d per-module ICFGs", len(db.Modules()))
	var merged *icfg.Graph
	for _, mod := range db.Modules() {
		modDB := irdb.New()
		if err := modDB.AddModule(mod.ID, mod.Pkg, irdb.Context{}); err != nil {
			return nil, err
		}
		g := icfg.Build(hierarchy, modDB, cfg.Walker, cfg.Resolve, entries)
		if err := writePerModuleICFGDOT(cfg, mod, g, log); err != nil {
			log.Warning("writing per-module ICFG diagnostic for %q: %v", mod.ID, err)
		}
		if merged == nil {
			merged = g
		} else {
			merged.Merge(g)
		}
	}
	if merged == nil {
		merged = icfg.Build(hierarchy, db, cfg.Walker, cfg.Resolve, entries)
	}
	report.FinalState = PerModICFGs
	report.FinalState = Merged
	return merged, nil
}

// writePerModuleICFGDOT emits a module's pre-merge ICFG as
// icfg_<function>.dot, spec.md §6/§8 scenario 1's MW-mode diagnostic:
// one file per module, named after the first function in the module
// with a body, since every module in the scenario that motivates this
// naming scheme defines exactly one function of interest.
func writePerModuleICFGDOT(cfg config.Run, mod irdb.Module, g *icfg.Graph, log *diag.Logger) error {
	if cfg.OutputDir == "" {
		return nil
	}
	var name string
	for _, fn := range mod.Funcs {
		if len(fn.Blocks) > 0 {
			name = fn.Name()
			break
		}
	}
	if name == "" {
		return nil
	}
	f, err := os.Create(filepath.Join(cfg.OutputDir, fmt.Sprintf("icfg_%s.dot", name)))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return result.WriteICFGDOT(f, g)
}

// runOne instantiates and solves a single registered analysis, dispatching
// on its Kind tag (spec.md §9's capability-based polymorphism).
func runOne(g *icfg.Graph, entries []*ssa.Function, registry *problem.Registry, name string, callStringDepth int, log *diag.Logger) AnalysisOutcome {
	entry, err := registry.Lookup(name)
	if err != nil {
		return AnalysisOutcome{Name: name, Err: err}
	}
	log.Info("running %q", name)
	cancel := solver.NewCancelToken()

	switch entry.Kind {
	case problem.KindIFDS:
		p := entry.Factory().(problem.IFDS)
		res := solver.RunIFDS(g, p, entries, cancel)
		return AnalysisOutcome{Name: name, Document: result.FromIFDS(g, name, res)}
	case problem.KindIDE:
		p := entry.Factory().(problem.IDE)
		res := solver.RunIDE(g, p, entries, cancel)
		return AnalysisOutcome{Name: name, Document: result.FromIDE(g, name, res)}
	case problem.KindIntraMonotone:
		p := entry.Factory().(problem.IntraMonotone)
		doc := result.Document{Analysis: name}
		for _, fn := range entries {
			cfgGraph := icfgcfg.Build(fn)
			r := solver.RunIntraMonotone(cfgGraph, p, cancel)
			doc.Results = append(doc.Results, result.FromIntraMonotone(name, r).Results...)
		}
		return AnalysisOutcome{Name: name, Document: doc}
	case problem.KindInterMonotone:
		p := entry.Factory().(problem.InterMonotone)
		r := solver.RunInterMonotone(g, p, entries, callStringDepth, cancel)
		return AnalysisOutcome{Name: name, Document: result.FromInterMonotone(g, name, r)}
	case problem.KindNone:
		return AnalysisOutcome{Name: name, Document: result.Document{Analysis: name}}
	default:
		return AnalysisOutcome{Name: name, Err: fmt.Errorf("unhandled analysis kind %v", entry.Kind)}
	}
}

func writeOutputs(cfg config.Run, doc result.Document, g *icfg.Graph, log *diag.Logger) error {
	if cfg.OutputDir == "" {
		return nil
	}
	path := filepath.Join(cfg.OutputDir, doc.Analysis+".json")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := result.WriteJSON(f, doc); err != nil {
		return err
	}
	if cfg.SQLitePath != "" {
		return result.WriteSQLite(cfg.SQLitePath, g, doc, log)
	}
	return nil
}

func writeDiagnostics(cfg config.Run, hierarchy *ch.Hierarchy, g *icfg.Graph, log *diag.Logger) error {
	if cfg.OutputDir == "" {
		return nil
	}
	chPath := filepath.Join(cfg.OutputDir, "class_hierarchy.dot")
	chFile, err := os.Create(chPath)
	if err != nil {
		return err
	}
	defer func() { _ = chFile.Close() }()
	if err := result.WriteHierarchyDOT(chFile, hierarchy); err != nil {
		return err
	}

	icfgName := "interproc_cfg.dot"
	if cfg.Mode == config.MW {
		icfgName = "icfg_after_merge.dot"
	}
	icfgFile, err := os.Create(filepath.Join(cfg.OutputDir, icfgName))
	if err != nil {
		return err
	}
	defer func() { _ = icfgFile.Close() }()
	return result.WriteICFGDOT(icfgFile, g)
}
