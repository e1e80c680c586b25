// Command dataflow is the framework's CLI entry point, spec.md §6: it
// parses a run configuration from flags, drives the controller, and maps
// its outcome onto the documented exit codes. Styled after the teacher's
// own main.go: a thin main that calls run, keeping every defer reachable
// even on an error return.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"goflow/internal/config"
	"goflow/internal/controller"
	"goflow/internal/diag"
	"goflow/internal/icfg"
	"goflow/internal/problem"
)

// Exit codes, spec.md §6.
const (
	exitOK                = 0
	exitConfigError       = 2
	exitPreAnalysisFailed = 3
	exitSolverPrecondition = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	registry := problem.Default()

	analysesFlag := flag.String("analyses", "none", "comma-separated analysis names to run in sequence")
	modeFlag := flag.String("mode", "wpa", `"wpa" or "mw"`)
	entryFlag := flag.String("entry", "main", "comma-separated entry-point function names")
	walkerFlag := flag.String("walker", "pointer", `call-graph strategy: "cha", "rta", or "pointer"`)
	resolveFlag := flag.String("resolve", "declared", `call resolution: "declared" or "otf"`)
	depthFlag := flag.Int("call-string-depth", 1, "k-CFA call-string depth for mono_inter analyses")
	mem2regFlag := flag.Bool("mem2reg", true, "promote local variables to SSA registers")
	outDirFlag := flag.String("out", ".", "directory for JSON and DOT output")
	sqliteFlag := flag.String("sqlite", "", "optional path to write a results SQLite database")
	verboseFlag := flag.Bool("verbose", false, "enable trace-level logging")
	dirFlag := flag.String("dir", ".", "working directory to resolve package patterns from")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dataflow [flags] <package-pattern>...\n\n")
		fmt.Fprintf(os.Stderr, "Runs data-flow and monotone-framework analyses over a Go program's IR.\n\n")
		fmt.Fprintf(os.Stderr, "Registered analyses: %s\n\n", strings.Join(registry.Names(), ", "))
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	patterns := flag.Args()
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	log := diag.New(*verboseFlag)

	cfg := config.Default()
	cfg.Analyses = splitNonEmpty(*analysesFlag)
	cfg.EntryPoints = splitNonEmpty(*entryFlag)
	cfg.Mem2Reg = *mem2regFlag
	cfg.CallStringDepth = *depthFlag
	cfg.OutputDir = *outDirFlag
	cfg.SQLitePath = *sqliteFlag
	cfg.Verbose = *verboseFlag
	cfg.Patterns = patterns
	cfg.Dir = *dirFlag

	if *modeFlag == "mw" {
		cfg.Mode = config.MW
	} else if *modeFlag != "wpa" {
		fmt.Fprintf(os.Stderr, "error: unknown mode %q (want \"wpa\" or \"mw\")\n", *modeFlag)
		return exitConfigError
	}

	switch *walkerFlag {
	case "cha":
		cfg.Walker = icfg.CHA
	case "rta":
		cfg.Walker = icfg.RTA
	case "pointer":
		cfg.Walker = icfg.Pointer
	default:
		fmt.Fprintf(os.Stderr, "error: unknown walker %q (want \"cha\", \"rta\", or \"pointer\")\n", *walkerFlag)
		return exitConfigError
	}

	switch *resolveFlag {
	case "declared":
		cfg.Resolve = icfg.Declared
	case "otf":
		cfg.Resolve = icfg.OTF
	default:
		fmt.Fprintf(os.Stderr, "error: unknown resolve strategy %q (want \"declared\" or \"otf\")\n", *resolveFlag)
		return exitConfigError
	}

	if err := cfg.Validate(registry); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitConfigError
	}

	report, err := controller.Run(cfg, registry, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if report == nil || report.FinalState <= controller.Init {
			return exitConfigError
		}
		if report.FinalState < controller.Solving {
			return exitPreAnalysisFailed
		}
		return exitSolverPrecondition
	}

	for _, outcome := range report.Outcomes {
		if outcome.Err != nil {
			fmt.Fprintf(os.Stderr, "analysis %q failed: %v\n", outcome.Name, outcome.Err)
			return exitSolverPrecondition
		}
	}

	log.Info("done in %s, final state %s", log.Elapsed(), report.FinalState)
	return exitOK
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
