package controller

import (
	"os"
	"path/filepath"
	"testing"

	"goflow/internal/config"
	"goflow/internal/diag"
	"goflow/internal/problem"
)

// writeTestProgram writes a real go.mod and main.go to a temp directory:
// controller.Run drives loader.Load with cfg.Dir/cfg.Patterns rather
// than an overlay, so this package's tests need actual files on disk.
func writeTestProgram(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module testprog\n\ngo 1.21\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write main.go: %v", err)
	}
	return dir
}

const controllerTestSrc = `package main

func callee() int { return 42 }

func main() {
	_ = callee()
}
`

// TestRunRejectsUnknownAnalysisBeforeLoading covers spec.md §8 scenario
// 5: an unrecognized analysis name is rejected by Validate before any
// loading work begins, so FinalState never advances past Init.
func TestRunRejectsUnknownAnalysisBeforeLoading(t *testing.T) {
	cfg := config.Default()
	cfg.Dir = writeTestProgram(t, controllerTestSrc)
	cfg.Analyses = []string{"not_a_real_analysis"}

	report, err := Run(cfg, problem.Default(), diag.New(false))
	if err == nil {
		t.Fatal("Run with unknown analysis: want error, got nil")
	}
	if !problem.ErrUnknownAnalysis.Is(err) {
		t.Errorf("error = %v, want ErrUnknownAnalysis", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil on a rejection before any work begins", report)
	}
}

func TestRunWPASucceedsWithNoneAnalysis(t *testing.T) {
	cfg := config.Default()
	cfg.Dir = writeTestProgram(t, controllerTestSrc)
	cfg.Analyses = []string{"none"}
	cfg.OutputDir = t.TempDir()

	report, err := Run(cfg, problem.Default(), diag.New(false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.FinalState != Done {
		t.Errorf("FinalState = %v, want Done", report.FinalState)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Err != nil {
		t.Errorf("Outcomes = %+v, want one successful outcome", report.Outcomes)
	}
	if report.Graph == nil {
		t.Error("Graph = nil, want the built whole-program ICFG")
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "class_hierarchy.dot")); err != nil {
		t.Errorf("class_hierarchy.dot not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "interproc_cfg.dot")); err != nil {
		t.Errorf("interproc_cfg.dot not written: %v", err)
	}
}

func TestRunWPASucceedsWithIFDSAnalysis(t *testing.T) {
	cfg := config.Default()
	cfg.Dir = writeTestProgram(t, controllerTestSrc)
	cfg.Analyses = []string{"ifds_uninit"}
	cfg.OutputDir = t.TempDir()

	report, err := Run(cfg, problem.Default(), diag.New(false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.FinalState != Done {
		t.Errorf("FinalState = %v, want Done", report.FinalState)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "ifds_uninit.json")); err != nil {
		t.Errorf("ifds_uninit.json not written: %v", err)
	}
}

// TestRunMWRejectsNonNoneAnalysis covers the module-wise restriction:
// any analysis other than "none" is rejected before loading starts.
func TestRunMWRejectsNonNoneAnalysis(t *testing.T) {
	cfg := config.Default()
	cfg.Dir = writeTestProgram(t, controllerTestSrc)
	cfg.Mode = config.MW
	cfg.Analyses = []string{"ifds_uninit"}

	_, err := Run(cfg, problem.Default(), diag.New(false))
	if err == nil {
		t.Fatal("Run in MW mode with a non-none analysis: want error, got nil")
	}
	if !ErrMWUnsupported.Is(err) {
		t.Errorf("error = %v, want ErrMWUnsupported", err)
	}
}

func TestRunMWSucceedsWithNoneAnalysis(t *testing.T) {
	cfg := config.Default()
	cfg.Dir = writeTestProgram(t, controllerTestSrc)
	cfg.Mode = config.MW
	cfg.Analyses = []string{"none"}
	cfg.OutputDir = t.TempDir()

	report, err := Run(cfg, problem.Default(), diag.New(false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.FinalState != Done {
		t.Errorf("FinalState = %v, want Done", report.FinalState)
	}
	if report.Graph == nil {
		t.Error("Graph = nil, want the merged per-module ICFG")
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "icfg_after_merge.dot")); err != nil {
		t.Errorf("icfg_after_merge.dot not written: %v", err)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var sawPerModuleDiagnostic bool
	for _, e := range entries {
		if e.Name() != "icfg_after_merge.dot" && filepath.Ext(e.Name()) == ".dot" {
			sawPerModuleDiagnostic = true
		}
	}
	if !sawPerModuleDiagnostic {
		t.Error("no per-module icfg_<function>.dot diagnostic written")
	}
}
