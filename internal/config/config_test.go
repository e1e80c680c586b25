package config

import (
	"testing"

	"goflow/internal/problem"
)

func TestDefaultRun(t *testing.T) {
	r := Default()
	if len(r.EntryPoints) != 1 || r.EntryPoints[0] != "main" {
		t.Errorf("EntryPoints = %v, want [main]", r.EntryPoints)
	}
	if r.Mode != WPA {
		t.Errorf("Mode = %v, want WPA", r.Mode)
	}
	if r.CallStringDepth != 1 {
		t.Errorf("CallStringDepth = %d, want 1", r.CallStringDepth)
	}
}

func TestModeString(t *testing.T) {
	if WPA.String() != "wpa" {
		t.Errorf("WPA.String() = %q, want wpa", WPA.String())
	}
	if MW.String() != "mw" {
		t.Errorf("MW.String() = %q, want mw", MW.String())
	}
}

func TestValidateRejectsUnknownAnalysis(t *testing.T) {
	r := Default()
	r.Analyses = []string{"not_a_real_analysis"}
	if err := r.Validate(problem.Default()); err == nil {
		t.Fatal("Validate with unknown analysis name: want error, got nil")
	}
}

func TestValidateAcceptsRegisteredAnalyses(t *testing.T) {
	r := Default()
	r.Analyses = []string{"ifds_uninit", "none"}
	if err := r.Validate(problem.Default()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateEmptyAnalysesOK(t *testing.T) {
	r := Default()
	if err := r.Validate(problem.Default()); err != nil {
		t.Fatalf("Validate with no analyses configured: %v", err)
	}
}
