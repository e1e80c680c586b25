package irdb

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa/ssautil"
)

// loadOverlay builds a tiny multi-package go/ssa program from literal
// source strings, spec.md §8's documented test-loading mechanism: write
// a real go.mod anchor to disk, then hand every package's source to
// packages.Load through packages.Config.Overlay rather than real files.
func loadOverlay(t *testing.T, files map[string]string) []*packages.Package {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module testprog\n\ngo 1.21\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	overlay := make(map[string][]byte, len(files))
	for rel, src := range files {
		overlay[filepath.Join(dir, rel)] = []byte(src)
	}
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedDeps | packages.NeedTypes |
			packages.NeedSyntax | packages.NeedTypesInfo,
		Dir:     dir,
		Overlay: overlay,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		t.Fatalf("packages.Load: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatal("packages.Load returned no packages")
	}
	return pkgs
}

func TestAddModuleAndModuleDefining(t *testing.T) {
	pkgs := loadOverlay(t, map[string]string{
		"main.go": "package main\n\nfunc Foo() {}\n\nfunc main() { Foo() }\n",
	})
	_, ssaPkgs := ssautil.AllPackages(pkgs, 0)

	db := New()
	for i, pkg := range ssaPkgs {
		if pkg == nil {
			continue
		}
		pkg.Build()
		if err := db.AddModule(pkgs[i].PkgPath, pkg, Context{}); err != nil {
			t.Fatalf("AddModule: %v", err)
		}
	}

	if _, ok := db.ModuleDefining("Foo"); !ok {
		t.Error("ModuleDefining(\"Foo\"): want ok, got not found")
	}
	if _, ok := db.ModuleDefining("Bar"); ok {
		t.Error("ModuleDefining(\"Bar\"): want not found, got ok")
	}
}

func TestAddModuleDuplicateRejected(t *testing.T) {
	pkgs := loadOverlay(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})
	_, ssaPkgs := ssautil.AllPackages(pkgs, 0)

	db := New()
	pkg := ssaPkgs[0]
	pkg.Build()
	if err := db.AddModule("p", pkg, Context{}); err != nil {
		t.Fatalf("first AddModule: %v", err)
	}
	if err := db.AddModule("p", pkg, Context{}); err == nil {
		t.Fatal("second AddModule with same id: want ErrDuplicateModule, got nil")
	} else if !ErrDuplicateModule.Is(err) {
		t.Errorf("error = %v, want ErrDuplicateModule", err)
	}
}

func TestLinkForWPALinkConflict(t *testing.T) {
	pkgs := loadOverlay(t, map[string]string{
		"a/a.go": "package a\n\nfunc Shared() int { return 1 }\n",
		"b/b.go": "package b\n\nfunc Shared() int { return 2 }\n",
	})
	_, ssaPkgs := ssautil.AllPackages(pkgs, 0)

	db := New()
	for i, pkg := range ssaPkgs {
		if pkg == nil {
			continue
		}
		pkg.Build()
		if err := db.AddModule(pkgs[i].PkgPath, pkg, Context{}); err != nil {
			t.Fatalf("AddModule: %v", err)
		}
	}

	err := db.LinkForWPA()
	if err == nil {
		t.Fatal("LinkForWPA with two strong definitions of Shared: want ErrLinkConflict, got nil")
	}
	if !ErrLinkConflict.Is(err) {
		t.Errorf("error = %v, want ErrLinkConflict", err)
	}
}

func TestLinkForWPASucceedsWithDistinctSymbols(t *testing.T) {
	pkgs := loadOverlay(t, map[string]string{
		"a/a.go": "package a\n\nfunc FromA() int { return 1 }\n",
		"b/b.go": "package b\n\nfunc FromB() int { return 2 }\n",
	})
	_, ssaPkgs := ssautil.AllPackages(pkgs, 0)

	db := New()
	for i, pkg := range ssaPkgs {
		if pkg == nil {
			continue
		}
		pkg.Build()
		if err := db.AddModule(pkgs[i].PkgPath, pkg, Context{}); err != nil {
			t.Fatalf("AddModule: %v", err)
		}
	}

	if err := db.LinkForWPA(); err != nil {
		t.Fatalf("LinkForWPA: %v", err)
	}
	if !db.IsWPA() {
		t.Fatal("IsWPA() = false after successful LinkForWPA")
	}
	mod, ok := db.WPAModule()
	if !ok {
		t.Fatal("WPAModule() ok = false after successful LinkForWPA")
	}
	if len(mod.Funcs) == 0 {
		t.Error("linked WPA module has no functions")
	}
}
