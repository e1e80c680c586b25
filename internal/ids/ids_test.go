package ids

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const src = `package main

func callee(x int) int {
	y := x + 1
	return y
}

func main() {
	_ = callee(1)
}
`

func loadSSA(t *testing.T) (*ssa.Package, *ssa.Function) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module testprog\n\ngo 1.21\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	overlay := map[string][]byte{filepath.Join(dir, "main.go"): []byte(src)}
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
	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.NaiveForm)
	prog.Build()

	pkg := ssaPkgs[0]
	fn := pkg.Func("main")
	if fn == nil {
		t.Fatal("no main function in loaded package")
	}
	return pkg, fn
}

func TestFuncIDStableAcrossCalls(t *testing.T) {
	_, fn := loadSSA(t)
	if Func(fn) != Func(fn) {
		t.Error("Func is not stable across repeated calls on the same *ssa.Function")
	}
	if Func(fn) == "" {
		t.Error("Func returned empty id")
	}
}

func TestInstrIDsDistinctWithinFunction(t *testing.T) {
	_, fn := loadSSA(t)
	seen := make(map[string]bool)
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			id := Instr(instr)
			if seen[id] {
				t.Errorf("duplicate instruction id %q within %s", id, fn.Name())
			}
			seen[id] = true
		}
	}
	if len(seen) == 0 {
		t.Fatal("no instructions found in main")
	}
}

func TestValueIDOfParameterDiffersFromInstruction(t *testing.T) {
	pkg, _ := loadSSA(t)
	callee := pkg.Func("callee")
	if callee == nil {
		t.Fatal("no callee function in loaded package")
	}
	if len(callee.Params) == 0 {
		t.Fatal("callee has no parameters")
	}
	paramID := Value(callee.Params[0])
	if paramID == "" {
		t.Error("Value returned empty id for a parameter")
	}
	for _, b := range callee.Blocks {
		for _, instr := range b.Instrs {
			if v, ok := instr.(ssa.Value); ok {
				if Value(v) == paramID {
					t.Errorf("instruction %v shares an id with a distinct parameter", instr)
				}
			}
		}
	}
}

func TestNameIsCoarserThanFunc(t *testing.T) {
	_, fn := loadSSA(t)
	if Name(fn) != fn.Name() {
		t.Errorf("Name(fn) = %q, want %q", Name(fn), fn.Name())
	}
	if Name(fn) == Func(fn) {
		t.Error("Name should be package-unqualified while Func is package-qualified")
	}
}
