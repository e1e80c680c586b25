package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"goflow/internal/ids"
)

const branchSrc = `package main

func classify(x int) string {
	if x > 0 {
		return "pos"
	}
	return "nonpos"
}

func main() {
	_ = classify(1)
}
`

func loadFunc(t *testing.T, name string) *ssa.Function {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module testprog\n\ngo 1.21\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	overlay := map[string][]byte{filepath.Join(dir, "main.go"): []byte(branchSrc)}
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
	prog, ssaPkgs := ssautil.AllPackages(pkgs, 0)
	prog.Build()

	fn := ssaPkgs[0].Func(name)
	if fn == nil {
		t.Fatalf("no function %q in loaded package", name)
	}
	return fn
}

func TestBuildIndexesEveryBlock(t *testing.T) {
	fn := loadFunc(t, "classify")
	g := Build(fn)

	for i := range fn.Blocks {
		if _, ok := g.Block(ids.Block(fn, i)); !ok {
			t.Errorf("block %d not indexed under its stable id", i)
		}
	}
}

func TestEntryIsFirstBlock(t *testing.T) {
	fn := loadFunc(t, "classify")
	g := Build(fn)

	if g.Entry() != fn.Blocks[0] {
		t.Error("Entry() did not return fn.Blocks[0]")
	}
}

func TestIsBranchOnConditional(t *testing.T) {
	fn := loadFunc(t, "classify")
	g := Build(fn)

	var sawBranch bool
	for _, b := range g.Func.Blocks {
		if IsBranch(b) {
			sawBranch = true
			if len(Successors(b)) != 2 {
				t.Errorf("IsBranch true but Successors returned %d blocks, want 2", len(Successors(b)))
			}
		}
	}
	if !sawBranch {
		t.Error("classify's if/else lowering produced no two-successor block")
	}
}

func TestExitsHaveNoSuccessors(t *testing.T) {
	fn := loadFunc(t, "classify")
	g := Build(fn)

	exits := g.Exits()
	if len(exits) == 0 {
		t.Fatal("no exit blocks found")
	}
	for _, b := range exits {
		if len(Successors(b)) != 0 {
			t.Errorf("exit block has %d successors, want 0", len(Successors(b)))
		}
	}
}
