package steens

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"goflow/internal/ids"
)

const src = `package main

type box struct{ v int }

func set(b *box, n int) {
	b.v = n
}

func main() {
	b := &box{}
	set(b, 1)
	_ = b
}
`

func loadFunc(t *testing.T, name string) *ssa.Function {
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
	prog, ssaPkgs := ssautil.AllPackages(pkgs, 0)
	prog.Build()

	fn := ssaPkgs[0].Func(name)
	if fn == nil {
		t.Fatalf("no function %q in loaded package", name)
	}
	return fn
}

func TestRunUnifiesCallArgumentWithParameter(t *testing.T) {
	mainFn := loadFunc(t, "main")
	setFn := loadFunc(t, "set")

	o := New()
	o.Run(mainFn)
	o.Run(setFn)

	if len(setFn.Params) == 0 {
		t.Fatal("set has no parameters")
	}
	paramClass, ok := o.Class(ids.Value(setFn.Params[0]))
	if !ok {
		t.Fatal("set's first parameter was never seen by the oracle")
	}

	var argClass string
	var foundArg bool
	for _, block := range mainFn.Blocks {
		for _, instr := range block.Instrs {
			if call, ok := instr.(*ssa.Call); ok && len(call.Call.Args) > 0 {
				if c, ok := o.Class(ids.Value(call.Call.Args[0])); ok {
					argClass = c
					foundArg = true
				}
			}
		}
	}
	if !foundArg {
		t.Fatal("no call argument observed in main")
	}
	if argClass != paramClass {
		t.Errorf("call argument class %q != parameter class %q, want the same partition", argClass, paramClass)
	}
}

func TestClassUnseenValueNotOK(t *testing.T) {
	o := New()
	if _, ok := o.Class("never-seen"); ok {
		t.Error("Class of a never-seen id: want ok=false")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	fn := loadFunc(t, "set")

	o := New()
	o.Run(fn)
	first := make(map[string]string)
	for _, p := range fn.Params {
		if c, ok := o.Class(ids.Value(p)); ok {
			first[ids.Value(p)] = c
		}
	}

	o.Run(fn)
	for id, class := range first {
		second, ok := o.Class(id)
		if !ok || second != class {
			t.Errorf("class of %q changed across a second Run: %q -> %q", id, class, second)
		}
	}
}
