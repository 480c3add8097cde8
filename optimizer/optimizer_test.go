package optimizer

import (
	"testing"

	"github.com/lookbusy1344/pascal-compiler/ir"
	"github.com/lookbusy1344/pascal-compiler/parser"
	"github.com/lookbusy1344/pascal-compiler/semantic"
)

func compileIR(t *testing.T, src string) []ir.Instruction {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := semantic.Analyze(prog); err != nil {
		t.Fatalf("semantic error: %v", err)
	}
	instrs, err := ir.Generate(prog)
	if err != nil {
		t.Fatalf("ir error: %v", err)
	}
	return instrs
}

// resolveTemp maps a temporary operand to the constant its LoadConst
// defined. Folding rewrites the defining BinOp into a LoadConst of the
// same temporary; later uses keep naming the temporary.
func resolveTemp(consts map[string]ir.Operand, op ir.Operand) ir.Operand {
	if op.Kind == ir.OperandTemp {
		if v, ok := consts[op.Name]; ok {
			return v
		}
	}
	return op
}

func TestConstantFoldingCollapsesArithmeticChain(t *testing.T) {
	instrs := compileIR(t, "VAR x : INTEGER; BEGIN x := 1 + 2 * 3 END.")
	optimized := Optimize(instrs, 0)
	consts := make(map[string]ir.Operand)
	var binOps int
	var foundStore bool
	for _, i := range optimized {
		if _, ok := i.(ir.BinOp); ok {
			binOps++
		}
		if lc, ok := i.(ir.LoadConst); ok {
			consts[lc.Dest.Name] = lc.Value
		}
		if sv, ok := i.(ir.StoreVar); ok && sv.Dest.Name == "x" {
			src := resolveTemp(consts, sv.Src)
			if src.Kind != ir.OperandConst || src.IntValue != 7 {
				t.Fatalf("expected x := 7 after folding, got %#v", src)
			}
			foundStore = true
		}
	}
	if binOps != 0 {
		t.Fatalf("expected all BinOps to fold away, got %d remaining", binOps)
	}
	if !foundStore {
		t.Fatal("expected a StoreVar for x")
	}
}

func TestDivisionByZeroIsNotFolded(t *testing.T) {
	instrs := compileIR(t, "VAR x : INTEGER; BEGIN x := 1 DIV 0 END.")
	optimized := Optimize(instrs, 0)
	var sawBinOp bool
	for _, i := range optimized {
		if b, ok := i.(ir.BinOp); ok && b.Op == "DIV" {
			sawBinOp = true
		}
	}
	if !sawBinOp {
		t.Fatal("expected DIV-by-zero to survive optimization unfolded")
	}
}

func TestDivFoldingRoundsTowardNegativeInfinity(t *testing.T) {
	instrs := compileIR(t, "VAR x : INTEGER; BEGIN x := -7 DIV 2 END.")
	optimized := Optimize(instrs, 0)
	consts := make(map[string]ir.Operand)
	var foundStore bool
	for _, i := range optimized {
		if lc, ok := i.(ir.LoadConst); ok {
			consts[lc.Dest.Name] = lc.Value
		}
		if sv, ok := i.(ir.StoreVar); ok && sv.Dest.Name == "x" {
			src := resolveTemp(consts, sv.Src)
			if src.Kind != ir.OperandConst || src.IntValue != -4 {
				t.Fatalf("expected x := -4 after folding, got %#v", src)
			}
			foundStore = true
		}
	}
	if !foundStore {
		t.Fatal("expected a StoreVar for x")
	}
}

func TestDeadCodeAfterUnconditionalJumpIsRemoved(t *testing.T) {
	instrs := []ir.Instruction{
		ir.Label{Name: "__main_start"},
		ir.Jump{Target: "L0"},
		ir.Write{Value: ir.IntConst(999)}, // unreachable
		ir.Label{Name: "L0"},
		ir.Write{Value: ir.IntConst(1)},
	}
	optimized := Optimize(instrs, 0)
	for _, i := range optimized {
		if w, ok := i.(ir.Write); ok && w.Value.IntValue == 999 {
			t.Fatal("expected unreachable WRITE to be eliminated")
		}
	}
}

func TestNoOpsAreStripped(t *testing.T) {
	instrs := []ir.Instruction{
		ir.Label{Name: "__main_start"},
		ir.NoOp{},
		ir.Write{Value: ir.IntConst(1)},
	}
	optimized := Optimize(instrs, 0)
	for _, i := range optimized {
		if _, ok := i.(ir.NoOp); ok {
			t.Fatal("expected NoOp instructions to be stripped")
		}
	}
}

func TestStringConcatenationFolds(t *testing.T) {
	instrs := compileIR(t, "BEGIN WRITE('foo' + 'bar') END.")
	optimized := Optimize(instrs, 0)
	consts := make(map[string]ir.Operand)
	var found bool
	for _, i := range optimized {
		if lc, ok := i.(ir.LoadConst); ok {
			consts[lc.Dest.Name] = lc.Value
		}
		if w, ok := i.(ir.Write); ok {
			v := resolveTemp(consts, w.Value)
			if v.Kind == ir.OperandConst && v.StrValue == "foobar" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected string concatenation of two literals to fold to \"foobar\"")
	}
}

func TestFixedPointConvergesWithinDefaultPasses(t *testing.T) {
	instrs := compileIR(t, "VAR x : INTEGER; BEGIN x := ((1 + 1) * (2 + 2)) - (3 * 1) END.")
	optimized := Optimize(instrs, 0)
	for _, i := range optimized {
		if _, ok := i.(ir.BinOp); ok {
			t.Fatalf("expected full constant folding to converge, found leftover BinOp %#v", i)
		}
	}
}

func TestRealArithmeticFolds(t *testing.T) {
	instrs := compileIR(t, "VAR x : REAL; BEGIN x := 1.5 + 2.5 END.")
	optimized := Optimize(instrs, 0)
	consts := make(map[string]ir.Operand)
	var found bool
	for _, i := range optimized {
		if lc, ok := i.(ir.LoadConst); ok {
			consts[lc.Dest.Name] = lc.Value
		}
		if sv, ok := i.(ir.StoreVar); ok && sv.Dest.Name == "x" {
			src := resolveTemp(consts, sv.Src)
			if src.Kind == ir.OperandConst && src.RealValue == 4.0 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected 1.5 + 2.5 to fold to the real constant 4.0")
	}
}
