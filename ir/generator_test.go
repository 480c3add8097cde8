package ir

import (
	"testing"

	"github.com/lookbusy1344/pascal-compiler/ast"
	"github.com/lookbusy1344/pascal-compiler/parser"
	"github.com/lookbusy1344/pascal-compiler/semantic"
)

func generate(t *testing.T, src string) []Instruction {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := semantic.Analyze(prog); err != nil {
		t.Fatalf("semantic error: %v", err)
	}
	instrs, err := Generate(prog)
	if err != nil {
		t.Fatalf("ir generation error: %v", err)
	}
	return instrs
}

func hasMainStart(instrs []Instruction) bool {
	for _, i := range instrs {
		if l, ok := i.(Label); ok && l.Name == "__main_start" {
			return true
		}
	}
	return false
}

func TestMainStartLabelAlwaysPresent(t *testing.T) {
	instrs := generate(t, "BEGIN END.")
	if !hasMainStart(instrs) {
		t.Fatal("expected a __main_start label")
	}
}

func TestAssignConstantFoldsToLoadOfConstOperand(t *testing.T) {
	instrs := generate(t, "VAR x : INTEGER; BEGIN x := 42 END.")
	var found bool
	for _, i := range instrs {
		if sv, ok := i.(StoreVar); ok && sv.Dest.Name == "x" {
			if sv.Src.Kind != OperandConst || sv.Src.IntValue != 42 {
				t.Fatalf("expected store of constant 42, got %#v", sv.Src)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected a StoreVar for x")
	}
}

func TestIntegerToRealPromotionEmitsConversion(t *testing.T) {
	instrs := generate(t, "VAR x : REAL; y : INTEGER; BEGIN x := y END.")
	var sawConversion bool
	for _, i := range instrs {
		if u, ok := i.(UnaryOp); ok && u.Op == "TO_REAL" {
			sawConversion = true
		}
	}
	if !sawConversion {
		t.Fatal("expected a TO_REAL conversion for the INTEGER->REAL assignment")
	}
}

func TestWhileLoopProducesBackwardJump(t *testing.T) {
	instrs := generate(t, "VAR x : INTEGER; BEGIN x := 0; WHILE x < 10 DO x := x + 1 END.")
	var labels, jumps int
	for _, i := range instrs {
		switch i.(type) {
		case Label:
			labels++
		case Jump:
			jumps++
		}
	}
	if labels < 2 || jumps < 1 {
		t.Fatalf("expected at least 2 labels and 1 jump for a while loop, got %d labels, %d jumps", labels, jumps)
	}
}

func TestIfWithoutElseHasOneBranchLabel(t *testing.T) {
	instrs := generate(t, "VAR x : INTEGER; BEGIN IF x > 0 THEN x := 1 END.")
	var condJumps, branchLabels int
	for _, i := range instrs {
		if _, ok := i.(CondJump); ok {
			condJumps++
		}
		if l, ok := i.(Label); ok && l.Name != "__main_start" {
			branchLabels++
		}
	}
	if condJumps != 1 {
		t.Fatalf("expected exactly one conditional jump, got %d", condJumps)
	}
	if branchLabels != 1 {
		t.Fatalf("expected exactly one branch label, got %d", branchLabels)
	}
}

func TestProcedureBodyPrecedesMainStart(t *testing.T) {
	instrs := generate(t, `PROCEDURE Greet;
BEGIN WRITE('hi') END;
BEGIN Greet END.`)
	var enterIdx, mainIdx int = -1, -1
	for idx, i := range instrs {
		if _, ok := i.(EnterProc); ok && enterIdx == -1 {
			enterIdx = idx
		}
		if l, ok := i.(Label); ok && l.Name == "__main_start" {
			mainIdx = idx
		}
	}
	if enterIdx == -1 || mainIdx == -1 || enterIdx > mainIdx {
		t.Fatalf("expected EnterProc before __main_start, got enter=%d main=%d", enterIdx, mainIdx)
	}
}

func TestConstantIsInlinedNotLoadedFromAVariable(t *testing.T) {
	instrs := generate(t, "CONST Limit = 5; VAR x : INTEGER; BEGIN x := Limit END.")
	for _, i := range instrs {
		if sv, ok := i.(StoreVar); ok {
			if sv.Src.Kind == OperandVar && sv.Src.Name == "Limit" {
				t.Fatal("constant should have been inlined, not referenced as a variable operand")
			}
		}
	}
}

func TestCallArgumentsPreserveOrder(t *testing.T) {
	instrs := generate(t, `PROCEDURE Sub(a, b : INTEGER);
BEGIN WRITE(a - b) END;
BEGIN Sub(10, 3) END.`)
	for _, i := range instrs {
		if c, ok := i.(Call); ok {
			if len(c.Args) != 2 || c.Args[0].IntValue != 10 || c.Args[1].IntValue != 3 {
				t.Fatalf("expected args [10, 3] in order, got %#v", c.Args)
			}
		}
	}
}

func TestBinOpOperatorSymbolMatchesSourceOperator(t *testing.T) {
	instrs := generate(t, "VAR x : INTEGER; BEGIN x := 1 + 2 END.")
	var sawPlus bool
	for _, i := range instrs {
		if b, ok := i.(BinOp); ok && b.Op == "+" {
			sawPlus = true
		}
	}
	if !sawPlus {
		t.Fatal("expected a BinOp with operator \"+\"")
	}
}

func TestRealDivisionOfTwoIntegerOperandsWidensBoth(t *testing.T) {
	instrs := generate(t, "VAR x : REAL; BEGIN x := 5 / 2 END.")
	for _, i := range instrs {
		b, ok := i.(BinOp)
		if !ok || b.Op != "/" {
			continue
		}
		if b.Left.Type != ast.TypeReal || b.Right.Type != ast.TypeReal {
			t.Fatalf("expected both operands of / to be widened to REAL, got left=%v right=%v", b.Left.Type, b.Right.Type)
		}
		return
	}
	t.Fatal("expected a BinOp with operator \"/\"")
}
