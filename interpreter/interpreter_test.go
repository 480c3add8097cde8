package interpreter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/pascal-compiler/ir"
	"github.com/lookbusy1344/pascal-compiler/optimizer"
	"github.com/lookbusy1344/pascal-compiler/parser"
	"github.com/lookbusy1344/pascal-compiler/semantic"
)

type stubInput struct {
	lines []string
	pos   int
}

func (s *stubInput) ReadLine(prompt string) (string, bool) {
	if s.pos >= len(s.lines) {
		return "", false
	}
	line := s.lines[s.pos]
	s.pos++
	return line, true
}

type collectOutput struct {
	parts []string
}

func (c *collectOutput) Write(s string) error {
	c.parts = append(c.parts, s)
	return nil
}

func (c *collectOutput) String() string { return strings.Join(c.parts, "") }

func run(t *testing.T, src string, in *stubInput) (*collectOutput, error) {
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
	out := &collectOutput{}
	if in == nil {
		in = &stubInput{}
	}
	interp := New(instrs, in, out, 0)
	return out, interp.Run()
}

func TestHelloWorld(t *testing.T) {
	out, err := run(t, "BEGIN WRITE('hello, world') END.", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "hello, world" {
		t.Fatalf("got %q", out.String())
	}
}

func TestArithmeticAndPromotion(t *testing.T) {
	out, err := run(t, "VAR x : REAL; BEGIN x := 1 + 2.5; WRITE(x) END.", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "3.5" {
		t.Fatalf("got %q, want 3.5", out.String())
	}
}

func TestWhileLoopAccumulates(t *testing.T) {
	out, err := run(t, `VAR i, sum : INTEGER;
BEGIN
  i := 1; sum := 0;
  WHILE i <= 5 DO BEGIN sum := sum + i; i := i + 1 END;
  WRITE(sum)
END.`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "15" {
		t.Fatalf("got %q, want 15", out.String())
	}
}

func TestProcedureCallWithParameter(t *testing.T) {
	out, err := run(t, `PROCEDURE Square(n : INTEGER);
VAR result : INTEGER;
BEGIN result := n * n; WRITE(result) END;
BEGIN Square(6) END.`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "36" {
		t.Fatalf("got %q, want 36", out.String())
	}
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	_, err := run(t, "VAR x : INTEGER; BEGIN x := 1 DIV 0 END.", nil)
	if err == nil {
		t.Fatal("expected a runtime error for DIV by zero")
	}
	rerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *interpreter.Error, got %T", err)
	}
	if rerr.Memory == nil {
		t.Fatal("expected the error to carry a memory snapshot")
	}
}

func TestDivRoundsTowardNegativeInfinity(t *testing.T) {
	out, err := run(t, "VAR x : INTEGER; BEGIN x := -7 DIV 2; WRITE(x) END.", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "-4" {
		t.Fatalf("got %q, want -4", out.String())
	}
}

func TestDivTableDriven(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"positive operands truncate", "VAR x : INTEGER; BEGIN x := 7 DIV 2; WRITE(x) END.", "3"},
		{"negative dividend floors", "VAR x : INTEGER; BEGIN x := -7 DIV 2; WRITE(x) END.", "-4"},
		{"negative divisor floors", "VAR x : INTEGER; BEGIN x := 7 DIV -2; WRITE(x) END.", "-4"},
		{"both negative truncates", "VAR x : INTEGER; BEGIN x := -7 DIV -2; WRITE(x) END.", "3"},
		{"exact division", "VAR x : INTEGER; BEGIN x := -8 DIV 2; WRITE(x) END.", "-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.src, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestReadFillsVariable(t *testing.T) {
	in := &stubInput{lines: []string{"42"}}
	out, err := run(t, "VAR x : INTEGER; BEGIN READ(x); WRITE(x) END.", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "42" {
		t.Fatalf("got %q, want 42", out.String())
	}
}

func TestReadPastEndOfInputIsRuntimeError(t *testing.T) {
	in := &stubInput{}
	_, err := run(t, "VAR x : INTEGER; BEGIN READ(x) END.", in)
	if err == nil {
		t.Fatal("expected a runtime error when input is exhausted")
	}
}

func TestLocalVariableShadowsGlobalOfSameName(t *testing.T) {
	out, err := run(t, `VAR x : INTEGER;
PROCEDURE Shadow;
VAR x : INTEGER;
BEGIN x := 99; WRITE(x) END;
BEGIN x := 1; Shadow; WRITE(x) END.`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "991" {
		t.Fatalf("got %q, want local write to not clobber the global: \"991\"", out.String())
	}
}

func TestIfElseBranching(t *testing.T) {
	out, err := run(t, `VAR x : INTEGER;
BEGIN
  x := 5;
  IF x > 10 THEN WRITE('big') ELSE WRITE('small')
END.`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "small" {
		t.Fatalf("got %q, want small", out.String())
	}
}

func TestConstantFoldingVisibleThroughOptimizerProducesSameResult(t *testing.T) {
	src := "VAR x : INTEGER; BEGIN x := 2 * (3 + 4); WRITE(x) END."
	out, err := run(t, src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "14" {
		t.Fatalf("got %q, want 14", out.String())
	}

	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = semantic.Analyze(prog)
	require.NoError(t, err)
	instrs, err := ir.Generate(prog)
	require.NoError(t, err)
	optimized := optimizer.Optimize(instrs, optimizer.DefaultMaxPasses)
	optOut := &collectOutput{}
	require.NoError(t, New(optimized, &stubInput{}, optOut, 0).Run())
	if optOut.String() != "14" {
		t.Fatalf("optimized program: got %q, want 14", optOut.String())
	}
}
