package compiler

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/pascal-compiler/config"
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
	parts  []string
	closed bool
}

func (c *collectOutput) Write(s string) error {
	c.parts = append(c.parts, s)
	return nil
}

func (c *collectOutput) Close() error {
	c.closed = true
	return nil
}

func (c *collectOutput) String() string { return strings.Join(c.parts, "") }

type collectAssembly struct {
	path, source string
}

func (c *collectAssembly) WriteAssembly(path, source string) error {
	c.path, c.source = path, source
	return nil
}

type stubToolchain struct {
	exePath string
	err     error
}

func (s *stubToolchain) Assemble(asmPath string) (string, error) {
	return s.exePath, s.err
}

func TestRunHelloWorld(t *testing.T) {
	d := New(nil, nil)
	out := &collectOutput{}
	_, err := d.Run("BEGIN WRITE('hello, world') END.", &stubInput{}, out, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "hello, world" {
		t.Fatalf("got %q", out.String())
	}
	if !out.closed {
		t.Fatal("expected the output sink to be closed on success")
	}
}

func TestRunDivisionByZeroDumpsStateAndWrapsError(t *testing.T) {
	d := New(nil, nil)
	out := &collectOutput{}
	var diag strings.Builder
	_, err := d.Run("VAR x : INTEGER; BEGIN x := 1 DIV 0 END.", &stubInput{}, out, &diag)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "running program") {
		t.Fatalf("expected the runtime error wrapped with the run phase, got %q", err.Error())
	}
	if !strings.Contains(diag.String(), "runtime error") {
		t.Fatalf("expected diagnostic dump, got %q", diag.String())
	}
}

func TestRunProcedureWithParameter(t *testing.T) {
	d := New(nil, nil)
	out := &collectOutput{}
	_, err := d.Run(`PROCEDURE Square(n : INTEGER);
VAR result : INTEGER;
BEGIN result := n * n; WRITE(result) END;
BEGIN Square(6) END.`, &stubInput{}, out, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "36" {
		t.Fatalf("got %q, want 36", out.String())
	}
}

func TestRunReadFillsVariable(t *testing.T) {
	d := New(nil, nil)
	out := &collectOutput{}
	in := &stubInput{lines: []string{"42"}}
	_, err := d.Run("VAR x : INTEGER; BEGIN READ(x); WRITE(x) END.", in, out, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "42" {
		t.Fatalf("got %q, want 42", out.String())
	}
}

func TestRunParseErrorIsWrapped(t *testing.T) {
	d := New(nil, nil)
	out := &collectOutput{}
	_, err := d.Run("BEGIN WRITE(", &stubInput{}, out, nil)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !strings.Contains(err.Error(), "parsing source") {
		t.Fatalf("expected wrapped context in error, got %v", err)
	}
}

func TestVerboseDiagnosticsPopulatesPhaseLog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Diagnostics.Verbose = true
	d := New(cfg, nil)
	out := &collectOutput{}
	result, err := d.Run("BEGIN WRITE('x') END.", &stubInput{}, out, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Phases) == 0 {
		t.Fatal("expected verbose mode to populate Phases")
	}
}

func TestQuietDiagnosticsLeavesPhaseLogEmpty(t *testing.T) {
	d := New(config.DefaultConfig(), nil)
	out := &collectOutput{}
	result, err := d.Run("BEGIN WRITE('x') END.", &stubInput{}, out, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Phases) != 0 {
		t.Fatalf("expected no phase log without verbose diagnostics, got %v", result.Phases)
	}
}

func TestCompileProducesAssemblyAndWritesItToTheSink(t *testing.T) {
	d := New(nil, nil)
	sink := &collectAssembly{}
	result, err := d.Compile("BEGIN WRITE('hi') END.", "out.asm", sink, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Assembly, "global _main") {
		t.Fatalf("expected assembly to contain entry symbol, got %q", result.Assembly)
	}
	if sink.path != "out.asm" || sink.source != result.Assembly {
		t.Fatal("expected the assembly sink to receive the generated source")
	}
}

func TestCompileInvokesToolchainWhenProvided(t *testing.T) {
	d := New(nil, nil)
	sink := &collectAssembly{}
	tc := &stubToolchain{exePath: "out.exe"}
	result, err := d.Compile("BEGIN WRITE('hi') END.", "out.asm", sink, tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExePath != "out.exe" {
		t.Fatalf("expected ExePath to be populated from the toolchain, got %q", result.ExePath)
	}
}

func TestCompileSemanticErrorIsWrapped(t *testing.T) {
	d := New(nil, nil)
	sink := &collectAssembly{}
	_, err := d.Compile("BEGIN x := 1 END.", "out.asm", sink, nil)
	if err == nil {
		t.Fatal("expected a semantic error for an undeclared variable")
	}
	if !strings.Contains(err.Error(), "semantic analysis") {
		t.Fatalf("expected wrapped context in error, got %v", err)
	}
}
