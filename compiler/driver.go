// Package compiler wires the lexer, parser, semantic analyzer, IR
// generator, optimizer, interpreter, and NASM generator into a single
// driver, and defines the contracts the external collaborators (a GUI
// shell, an assembler/linker toolchain) must implement.
package compiler

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/pkg/errors"

	"github.com/lookbusy1344/pascal-compiler/ast"
	"github.com/lookbusy1344/pascal-compiler/codegen"
	"github.com/lookbusy1344/pascal-compiler/config"
	"github.com/lookbusy1344/pascal-compiler/interpreter"
	"github.com/lookbusy1344/pascal-compiler/ir"
	"github.com/lookbusy1344/pascal-compiler/optimizer"
	"github.com/lookbusy1344/pascal-compiler/parser"
	"github.com/lookbusy1344/pascal-compiler/semantic"
)

// SourceProvider supplies the program text to compile. The GUI shell or
// CLI frontend implements this; the core only ever needs UTF-8 text.
type SourceProvider interface {
	ReadSource() (string, error)
}

// WriteSink receives the interpreter's WRITE output. It is append-only;
// Driver.Run closes it before returning, whether or not the run
// succeeded.
type WriteSink interface {
	interpreter.OutputSink
	io.Closer
}

// InputProvider supplies READ input, matching interpreter.InputProvider
// exactly: a blocking prompt-to-line call where a false ok means cancel.
type InputProvider interface {
	interpreter.InputProvider
}

// AssemblySink receives the generated NASM text at a caller-specified
// path. The driver never opens files itself; this interface is how a
// GUI or CLI frontend chooses where assembly output lives.
type AssemblySink interface {
	WriteAssembly(path, source string) error
}

// Toolchain invokes an external assembler/linker over an assembly file
// and reports the resulting opaque success/failure. The core assumes a
// NASM-compatible assembler for 32-bit Windows object format and a
// C-runtime-linking linker exist on the caller's PATH; this interface
// exists only so the driver doesn't have to know how that invocation
// happens.
type Toolchain interface {
	Assemble(asmPath string) (exePath string, err error)
}

// PhaseLog records one pipeline stage's completion, mirroring the
// running stage log original_source/main_logic.py accumulates
// ("Lexing completed.", the AST dump, the IR listing, ...).
type PhaseLog struct {
	Name   string
	Detail string
}

// Result is everything a compile-and-run invocation produced.
type Result struct {
	Phases   []PhaseLog
	Assembly string // non-empty only when codegen ran
	ExePath  string // non-empty only when a Toolchain produced one
}

// Driver runs the full pipeline: parse, analyze, generate IR, optimize,
// then either interpret or hand off to the code generator and an
// external toolchain. One Driver is built per compile request; it holds
// no state between runs.
type Driver struct {
	cfg    *config.Config
	logger *log.Logger
}

// New builds a Driver from cfg. A nil cfg uses config.DefaultConfig().
// Phase transitions are always logged to logger; pass a logger writing
// to io.Discard to silence them (the teacher's gui/app.go follows the
// same discard-by-default shape for its own debug logger).
func New(cfg *config.Config, logger *log.Logger) *Driver {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Driver{cfg: cfg, logger: logger}
}

func (d *Driver) logPhase(r *Result, name, detail string) {
	d.logger.Printf("%s", name)
	if d.cfg.Diagnostics.Verbose {
		r.Phases = append(r.Phases, PhaseLog{Name: name, Detail: detail})
	}
}

// front end: source -> optimized IR, shared by Run and Compile.
func (d *Driver) frontEnd(src string, r *Result) ([]ir.Instruction, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, errors.Wrap(err, "parsing source")
	}
	d.logPhase(r, "parsing completed", dumpAST(prog))

	if _, err := semantic.Analyze(prog); err != nil {
		return nil, errors.Wrap(err, "semantic analysis")
	}
	d.logPhase(r, "semantic analysis completed", "")

	instrs, err := ir.Generate(prog)
	if err != nil {
		return nil, errors.Wrap(err, "generating IR")
	}
	d.logPhase(r, "IR generation completed", dumpIR(instrs))

	maxPasses := d.cfg.Optimizer.MaxPasses
	optimized := optimizer.Optimize(instrs, maxPasses)
	detail := dumpIR(optimized)
	if detail != dumpIR(instrs) {
		d.logPhase(r, "optimization completed", detail)
	} else {
		d.logPhase(r, "optimization completed (no change)", "")
	}

	return optimized, nil
}

// Run interprets src directly: parse, analyze, generate IR, optimize,
// then execute on the IR interpreter. On a runtime error the
// interpreter's memory/call-stack dump is written to diag before the
// wrapped error is returned.
func (d *Driver) Run(src string, input InputProvider, output WriteSink, diag io.Writer) (*Result, error) {
	r := &Result{}

	instrs, err := d.frontEnd(src, r)
	if err != nil {
		output.Close()
		return r, err
	}

	interp := interpreter.New(instrs, input, output, d.cfg.Interpreter.MaxCallDepth)
	runErr := interp.Run()
	closeErr := output.Close()

	if runErr != nil {
		if rtErr, ok := runErr.(*interpreter.Error); ok && diag != nil {
			rtErr.DumpState(diag)
		}
		return r, errors.Wrap(runErr, "running program")
	}
	if closeErr != nil {
		return r, errors.Wrap(closeErr, "closing output sink")
	}

	d.logPhase(r, "execution completed", "")
	return r, nil
}

// Compile runs the front end and then the NASM generator, writing the
// result to sink at asmPath. If toolchain is non-nil the generated
// assembly is additionally handed to it, and Result.ExePath is set to
// whatever it produces.
func (d *Driver) Compile(src, asmPath string, sink AssemblySink, toolchain Toolchain) (*Result, error) {
	r := &Result{}

	instrs, err := d.frontEnd(src, r)
	if err != nil {
		return r, err
	}

	asm, err := codegen.Generate(instrs, d.cfg.Codegen.EntrySymbol)
	if err != nil {
		return r, errors.Wrap(err, "generating assembly")
	}
	d.logPhase(r, "code generation completed", "")
	r.Assembly = asm

	if sink != nil {
		if err := sink.WriteAssembly(asmPath, asm); err != nil {
			return r, errors.Wrap(err, "writing assembly output")
		}
		d.logPhase(r, "assembly written", asmPath)
	}

	if toolchain != nil {
		exePath, err := toolchain.Assemble(asmPath)
		if err != nil {
			return r, errors.Wrap(err, "invoking toolchain")
		}
		r.ExePath = exePath
		d.logPhase(r, "toolchain completed", exePath)
	}

	return r, nil
}

// dumpAST renders the tree's shape for the verbose phase log, matching
// what original_source/main_logic.py's AST dump is used for (a readable
// trace of what was parsed, not a re-parseable format).
func dumpAST(prog *ast.Program) string {
	return fmt.Sprintf("%+v", prog)
}

func dumpIR(instrs []ir.Instruction) string {
	var b strings.Builder
	for _, in := range instrs {
		fmt.Fprintln(&b, in.String())
	}
	return b.String()
}
