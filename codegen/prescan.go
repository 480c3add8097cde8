package codegen

import (
	"fmt"

	"github.com/lookbusy1344/pascal-compiler/ast"
	"github.com/lookbusy1344/pascal-compiler/ir"
)

// stringBufferSize is the fixed buffer reserved for a STRING-typed
// variable or temporary. This language has no dynamic string allocation
// (Non-goal), so every STRING slot gets one fixed-size buffer rather
// than a pointer plus a heap allocation.
const stringBufferSize = 256

func typeSize(t ast.NodeType) int {
	switch t {
	case ast.TypeReal:
		return 8
	case ast.TypeString:
		return stringBufferSize
	default:
		return 4
	}
}

// frame is one procedure activation's stack layout, or the synthetic
// top-level frame for code outside any procedure. Parameters sit above
// EBP (cdecl: return address then saved EBP, so the first parameter
// starts at [ebp+8]); locals and compiler-generated temporaries sit
// below EBP. Top-level code has no EnterProc/ExitProc of its own — its
// variables and temporaries are emitted as .bss globals instead, since
// nothing calls into it with a stack frame to rely on.
type frame struct {
	isGlobal bool
	offsets  map[string]int // name -> signed displacement from ebp (0 for globals)
	types    map[string]ast.NodeType
	order    []string // first-seen order, for deterministic .bss/.text emission
	size     int      // bytes to reserve with `sub esp, size` (locals frame only)
}

func newFrame(isGlobal bool) *frame {
	return &frame{isGlobal: isGlobal, offsets: make(map[string]int), types: make(map[string]ast.NodeType)}
}

func (f *frame) declare(name string, t ast.NodeType) {
	if _, ok := f.types[name]; ok {
		return
	}
	f.types[name] = t
	f.order = append(f.order, name)
}

// scanResult is the output of the pre-scan phase: every frame (the
// global one plus one per procedure), and the literal tables that back
// the .data section.
type scanResult struct {
	global     *frame
	procs      map[string]*frame
	procOrder  []string
	strings    map[string]string // literal value -> label
	stringKeys []string
	floats     map[float64]string
	floatKeys  []float64
}

// preScan walks the instruction stream twice: once to learn every
// variable and temporary's type from how it is used (the IR carries
// types on every Operand already, so this step is simpler than
// original_source/nasm_generator.py's _infer_and_store_type_hint_for_target,
// which had to derive a type with no static analysis behind it) and to
// intern every string/float literal it touches, and once more in
// layoutFrames to assign each procedure's names concrete stack slots.
func preScan(instrs []ir.Instruction) *scanResult {
	res := &scanResult{
		global:  newFrame(true),
		procs:   make(map[string]*frame),
		strings: make(map[string]string),
		floats:  make(map[float64]string),
	}

	var currentProc string

	declareOperand := func(op ir.Operand) {
		switch op.Kind {
		case ir.OperandConst:
			internConst(res, op)
		case ir.OperandVar, ir.OperandTemp:
			f := res.global
			if currentProc != "" {
				f = res.procs[currentProc]
			}
			f.declare(op.Name, op.Type)
		}
	}

	for _, instr := range instrs {
		switch in := instr.(type) {
		case ir.EnterProc:
			currentProc = in.Name
			f := newFrame(false)
			res.procs[in.Name] = f
			res.procOrder = append(res.procOrder, in.Name)
		case ir.ExitProc:
			currentProc = ""
		case ir.LoadConst:
			declareOperand(in.Dest)
			internConst(res, in.Value)
		case ir.LoadVar:
			declareOperand(in.Dest)
			declareOperand(in.Src)
		case ir.StoreVar:
			declareOperand(in.Dest)
			declareOperand(in.Src)
		case ir.BinOp:
			declareOperand(in.Dest)
			declareOperand(in.Left)
			declareOperand(in.Right)
		case ir.UnaryOp:
			declareOperand(in.Dest)
			declareOperand(in.Src)
		case ir.Read:
			declareOperand(in.Dest)
		case ir.Write:
			declareOperand(in.Value)
		case ir.Call:
			for _, a := range in.Args {
				declareOperand(a)
			}
			if in.ResultTarget != nil {
				declareOperand(*in.ResultTarget)
			}
		}
	}

	layoutFrames(res, instrs)
	return res
}

func internConst(res *scanResult, op ir.Operand) {
	switch op.Type {
	case ast.TypeString:
		if _, ok := res.strings[op.StrValue]; !ok {
			label := fmt.Sprintf("str%d", len(res.stringKeys))
			res.strings[op.StrValue] = label
			res.stringKeys = append(res.stringKeys, op.StrValue)
		}
	case ast.TypeReal:
		if _, ok := res.floats[op.RealValue]; !ok {
			label := fmt.Sprintf("flt%d", len(res.floatKeys))
			res.floats[op.RealValue] = label
			res.floatKeys = append(res.floatKeys, op.RealValue)
		}
	}
}

// layoutFrames assigns concrete offsets now that every frame knows the
// full set of names and types that belong to it. Parameters are
// assigned increasing positive offsets in EnterProc.Params declaration
// order, starting at [ebp+8]; a parameter the body never reads has no
// recorded type and is given a 4-byte slot. Locals and temporaries get
// decreasing negative offsets and contribute to the frame's reserved
// size.
func layoutFrames(res *scanResult, instrs []ir.Instruction) {
	for _, name := range res.procOrder {
		f := res.procs[name]
		var declared []string
		for _, instr := range instrs {
			if ep, ok := instr.(ir.EnterProc); ok && ep.Name == name {
				declared = ep.Params
				break
			}
		}

		paramOffset := 8
		localOffset := 0
		// Params first in their EnterProc declaration order, then
		// everything else (locals and temporaries) in the order they
		// were first seen during the scan.
		paramSet := make(map[string]bool)
		for _, n := range declared {
			paramSet[n] = true
			f.offsets[n] = paramOffset
			paramOffset += typeSize(f.types[n])
		}
		var rest []string
		for _, n := range f.order {
			if !paramSet[n] {
				rest = append(rest, n)
			}
		}
		for _, n := range rest {
			localOffset -= typeSize(f.types[n])
			f.offsets[n] = localOffset
		}
		f.size = -localOffset
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
