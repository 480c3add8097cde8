// Package codegen lowers optimized linear IR to x86-32 NASM assembly
// targeting cdecl linkage against libc (printf/scanf/exit/strcpy/strcat), with x87
// used for all REAL arithmetic. Invoking the assembler and linker
// themselves is outside this package's scope — Generate only produces
// assembly text; turning that into an executable is the caller's
// compiler.Toolchain's job.
package codegen

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/pascal-compiler/ast"
	"github.com/lookbusy1344/pascal-compiler/ir"
)

// DefaultEntrySymbol is the libc-visible symbol the generated program
// starts at.
const DefaultEntrySymbol = "main"

// Generator emits NASM source for a flat IR instruction stream. It
// works in the same two phases as the teacher's instruction encoder:
// preScan walks the whole stream first to assign every name a memory
// location and intern every literal, then generate walks it again,
// now able to look any operand's address up instead of discovering it
// mid-emission.
type Generator struct {
	entrySymbol string
	scan        *scanResult
	out         strings.Builder
}

// New creates a Generator. entrySymbol == "" uses DefaultEntrySymbol.
func New(entrySymbol string) *Generator {
	if entrySymbol == "" {
		entrySymbol = DefaultEntrySymbol
	}
	return &Generator{entrySymbol: entrySymbol}
}

// Generate lowers instrs (normally the optimizer's output, but any
// valid IR stream works) to a complete NASM source file.
func Generate(instrs []ir.Instruction, entrySymbol string) (string, error) {
	g := New(entrySymbol)
	return g.generate(instrs)
}

func (g *Generator) generate(instrs []ir.Instruction) (string, error) {
	g.scan = preScan(instrs)

	g.emitDataSection()
	g.emitBSSSection()
	g.line("section .text")
	g.line("global %s", g.entrySymbol)
	g.line("extern printf")
	g.line("extern scanf")
	g.line("extern exit")
	g.line("extern strcpy")
	g.line("extern strcat")
	g.blank()

	if err := g.emitBody(instrs); err != nil {
		return "", err
	}

	return g.out.String(), nil
}

func (g *Generator) line(format string, args ...interface{}) {
	fmt.Fprintf(&g.out, format+"\n", args...)
}

func (g *Generator) blank() { g.out.WriteString("\n") }

func (g *Generator) emitDataSection() {
	g.line("section .data")
	g.line("fmt_int db \"%%d\", 0")
	g.line("fmt_real db \"%%f\", 0")
	g.line("fmt_str db \"%%s\", 0")
	g.line("scan_int db \"%%d\", 0")
	g.line("scan_real db \"%%lf\", 0")
	for _, key := range g.scan.stringKeys {
		g.line("%s db %s, 0", g.scan.strings[key], nasmStringLiteral(key))
	}
	for _, key := range g.scan.floatKeys {
		g.line("%s dq %s", g.scan.floats[key], formatNASMFloat(key))
	}
	g.blank()
}

func (g *Generator) emitBSSSection() {
	g.line("section .bss")
	for _, name := range g.scan.global.order {
		t := g.scan.global.types[name]
		g.line("%s: %s", name, bssReserve(t))
	}
	g.blank()
}

func bssReserve(t ast.NodeType) string {
	switch t {
	case ast.TypeReal:
		return "resq 1"
	case ast.TypeString:
		return fmt.Sprintf("resb %d", stringBufferSize)
	default:
		return "resd 1"
	}
}

// nasmStringLiteral renders a Go string as a NASM quoted byte string,
// splitting out embedded quotes, newlines, and tabs into their own
// comma-separated numeric bytes the way hand-written NASM string data
// normally does.
func nasmStringLiteral(s string) string {
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, `"`+cur.String()+`"`)
			cur.Reset()
		}
	}
	for _, r := range s {
		switch r {
		case '\n':
			flush()
			parts = append(parts, "10")
		case '\t':
			flush()
			parts = append(parts, "9")
		case '"':
			flush()
			parts = append(parts, "34")
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	if len(parts) == 0 {
		return `""`
	}
	return strings.Join(parts, ", ")
}

func formatNASMFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}

// frameFor returns the frame a procedure-scoped walk is currently in:
// the named procedure's frame while between its EnterProc/ExitProc, or
// the global frame otherwise.
func (g *Generator) frameFor(proc string) *frame {
	if proc == "" {
		return g.scan.global
	}
	return g.scan.procs[proc]
}

func addrOf(f *frame, name string) string {
	if f.isGlobal {
		return fmt.Sprintf("[%s]", name)
	}
	off := f.offsets[name]
	if off >= 0 {
		return fmt.Sprintf("[ebp+%d]", off)
	}
	return fmt.Sprintf("[ebp%d]", off)
}

func (g *Generator) emitBody(instrs []ir.Instruction) error {
	var proc string
	for _, instr := range instrs {
		switch in := instr.(type) {
		case ir.EnterProc:
			proc = in.Name
			f := g.scan.procs[proc]
			g.line("%s:", proc)
			g.line("    push ebp")
			g.line("    mov ebp, esp")
			if f.size > 0 {
				g.line("    sub esp, %d", f.size)
			}
		case ir.ExitProc, ir.Return:
			g.line("    mov esp, ebp")
			g.line("    pop ebp")
			g.line("    ret")
			if _, ok := instr.(ir.ExitProc); ok {
				proc = ""
			}
		case ir.Label:
			if in.Name == "__main_start" {
				g.line("%s:", g.entrySymbol)
				g.line("    push ebp")
				g.line("    mov ebp, esp")
			} else {
				g.line("%s:", in.Name)
			}
		case ir.NoOp:
			// nothing to emit
		case ir.Jump:
			g.line("    jmp %s", in.Target)
		case ir.CondJump:
			g.emitCondJump(in, proc)
		case ir.LoadConst:
			g.emitMove(proc, in.Dest, in.Value)
		case ir.LoadVar:
			g.emitMove(proc, in.Dest, in.Src)
		case ir.StoreVar:
			g.emitMove(proc, in.Dest, in.Src)
		case ir.BinOp:
			if err := g.emitBinOp(proc, in); err != nil {
				return err
			}
		case ir.UnaryOp:
			if err := g.emitUnaryOp(proc, in); err != nil {
				return err
			}
		case ir.Call:
			g.emitCall(proc, in)
		case ir.Read:
			g.emitRead(proc, in)
		case ir.Write:
			g.emitWrite(proc, in)
		default:
			return &Error{Message: fmt.Sprintf("unhandled instruction %T", instr)}
		}
	}
	g.line("    push dword 0")
	g.line("    call exit")
	return nil
}

func (g *Generator) emitMove(proc string, dest, src ir.Operand) {
	switch dest.Type {
	case ast.TypeReal:
		g.line("    fld qword %s", g.realOperand(proc, src))
		g.line("    fstp qword %s", addrOf(g.frameFor(proc), dest.Name))
	case ast.TypeString:
		g.emitStrCopy(proc, dest, src)
	default:
		g.line("    mov eax, %s", g.intOperand(proc, src))
		g.line("    mov dword %s, eax", addrOf(g.frameFor(proc), dest.Name))
	}
}

// intOperand renders an operand as something usable on the right-hand
// side of a `mov reg, ...`: an immediate for a constant, a dword memory
// reference otherwise.
func (g *Generator) intOperand(proc string, op ir.Operand) string {
	if op.Kind == ir.OperandConst && op.Type == ast.TypeInteger {
		return fmt.Sprintf("%d", op.IntValue)
	}
	return fmt.Sprintf("dword %s", addrOf(g.frameFor(proc), op.Name))
}

// realOperand renders an operand as something usable after `fld qword`.
func (g *Generator) realOperand(proc string, op ir.Operand) string {
	if op.Kind == ir.OperandConst {
		return fmt.Sprintf("[%s]", g.scan.floats[op.RealValue])
	}
	return addrOf(g.frameFor(proc), op.Name)
}

// pushPointer emits code to push the address of a frame-resident name
// (computed with lea, since `[ebp-8]` is not a valid bare push operand)
// or, for a global, the label itself — NASM treats a bare label operand
// to push/mov as its address already.
func (g *Generator) pushPointer(proc string, name string) {
	f := g.frameFor(proc)
	if f.isGlobal {
		g.line("    push dword %s", name)
		return
	}
	off := f.offsets[name]
	if off >= 0 {
		g.line("    lea eax, [ebp+%d]", off)
	} else {
		g.line("    lea eax, [ebp%d]", off)
	}
	g.line("    push eax")
}

// pushStringOperand pushes a pointer suitable for libc's char* argument
// conventions: the interned label for a literal, or the buffer's
// address for a variable or temporary.
func (g *Generator) pushStringOperand(proc string, op ir.Operand) {
	if op.Kind == ir.OperandConst {
		g.line("    push dword %s", g.scan.strings[op.StrValue])
		return
	}
	g.pushPointer(proc, op.Name)
}

func (g *Generator) emitStrCopy(proc string, dest, src ir.Operand) {
	g.pushStringOperand(proc, src)
	g.pushPointer(proc, dest.Name)
	g.line("    call strcpy")
	g.line("    add esp, 8")
}

func (g *Generator) emitCondJump(c ir.CondJump, proc string) {
	g.line("    mov eax, %s", g.intOperand(proc, c.Cond))
	g.line("    cmp eax, 0")
	if c.IfFalse {
		g.line("    je %s", c.Target)
	} else {
		g.line("    jne %s", c.Target)
	}
}

func (g *Generator) emitBinOp(proc string, b ir.BinOp) error {
	if b.Left.Type == ast.TypeString || b.Right.Type == ast.TypeString {
		return g.emitStringConcat(proc, b)
	}
	if b.Left.Type == ast.TypeReal && isComparisonOrArith(b.Op) {
		g.emitRealBinOp(proc, b)
		return nil
	}
	return g.emitIntBinOp(proc, b)
}

func isComparisonOrArith(op string) bool {
	switch op {
	case "+", "-", "*", "/", "=", "<>", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}

func (g *Generator) emitStringConcat(proc string, b ir.BinOp) error {
	if b.Op != "+" {
		return &Error{Message: fmt.Sprintf("operator %s is not supported for STRING operands", b.Op)}
	}
	g.pushStringOperand(proc, b.Left)
	g.pushPointer(proc, b.Dest.Name)
	g.line("    call strcpy")
	g.line("    add esp, 8")
	g.pushStringOperand(proc, b.Right)
	g.pushPointer(proc, b.Dest.Name)
	g.line("    call strcat")
	g.line("    add esp, 8")
	return nil
}

func (g *Generator) emitRealBinOp(proc string, b ir.BinOp) {
	switch b.Op {
	case "=", "<>", "<", "<=", ">", ">=":
		// fcomip compares ST(0) against ST(i), so load Right first and
		// Left last to make ST(0) hold Left — otherwise the comparison
		// reads as Right cmp Left, which flips the non-symmetric operators.
		g.line("    fld qword %s", g.realOperand(proc, b.Right))
		g.line("    fld qword %s", g.realOperand(proc, b.Left))
		g.line("    fcomip st0, st1")
		g.line("    fstp st0")
		g.emitSetFromFlags(b.Op)
		g.line("    mov dword %s, eax", addrOf(g.frameFor(proc), b.Dest.Name))
		return
	}
	g.line("    fld qword %s", g.realOperand(proc, b.Left))
	g.line("    fld qword %s", g.realOperand(proc, b.Right))
	switch b.Op {
	case "+":
		g.line("    faddp st1, st0")
	case "-":
		g.line("    fsubp st1, st0")
	case "*":
		g.line("    fmulp st1, st0")
	case "/":
		g.line("    fdivp st1, st0")
	}
	g.line("    fstp qword %s", addrOf(g.frameFor(proc), b.Dest.Name))
}

// emitSetFromFlags turns the flags register left over from a compare
// into a 0/1 INTEGER value in eax, this language's boolean
// representation.
func (g *Generator) emitSetFromFlags(op string) {
	setcc := map[string]string{
		"=": "sete", "<>": "setne", "<": "setb", "<=": "setbe", ">": "seta", ">=": "setae",
	}[op]
	g.line("    %s al", setcc)
	g.line("    movzx eax, al")
}

func (g *Generator) emitIntBinOp(proc string, b ir.BinOp) error {
	g.line("    mov eax, %s", g.intOperand(proc, b.Left))
	g.line("    mov ebx, %s", g.intOperand(proc, b.Right))
	switch b.Op {
	case "+":
		g.line("    add eax, ebx")
	case "-":
		g.line("    sub eax, ebx")
	case "*":
		g.line("    imul eax, ebx")
	case "DIV":
		g.line("    cdq")
		g.line("    idiv ebx")
	case "AND":
		g.line("    cmp eax, 0")
		g.line("    setne al")
		g.line("    movzx eax, al")
		g.line("    cmp ebx, 0")
		g.line("    setne bl")
		g.line("    movzx ebx, bl")
		g.line("    and eax, ebx")
	case "OR":
		g.line("    or eax, ebx")
		g.line("    cmp eax, 0")
		g.line("    setne al")
		g.line("    movzx eax, al")
	case "=", "<>", "<", "<=", ">", ">=":
		g.line("    cmp eax, ebx")
		setcc := map[string]string{
			"=": "sete", "<>": "setne", "<": "setl", "<=": "setle", ">": "setg", ">=": "setge",
		}[b.Op]
		g.line("    %s al", setcc)
		g.line("    movzx eax, al")
	default:
		return &Error{Message: fmt.Sprintf("unsupported integer operator %s", b.Op)}
	}
	g.line("    mov dword %s, eax", addrOf(g.frameFor(proc), b.Dest.Name))
	return nil
}

func (g *Generator) emitUnaryOp(proc string, u ir.UnaryOp) error {
	switch u.Op {
	case "+":
		g.emitMove(proc, u.Dest, u.Src)
		return nil
	case "-":
		if u.Dest.Type == ast.TypeReal {
			g.line("    fld qword %s", g.realOperand(proc, u.Src))
			g.line("    fchs")
			g.line("    fstp qword %s", addrOf(g.frameFor(proc), u.Dest.Name))
			return nil
		}
		g.line("    mov eax, %s", g.intOperand(proc, u.Src))
		g.line("    neg eax")
		g.line("    mov dword %s, eax", addrOf(g.frameFor(proc), u.Dest.Name))
		return nil
	case "NOT":
		g.line("    mov eax, %s", g.intOperand(proc, u.Src))
		g.line("    cmp eax, 0")
		g.line("    sete al")
		g.line("    movzx eax, al")
		g.line("    mov dword %s, eax", addrOf(g.frameFor(proc), u.Dest.Name))
		return nil
	case "TO_REAL":
		g.line("    mov eax, %s", g.intOperand(proc, u.Src))
		g.line("    push eax")
		g.line("    fild dword [esp]")
		g.line("    add esp, 4")
		g.line("    fstp qword %s", addrOf(g.frameFor(proc), u.Dest.Name))
		return nil
	default:
		return &Error{Message: fmt.Sprintf("unsupported unary operator %s", u.Op)}
	}
}

// emitCall pushes arguments right-to-left (cdecl) widening REAL
// arguments to 64 bits in place, then calls the target procedure and
// cleans up the stack.
func (g *Generator) emitCall(proc string, c ir.Call) {
	bytes := 0
	for i := len(c.Args) - 1; i >= 0; i-- {
		arg := c.Args[i]
		if arg.Type == ast.TypeReal {
			g.line("    sub esp, 8")
			g.line("    fld qword %s", g.realOperand(proc, arg))
			g.line("    fstp qword [esp]")
			bytes += 8
		} else {
			g.line("    push %s", g.intOperand(proc, arg))
			bytes += 4
		}
	}
	g.line("    call %s", c.Proc)
	if bytes > 0 {
		g.line("    add esp, %d", bytes)
	}
	if c.ResultTarget != nil {
		target := *c.ResultTarget
		if target.Type == ast.TypeReal {
			g.line("    fstp qword %s", addrOf(g.frameFor(proc), target.Name))
		} else {
			g.line("    mov dword %s, eax", addrOf(g.frameFor(proc), target.Name))
		}
	}
}

func (g *Generator) emitRead(proc string, r ir.Read) {
	g.pushPointer(proc, r.Dest.Name)
	if r.Dest.Type == ast.TypeReal {
		g.line("    push scan_real")
	} else {
		g.line("    push scan_int")
	}
	g.line("    call scanf")
	g.line("    add esp, 8")
}

func (g *Generator) emitWrite(proc string, w ir.Write) {
	switch w.Value.Type {
	case ast.TypeString:
		g.pushStringOperand(proc, w.Value)
		g.line("    push fmt_str")
		g.line("    call printf")
		g.line("    add esp, 8")
	case ast.TypeReal:
		g.line("    sub esp, 8")
		g.line("    fld qword %s", g.realOperand(proc, w.Value))
		g.line("    fstp qword [esp]")
		g.line("    push fmt_real")
		g.line("    call printf")
		g.line("    add esp, 12")
	default:
		g.line("    push %s", g.intOperand(proc, w.Value))
		g.line("    push fmt_int")
		g.line("    call printf")
		g.line("    add esp, 8")
	}
}
