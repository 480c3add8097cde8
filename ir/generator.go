package ir

import (
	"fmt"

	"github.com/lookbusy1344/pascal-compiler/ast"
	"github.com/lookbusy1344/pascal-compiler/lexer"
	"github.com/lookbusy1344/pascal-compiler/semantic"
)

// Error reports a failure while lowering an AST to IR. In practice this
// should not happen for a program that already passed semantic
// analysis; it exists for defensive completeness, mirroring
// original_source/ir_generator.py raising IRGeneratorError for node
// shapes it does not recognize.
type Error struct {
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("ir generator error: %s", e.Message) }

// Generator lowers a semantically analyzed ast.Program into a flat
// sequence of three-address Instructions. Procedures are emitted first,
// each delimited by EnterProc/ExitProc, followed by a "__main_start"
// label and the program body — the interpreter and code generator both
// begin execution at that label rather than at instruction zero, which
// is what lets procedure bodies sit ahead of main without falling
// through into them.
type Generator struct {
	instrs []Instruction
	tempN  int
	labelN int
}

// NewGenerator creates an empty Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate lowers prog to IR.
func Generate(prog *ast.Program) ([]Instruction, error) {
	g := NewGenerator()
	for _, decl := range prog.Body.Declarations {
		if pd, ok := decl.(*ast.ProcedureDecl); ok {
			if err := g.genProcedure(pd); err != nil {
				return nil, err
			}
		}
	}
	g.emit(Label{Name: "__main_start"})
	if err := g.genCompound(prog.Body.Body); err != nil {
		return nil, err
	}
	return g.instrs, nil
}

func (g *Generator) emit(i Instruction) { g.instrs = append(g.instrs, i) }

func (g *Generator) newTemp(t ast.NodeType) Operand {
	name := fmt.Sprintf("t%d", g.tempN)
	g.tempN++
	return Temp(name, t)
}

func (g *Generator) newLabel() string {
	name := fmt.Sprintf("L%d", g.labelN)
	g.labelN++
	return name
}

func (g *Generator) genProcedure(pd *ast.ProcedureDecl) error {
	params := make([]string, len(pd.Params))
	for i, p := range pd.Params {
		params[i] = p.Name
	}
	var locals []string
	for _, decl := range pd.Body.Declarations {
		if vd, ok := decl.(*ast.VarDecl); ok {
			locals = append(locals, vd.Name)
		}
	}
	g.emit(EnterProc{Name: pd.Name, Params: params, Locals: locals})
	if err := g.genCompound(pd.Body.Body); err != nil {
		return err
	}
	g.emit(ExitProc{Name: pd.Name})
	return nil
}

func (g *Generator) genCompound(c *ast.CompoundStatement) error {
	for _, stmt := range c.Children {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genStatement(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.CompoundStatement:
		return g.genCompound(s)
	case *ast.Assign:
		return g.genAssign(s)
	case *ast.If:
		return g.genIf(s)
	case *ast.While:
		return g.genWhile(s)
	case *ast.ProcedureCall:
		return g.genCall(s)
	case *ast.Read:
		return g.genRead(s)
	case *ast.Write:
		return g.genWrite(s)
	case *ast.NoOp:
		g.emit(NoOp{})
		return nil
	default:
		return &Error{Message: fmt.Sprintf("unknown statement node %T", stmt)}
	}
}

func (g *Generator) genAssign(s *ast.Assign) error {
	rhs, err := g.genExpr(s.Right)
	if err != nil {
		return err
	}
	rhs = g.coerce(rhs, s.Left.Type())
	g.emit(StoreVar{Dest: Var(s.Left.Name, s.Left.Type()), Src: rhs})
	return nil
}

func (g *Generator) genIf(s *ast.If) error {
	cond, err := g.genExpr(s.Condition)
	if err != nil {
		return err
	}
	elseLabel := g.newLabel()
	g.emit(CondJump{Cond: cond, IfFalse: true, Target: elseLabel})
	if err := g.genStatement(s.Then); err != nil {
		return err
	}
	if s.Else != nil {
		endLabel := g.newLabel()
		g.emit(Jump{Target: endLabel})
		g.emit(Label{Name: elseLabel})
		if err := g.genStatement(s.Else); err != nil {
			return err
		}
		g.emit(Label{Name: endLabel})
	} else {
		g.emit(Label{Name: elseLabel})
	}
	return nil
}

func (g *Generator) genWhile(s *ast.While) error {
	startLabel := g.newLabel()
	endLabel := g.newLabel()
	g.emit(Label{Name: startLabel})
	cond, err := g.genExpr(s.Condition)
	if err != nil {
		return err
	}
	g.emit(CondJump{Cond: cond, IfFalse: true, Target: endLabel})
	if err := g.genStatement(s.Body); err != nil {
		return err
	}
	g.emit(Jump{Target: startLabel})
	g.emit(Label{Name: endLabel})
	return nil
}

func (g *Generator) genCall(s *ast.ProcedureCall) error {
	procSym, _ := s.Symbol.(*semantic.ProcedureSymbol)
	args := make([]Operand, len(s.Actuals))
	for i, actual := range s.Actuals {
		op, err := g.genExpr(actual)
		if err != nil {
			return err
		}
		if procSym != nil && i < len(procSym.Params) {
			op = g.coerce(op, paramType(procSym.Params[i]))
		}
		args[i] = op
	}
	g.emit(Call{Proc: s.Name, Args: args})
	return nil
}

func paramType(v *semantic.VarSymbol) ast.NodeType {
	if v.Type.Name == "REAL" {
		return ast.TypeReal
	}
	return ast.TypeInteger
}

func (g *Generator) genRead(s *ast.Read) error {
	for _, v := range s.Variables {
		g.emit(Read{Dest: Var(v.Name, v.Type())})
	}
	return nil
}

func (g *Generator) genWrite(s *ast.Write) error {
	for _, e := range s.Expressions {
		op, err := g.genExpr(e)
		if err != nil {
			return err
		}
		g.emit(Write{Value: op})
	}
	return nil
}

// genExpr lowers an expression, returning the Operand holding its value.
// Constants are substituted at every use site rather than loaded from
// storage (see DESIGN.md: constants never occupy runtime storage).
func (g *Generator) genExpr(e ast.Expr) (Operand, error) {
	switch n := e.(type) {
	case *ast.Num:
		if n.IsReal {
			return RealConst(n.RealValue), nil
		}
		return IntConst(n.IntValue), nil
	case *ast.StringLiteral:
		return StrConst(n.Value), nil
	case *ast.Variable:
		if constSym, ok := n.Symbol.(*semantic.ConstSymbol); ok {
			return g.genExpr(constSym.Value)
		}
		return Var(n.Name, n.Type()), nil
	case *ast.BinOp:
		return g.genBinOp(n)
	case *ast.UnaryOp:
		return g.genUnaryOp(n)
	default:
		return Operand{}, &Error{Message: fmt.Sprintf("unknown expression node %T", e)}
	}
}

func (g *Generator) genBinOp(n *ast.BinOp) (Operand, error) {
	left, err := g.genExpr(n.Left)
	if err != nil {
		return Operand{}, err
	}
	right, err := g.genExpr(n.Right)
	if err != nil {
		return Operand{}, err
	}

	if operandPromotes(n.Op) {
		target := ast.TypeInteger
		if n.Op == lexer.TokenRealDiv || left.Type == ast.TypeReal || right.Type == ast.TypeReal {
			target = ast.TypeReal
		}
		if left.Type != ast.TypeString {
			left = g.coerce(left, target)
			right = g.coerce(right, target)
		}
	}

	dest := g.newTemp(n.Type())
	g.emit(BinOp{Dest: dest, Left: left, Op: n.Op.String(), Right: right})
	return dest, nil
}

// operandPromotes reports whether mixed INTEGER/REAL operands of this
// operator should be widened to a common type before the op executes.
// DIV/AND/OR require same-typed INTEGER operands by construction (the
// semantic analyzer already rejected anything else), so no widening
// applies to them.
func operandPromotes(op lexer.TokenType) bool {
	switch op {
	case lexer.TokenDiv, lexer.TokenAnd, lexer.TokenOr:
		return false
	default:
		return true
	}
}

func (g *Generator) genUnaryOp(n *ast.UnaryOp) (Operand, error) {
	operand, err := g.genExpr(n.Operand)
	if err != nil {
		return Operand{}, err
	}
	dest := g.newTemp(n.Type())
	g.emit(UnaryOp{Dest: dest, Op: n.Op.String(), Src: operand})
	return dest, nil
}

// coerce widens an INTEGER operand to REAL when want asks for REAL.
// Constant operands are widened at compile time; anything else gets an
// explicit TO_REAL conversion instruction.
func (g *Generator) coerce(op Operand, want ast.NodeType) Operand {
	if op.Type == want || want == ast.TypeUnknown {
		return op
	}
	if want == ast.TypeReal && op.Type == ast.TypeInteger {
		if op.Kind == OperandConst {
			return RealConst(float64(op.IntValue))
		}
		dest := g.newTemp(ast.TypeReal)
		g.emit(UnaryOp{Dest: dest, Op: "TO_REAL", Src: op})
		return dest
	}
	return op
}
