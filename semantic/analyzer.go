// Package semantic type-checks an ast.Program against a symbol table,
// resolving every identifier and annotating every expression node with
// its value type.
package semantic

import (
	"github.com/lookbusy1344/pascal-compiler/ast"
	"github.com/lookbusy1344/pascal-compiler/lexer"
)

// Analyzer walks a parsed program, building the global SymbolTable and
// checking the typing rules: declare-before-use, no redeclaration,
// procedure call arity, and the implicit numeric promotion rules
// (INTEGER widens to REAL; REAL narrowing to INTEGER is an error).
type Analyzer struct {
	Global *SymbolTable
}

// NewAnalyzer creates an Analyzer with a fresh global scope.
func NewAnalyzer() *Analyzer {
	return &Analyzer{Global: NewSymbolTable()}
}

// Analyze type-checks prog, annotating its nodes in place.
func Analyze(prog *ast.Program) (*SymbolTable, error) {
	a := NewAnalyzer()
	if err := a.visitBlock(prog.Body, a.Global); err != nil {
		return nil, err
	}
	return a.Global, nil
}

func (a *Analyzer) visitBlock(b *ast.Block, scope *SymbolTable) error {
	for _, decl := range b.Declarations {
		if err := a.visitDecl(decl, scope); err != nil {
			return err
		}
	}
	return a.visitCompound(b.Body, scope)
}

func (a *Analyzer) visitDecl(node ast.Node, scope *SymbolTable) error {
	switch d := node.(type) {
	case *ast.VarDecl:
		return a.visitVarDecl(d, scope)
	case *ast.ConstDecl:
		return a.visitConstDecl(d, scope)
	case *ast.ProcedureDecl:
		return a.visitProcedureDecl(d, scope)
	default:
		return newError(node.Token().Pos, "unknown declaration node %T", node)
	}
}

func (a *Analyzer) visitVarDecl(d *ast.VarDecl, scope *SymbolTable) error {
	if _, ok := scope.LookupLocal(d.Name); ok {
		return newError(d.NameToken.Pos, "%q is already declared in this scope", d.Name)
	}
	typeSym, ok := scope.Lookup(d.TypeName)
	if !ok {
		return newError(d.TypeTok.Pos, "unknown type %q", d.TypeName)
	}
	builtin, ok := typeSym.(*BuiltinTypeSymbol)
	if !ok {
		return newError(d.TypeTok.Pos, "%q is not a type", d.TypeName)
	}
	sym := &VarSymbol{Name: d.Name, Type: builtin}
	scope.Insert(sym)
	d.Symbol = sym
	return nil
}

func (a *Analyzer) visitConstDecl(d *ast.ConstDecl, scope *SymbolTable) error {
	if _, ok := scope.LookupLocal(d.Name); ok {
		return newError(d.NameToken.Pos, "%q is already declared in this scope", d.Name)
	}
	sym := &ConstSymbol{Name: d.Name, Type: d.Value.Type(), Value: d.Value}
	scope.Insert(sym)
	d.Symbol = sym
	return nil
}

func (a *Analyzer) visitProcedureDecl(d *ast.ProcedureDecl, scope *SymbolTable) error {
	if _, ok := scope.LookupLocal(d.Name); ok {
		return newError(d.Token().Pos, "%q is already declared in this scope", d.Name)
	}
	procSym := &ProcedureSymbol{Name: d.Name, Decl: d}
	scope.Insert(procSym)
	d.Symbol = procSym

	body := NewChildScope(scope)
	seen := make(map[string]bool)
	for _, param := range d.Params {
		if seen[param.Name] {
			return newError(param.NameToken.Pos, "duplicate parameter name %q", param.Name)
		}
		seen[param.Name] = true
		typeSym, ok := scope.Lookup(param.TypeName)
		if !ok {
			return newError(param.TypeTok.Pos, "unknown type %q", param.TypeName)
		}
		builtin, ok := typeSym.(*BuiltinTypeSymbol)
		if !ok {
			return newError(param.TypeTok.Pos, "%q is not a type", param.TypeName)
		}
		paramSym := &VarSymbol{Name: param.Name, Type: builtin}
		body.Insert(paramSym)
		param.Symbol = paramSym
		procSym.Params = append(procSym.Params, paramSym)
	}
	return a.visitBlock(d.Body, body)
}

func (a *Analyzer) visitCompound(c *ast.CompoundStatement, scope *SymbolTable) error {
	for _, stmt := range c.Children {
		if err := a.visitStatement(stmt, scope); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) visitStatement(stmt ast.Stmt, scope *SymbolTable) error {
	switch s := stmt.(type) {
	case *ast.CompoundStatement:
		return a.visitCompound(s, scope)
	case *ast.Assign:
		return a.visitAssign(s, scope)
	case *ast.If:
		return a.visitIf(s, scope)
	case *ast.While:
		return a.visitWhile(s, scope)
	case *ast.ProcedureCall:
		return a.visitProcedureCall(s, scope)
	case *ast.Read:
		return a.visitRead(s, scope)
	case *ast.Write:
		return a.visitWrite(s, scope)
	case *ast.NoOp:
		return nil
	default:
		return newError(stmt.Token().Pos, "unknown statement node %T", stmt)
	}
}

func (a *Analyzer) visitAssign(s *ast.Assign, scope *SymbolTable) error {
	if err := a.visitVariable(s.Left, scope); err != nil {
		return err
	}
	if _, ok := s.Left.Symbol.(*VarSymbol); !ok {
		return newError(s.Left.Tok.Pos, "cannot assign to constant %q", s.Left.Name)
	}
	rhsType, err := a.visitExpr(s.Right, scope)
	if err != nil {
		return err
	}
	lhsType := s.Left.Type()
	if !assignable(lhsType, rhsType) {
		return newError(s.OpTok.Pos, "cannot assign %s to a variable of type %s", rhsType, lhsType)
	}
	s.NodeTy = lhsType
	return nil
}

// assignable implements the implicit numeric promotion rule: an INTEGER
// value may be assigned to a REAL variable (the IR generator widens it),
// but assigning a REAL value to an INTEGER variable is a static error,
// since it would silently truncate. Same-type assignment is always
// allowed; STRING only assigns to STRING.
func assignable(lhs, rhs ast.NodeType) bool {
	if lhs == rhs {
		return true
	}
	return lhs == ast.TypeReal && rhs == ast.TypeInteger
}

func (a *Analyzer) visitIf(s *ast.If, scope *SymbolTable) error {
	if _, err := a.visitExpr(s.Condition, scope); err != nil {
		return err
	}
	if err := a.visitStatement(s.Then, scope); err != nil {
		return err
	}
	if s.Else != nil {
		return a.visitStatement(s.Else, scope)
	}
	return nil
}

func (a *Analyzer) visitWhile(s *ast.While, scope *SymbolTable) error {
	if _, err := a.visitExpr(s.Condition, scope); err != nil {
		return err
	}
	return a.visitStatement(s.Body, scope)
}

func (a *Analyzer) visitProcedureCall(s *ast.ProcedureCall, scope *SymbolTable) error {
	sym, ok := scope.Lookup(s.Name)
	if !ok {
		return newError(s.Tok.Pos, "call to undeclared procedure %q", s.Name)
	}
	procSym, ok := sym.(*ProcedureSymbol)
	if !ok {
		return newError(s.Tok.Pos, "%q is not a procedure", s.Name)
	}
	if len(s.Actuals) != len(procSym.Params) {
		return newError(s.Tok.Pos, "procedure %q expects %d argument(s), got %d",
			s.Name, len(procSym.Params), len(s.Actuals))
	}
	s.Symbol = procSym
	for i, actual := range s.Actuals {
		actualType, err := a.visitExpr(actual, scope)
		if err != nil {
			return err
		}
		if !assignable(ast.NodeType(paramBuiltinType(procSym.Params[i])), actualType) {
			return newError(actual.Token().Pos, "argument %d to %q has type %s, expected %s",
				i+1, s.Name, actualType, paramBuiltinType(procSym.Params[i]))
		}
	}
	return nil
}

func paramBuiltinType(v *VarSymbol) ast.NodeType {
	if v.Type.Name == "REAL" {
		return ast.TypeReal
	}
	return ast.TypeInteger
}

func (a *Analyzer) visitRead(s *ast.Read, scope *SymbolTable) error {
	for _, v := range s.Variables {
		if err := a.visitVariable(v, scope); err != nil {
			return err
		}
		if _, ok := v.Symbol.(*VarSymbol); !ok {
			return newError(v.Tok.Pos, "cannot READ into constant %q", v.Name)
		}
		if v.Type() == ast.TypeString {
			return newError(v.Tok.Pos, "cannot READ into a STRING variable")
		}
	}
	return nil
}

func (a *Analyzer) visitWrite(s *ast.Write, scope *SymbolTable) error {
	for _, e := range s.Expressions {
		if _, err := a.visitExpr(e, scope); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) visitVariable(v *ast.Variable, scope *SymbolTable) error {
	sym, ok := scope.Lookup(v.Name)
	if !ok {
		return newError(v.Tok.Pos, "undeclared identifier %q", v.Name)
	}
	switch s := sym.(type) {
	case *VarSymbol:
		v.Symbol = s
		v.SetType(paramBuiltinType(s))
	case *ConstSymbol:
		v.Symbol = s
		v.SetType(s.Type)
	default:
		return newError(v.Tok.Pos, "%q is not a variable", v.Name)
	}
	return nil
}

// visitExpr type-checks an expression bottom-up and returns its
// resolved NodeType, also storing it on the node itself.
func (a *Analyzer) visitExpr(e ast.Expr, scope *SymbolTable) (ast.NodeType, error) {
	switch n := e.(type) {
	case *ast.Num:
		return n.Type(), nil
	case *ast.StringLiteral:
		return n.Type(), nil
	case *ast.Variable:
		if err := a.visitVariable(n, scope); err != nil {
			return ast.TypeUnknown, err
		}
		return n.Type(), nil
	case *ast.BinOp:
		return a.visitBinOp(n, scope)
	case *ast.UnaryOp:
		return a.visitUnaryOp(n, scope)
	default:
		return ast.TypeUnknown, newError(e.Token().Pos, "unknown expression node %T", e)
	}
}

func (a *Analyzer) visitBinOp(n *ast.BinOp, scope *SymbolTable) (ast.NodeType, error) {
	leftType, err := a.visitExpr(n.Left, scope)
	if err != nil {
		return ast.TypeUnknown, err
	}
	rightType, err := a.visitExpr(n.Right, scope)
	if err != nil {
		return ast.TypeUnknown, err
	}

	var resultType ast.NodeType
	switch n.Op {
	case lexer.TokenPlus:
		if leftType == ast.TypeString || rightType == ast.TypeString {
			if leftType != ast.TypeString || rightType != ast.TypeString {
				return ast.TypeUnknown, newError(n.OpTok.Pos, "cannot add %s and %s", leftType, rightType)
			}
			resultType = ast.TypeString
			break
		}
		resultType, err = numericResult(n.OpTok, leftType, rightType)
	case lexer.TokenMinus, lexer.TokenMul:
		resultType, err = numericResult(n.OpTok, leftType, rightType)
	case lexer.TokenRealDiv:
		if err := requireNumeric(n.OpTok, leftType, rightType); err != nil {
			return ast.TypeUnknown, err
		}
		resultType = ast.TypeReal
	case lexer.TokenDiv:
		if leftType != ast.TypeInteger || rightType != ast.TypeInteger {
			return ast.TypeUnknown, newError(n.OpTok.Pos, "DIV requires two INTEGER operands, got %s and %s", leftType, rightType)
		}
		resultType = ast.TypeInteger
	case lexer.TokenAnd, lexer.TokenOr:
		if leftType != ast.TypeInteger || rightType != ast.TypeInteger {
			return ast.TypeUnknown, newError(n.OpTok.Pos, "%s requires two INTEGER operands, got %s and %s", n.Op, leftType, rightType)
		}
		resultType = ast.TypeInteger
	case lexer.TokenEqual, lexer.TokenNotEqual, lexer.TokenLess,
		lexer.TokenLessEqual, lexer.TokenGreater, lexer.TokenGreaterEqual:
		if leftType == ast.TypeString || rightType == ast.TypeString {
			if leftType != rightType {
				return ast.TypeUnknown, newError(n.OpTok.Pos, "cannot compare %s and %s", leftType, rightType)
			}
		} else if err := requireNumeric(n.OpTok, leftType, rightType); err != nil {
			return ast.TypeUnknown, err
		}
		resultType = ast.TypeInteger
	default:
		return ast.TypeUnknown, newError(n.OpTok.Pos, "unsupported operator %s", n.Op)
	}
	if err != nil {
		return ast.TypeUnknown, err
	}
	n.SetType(resultType)
	return resultType, nil
}

func requireNumeric(opTok lexer.Token, leftType, rightType ast.NodeType) error {
	if !isNumeric(leftType) || !isNumeric(rightType) {
		return newError(opTok.Pos, "operator %s requires numeric operands, got %s and %s", opTok.Type, leftType, rightType)
	}
	return nil
}

func isNumeric(t ast.NodeType) bool {
	return t == ast.TypeInteger || t == ast.TypeReal
}

// numericResult applies the implicit promotion rule: if either operand
// is REAL the result is REAL, otherwise INTEGER.
func numericResult(opTok lexer.Token, leftType, rightType ast.NodeType) (ast.NodeType, error) {
	if err := requireNumeric(opTok, leftType, rightType); err != nil {
		return ast.TypeUnknown, err
	}
	if leftType == ast.TypeReal || rightType == ast.TypeReal {
		return ast.TypeReal, nil
	}
	return ast.TypeInteger, nil
}

func (a *Analyzer) visitUnaryOp(n *ast.UnaryOp, scope *SymbolTable) (ast.NodeType, error) {
	operandType, err := a.visitExpr(n.Operand, scope)
	if err != nil {
		return ast.TypeUnknown, err
	}
	switch n.Op {
	case lexer.TokenPlus, lexer.TokenMinus:
		if !isNumeric(operandType) {
			return ast.TypeUnknown, newError(n.OpTok.Pos, "unary %s requires a numeric operand, got %s", n.Op, operandType)
		}
		n.SetType(operandType)
	case lexer.TokenNot:
		if operandType != ast.TypeInteger {
			return ast.TypeUnknown, newError(n.OpTok.Pos, "NOT requires an INTEGER operand, got %s", operandType)
		}
		n.SetType(ast.TypeInteger)
	default:
		return ast.TypeUnknown, newError(n.OpTok.Pos, "unsupported unary operator %s", n.Op)
	}
	return n.Type(), nil
}
