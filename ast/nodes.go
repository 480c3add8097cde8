// Package ast defines the typed syntax tree the parser produces and the
// semantic analyzer annotates.
package ast

import "github.com/lookbusy1344/pascal-compiler/lexer"

// NodeType is the set of value types a typed expression node can carry
// after semantic analysis.
type NodeType int

const (
	TypeUnknown NodeType = iota
	TypeInteger
	TypeReal
	TypeString
)

func (t NodeType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Symbol is implemented by semantic.VarSymbol, semantic.ConstSymbol,
// semantic.ProcedureSymbol and semantic.BuiltinTypeSymbol. The ast package
// only needs to hold a reference to whichever symbol a node resolved to;
// it never inspects the symbol itself, which keeps it free of a semantic
// import cycle.
type Symbol interface {
	SymbolName() string
}

// Node is implemented by every AST node. Each node carries the token that
// produced it, for error reporting.
type Node interface {
	Token() lexer.Token
}

// Expr is implemented by every node usable in expression position; these
// additionally carry a resolved NodeType once semantic analysis has run.
type Expr interface {
	Node
	Type() NodeType
	SetType(NodeType)
}

// Stmt is implemented by every node usable in statement position. It is a
// marker interface: statements carry no value type of their own.
type Stmt interface {
	Node
	stmtNode()
}

// exprBase factors the Type/SetType bookkeeping shared by every Expr.
type exprBase struct {
	Tok      lexer.Token
	nodeType NodeType
}

func (e *exprBase) Token() lexer.Token   { return e.Tok }
func (e *exprBase) Type() NodeType       { return e.nodeType }
func (e *exprBase) SetType(t NodeType)   { e.nodeType = t }

// Program is the root of the tree: `("PROGRAM" ID ";")? block "."`.
type Program struct {
	Tok  lexer.Token
	Name string
	Body *Block
}

func (p *Program) Token() lexer.Token { return p.Tok }

// Block is a declaration list followed by the compound statement that
// executes them.
type Block struct {
	Tok          lexer.Token
	Declarations []Node
	Body         *CompoundStatement
}

func (b *Block) Token() lexer.Token { return b.Tok }

// VarDecl declares one variable of a given type.
type VarDecl struct {
	Tok       lexer.Token
	Name      string
	TypeTok   lexer.Token
	TypeName  string
	NameToken lexer.Token
	Symbol    Symbol
}

func (d *VarDecl) Token() lexer.Token { return d.Tok }

// ConstDecl binds a name to a literal value; it never occupies runtime
// storage (§9 Open Questions) — the IR generator substitutes its value at
// every use site instead.
type ConstDecl struct {
	Tok       lexer.Token
	Name      string
	NameToken lexer.Token
	Value     Expr
	Symbol    Symbol
}

func (d *ConstDecl) Token() lexer.Token { return d.Tok }

// Param is one formal parameter of a ProcedureDecl.
type Param struct {
	Tok       lexer.Token
	Name      string
	NameToken lexer.Token
	TypeTok   lexer.Token
	TypeName  string
	Symbol    Symbol
}

func (p *Param) Token() lexer.Token { return p.Tok }

// ProcedureDecl declares a flat (non-nested) procedure.
type ProcedureDecl struct {
	Tok    lexer.Token
	Name   string
	Params []*Param
	Body   *Block
	Symbol Symbol
}

func (d *ProcedureDecl) Token() lexer.Token { return d.Tok }

// Num is an integer or real literal.
type Num struct {
	exprBase
	IntValue  int64
	RealValue float64
	IsReal    bool
}

// StringLiteral is a 'quoted' literal with escapes already resolved.
type StringLiteral struct {
	exprBase
	Value string
}

// Variable is an identifier used in value position.
type Variable struct {
	exprBase
	Name   string
	Symbol Symbol
}

// BinOp is a binary expression; Op is the lexer.TokenType of the operator.
type BinOp struct {
	exprBase
	Left  Expr
	Op    lexer.TokenType
	OpTok lexer.Token
	Right Expr
}

// UnaryOp is a prefix expression; Op is the lexer.TokenType of the operator.
type UnaryOp struct {
	exprBase
	Op      lexer.TokenType
	OpTok   lexer.Token
	Operand Expr
}

// Assign is `variable := expr`.
type Assign struct {
	Tok    lexer.Token
	Left   *Variable
	OpTok  lexer.Token
	Right  Expr
	NodeTy NodeType
}

func (a *Assign) Token() lexer.Token { return a.Tok }
func (a *Assign) stmtNode()          {}

// CompoundStatement is `BEGIN statement_list END`.
type CompoundStatement struct {
	Tok      lexer.Token
	Children []Stmt
}

func (c *CompoundStatement) Token() lexer.Token { return c.Tok }
func (c *CompoundStatement) stmtNode()          {}

// If is `IF cond THEN then (ELSE else)?`.
type If struct {
	Tok       lexer.Token
	Condition Expr
	Then      Stmt
	Else      Stmt // nil when there is no else branch
}

func (i *If) Token() lexer.Token { return i.Tok }
func (i *If) stmtNode()          {}

// While is `WHILE cond DO body`.
type While struct {
	Tok       lexer.Token
	Condition Expr
	Body      Stmt
}

func (w *While) Token() lexer.Token { return w.Tok }
func (w *While) stmtNode()          {}

// ProcedureCall is `ID ( "(" expr,* ")" )?`, used both as a statement and
// (per §9 Open Questions) the IR generator never fills a result, so it is
// never valid as a value expression.
type ProcedureCall struct {
	Tok     lexer.Token
	Name    string
	Actuals []Expr
	Symbol  Symbol
}

func (c *ProcedureCall) Token() lexer.Token { return c.Tok }
func (c *ProcedureCall) stmtNode()          {}

// Read is `READ(variable,+)`.
type Read struct {
	Tok       lexer.Token
	Variables []*Variable
}

func (r *Read) Token() lexer.Token { return r.Tok }
func (r *Read) stmtNode()          {}

// Write is `WRITE(expr,*)`.
type Write struct {
	Tok         lexer.Token
	Expressions []Expr
}

func (w *Write) Token() lexer.Token { return w.Tok }
func (w *Write) stmtNode()          {}

// NoOp is the empty statement.
type NoOp struct {
	Tok lexer.Token
}

func (n *NoOp) Token() lexer.Token { return n.Tok }
func (n *NoOp) stmtNode()          {}
