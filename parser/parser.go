// Package parser implements a recursive-descent parser that turns a
// lexer.Lexer's token stream into an ast.Program.
package parser

import (
	"github.com/lookbusy1344/pascal-compiler/ast"
	"github.com/lookbusy1344/pascal-compiler/lexer"
)

// Parser consumes tokens from a lexer.Lexer and builds an ast.Program.
// It keeps exactly one token of lookahead, matching the teacher's
// single-current-token parser shape in parser/parser.go.
type Parser struct {
	lex *lexer.Lexer
	cur lexer.Token
}

// New creates a Parser over src and primes the first lookahead token.
func New(src string) (*Parser, error) {
	l := lexer.New(src)
	p := &Parser{lex: l}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) peekNext() (lexer.Token, error) {
	return p.lex.PeekToken()
}

func (p *Parser) eat(tt lexer.TokenType) (lexer.Token, error) {
	if p.cur.Type != tt {
		return lexer.Token{}, newError(p.cur.Pos, "expected %s, got %s", tt, p.cur.Type)
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return lexer.Token{}, err
	}
	return tok, nil
}

// Parse parses a complete program: ("PROGRAM" ID ";")? block "." .
func Parse(src string) (*ast.Program, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	tok := p.cur
	name := "Main"
	if p.cur.Type == lexer.TokenProgram {
		if _, err := p.eat(lexer.TokenProgram); err != nil {
			return nil, err
		}
		idTok, err := p.eat(lexer.TokenID)
		if err != nil {
			return nil, err
		}
		name = idTok.Value.(string)
		if _, err := p.eat(lexer.TokenSemi); err != nil {
			return nil, err
		}
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenDot); err != nil {
		return nil, err
	}
	return &ast.Program{Tok: tok, Name: name, Body: block}, nil
}

// block is declarations followed by a compound statement.
func (p *Parser) parseBlock() (*ast.Block, error) {
	tok := p.cur
	var decls []ast.Node

	for {
		switch p.cur.Type {
		case lexer.TokenVar:
			vd, err := p.parseVarPart()
			if err != nil {
				return nil, err
			}
			decls = append(decls, vd...)
		case lexer.TokenConst:
			cd, err := p.parseConstPart()
			if err != nil {
				return nil, err
			}
			decls = append(decls, cd...)
		case lexer.TokenProcedure:
			pd, err := p.parseProcedureDecl()
			if err != nil {
				return nil, err
			}
			decls = append(decls, pd)
		default:
			body, err := p.parseCompoundStatement()
			if err != nil {
				return nil, err
			}
			return &ast.Block{Tok: tok, Declarations: decls, Body: body}, nil
		}
	}
}

// var_part is "VAR" (ID,+ ":" type ";")+ .
func (p *Parser) parseVarPart() ([]ast.Node, error) {
	if _, err := p.eat(lexer.TokenVar); err != nil {
		return nil, err
	}
	var decls []ast.Node
	for p.cur.Type == lexer.TokenID {
		names, nameToks, err := p.parseIDList()
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.TokenColon); err != nil {
			return nil, err
		}
		typeTok, typeName, err := p.parseTypeSpec()
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.TokenSemi); err != nil {
			return nil, err
		}
		for i, name := range names {
			decls = append(decls, &ast.VarDecl{
				Tok:       nameToks[i],
				Name:      name,
				TypeTok:   typeTok,
				TypeName:  typeName,
				NameToken: nameToks[i],
			})
		}
	}
	return decls, nil
}

func (p *Parser) parseIDList() ([]string, []lexer.Token, error) {
	var names []string
	var toks []lexer.Token
	tok, err := p.eat(lexer.TokenID)
	if err != nil {
		return nil, nil, err
	}
	names = append(names, tok.Value.(string))
	toks = append(toks, tok)
	for p.cur.Type == lexer.TokenComma {
		if _, err := p.eat(lexer.TokenComma); err != nil {
			return nil, nil, err
		}
		tok, err := p.eat(lexer.TokenID)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, tok.Value.(string))
		toks = append(toks, tok)
	}
	return names, toks, nil
}

func (p *Parser) parseTypeSpec() (lexer.Token, string, error) {
	switch p.cur.Type {
	case lexer.TokenInteger:
		tok, err := p.eat(lexer.TokenInteger)
		return tok, "INTEGER", err
	case lexer.TokenReal:
		tok, err := p.eat(lexer.TokenReal)
		return tok, "REAL", err
	default:
		return lexer.Token{}, "", newError(p.cur.Pos, "expected a type name, got %s", p.cur.Type)
	}
}

// const_part is "CONST" (ID "=" constant ";")+ .
func (p *Parser) parseConstPart() ([]ast.Node, error) {
	if _, err := p.eat(lexer.TokenConst); err != nil {
		return nil, err
	}
	var decls []ast.Node
	for p.cur.Type == lexer.TokenID {
		nameTok, err := p.eat(lexer.TokenID)
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.TokenEqual); err != nil {
			return nil, err
		}
		value, err := p.parseConstantLiteral()
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.TokenSemi); err != nil {
			return nil, err
		}
		decls = append(decls, &ast.ConstDecl{
			Tok:       nameTok,
			Name:      nameTok.Value.(string),
			NameToken: nameTok,
			Value:     value,
		})
	}
	return decls, nil
}

// parseConstantLiteral parses the restricted constant grammar: an
// optionally-signed number or a string literal.
func (p *Parser) parseConstantLiteral() (ast.Expr, error) {
	switch p.cur.Type {
	case lexer.TokenPlus, lexer.TokenMinus:
		opTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		num, err := p.parseNumberLiteral()
		if err != nil {
			return nil, err
		}
		if opTok.Type == lexer.TokenMinus {
			return negateNum(opTok, num), nil
		}
		return num, nil
	case lexer.TokenIntegerConst, lexer.TokenRealConst:
		return p.parseNumberLiteral()
	case lexer.TokenStringLiteral:
		tok, err := p.eat(lexer.TokenStringLiteral)
		if err != nil {
			return nil, err
		}
		n := &ast.StringLiteral{Value: tok.Value.(string)}
		n.Tok = tok
		n.SetType(ast.TypeString)
		return n, nil
	default:
		return nil, newError(p.cur.Pos, "expected a constant literal, got %s", p.cur.Type)
	}
}

func (p *Parser) parseNumberLiteral() (*ast.Num, error) {
	tok := p.cur
	switch tok.Type {
	case lexer.TokenIntegerConst:
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.Num{IntValue: tok.Value.(int64)}
		n.Tok = tok
		n.SetType(ast.TypeInteger)
		return n, nil
	case lexer.TokenRealConst:
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.Num{RealValue: tok.Value.(float64), IsReal: true}
		n.Tok = tok
		n.SetType(ast.TypeReal)
		return n, nil
	default:
		return nil, newError(tok.Pos, "expected a number literal, got %s", tok.Type)
	}
}

func negateNum(opTok lexer.Token, num *ast.Num) *ast.Num {
	if num.IsReal {
		n := &ast.Num{RealValue: -num.RealValue, IsReal: true}
		n.Tok = opTok
		n.SetType(ast.TypeReal)
		return n
	}
	n := &ast.Num{IntValue: -num.IntValue}
	n.Tok = opTok
	n.SetType(ast.TypeInteger)
	return n
}

// proc_decl is "PROCEDURE" ID ("(" param_list ")")? ";" block ";" .
func (p *Parser) parseProcedureDecl() (*ast.ProcedureDecl, error) {
	tok, err := p.eat(lexer.TokenProcedure)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.eat(lexer.TokenID)
	if err != nil {
		return nil, err
	}
	var params []*ast.Param
	if p.cur.Type == lexer.TokenLParen {
		if _, err := p.eat(lexer.TokenLParen); err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.TokenRParen {
			params, err = p.parseParamList()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.eat(lexer.TokenRParen); err != nil {
			return nil, err
		}
	}
	if _, err := p.eat(lexer.TokenSemi); err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenSemi); err != nil {
		return nil, err
	}
	return &ast.ProcedureDecl{
		Tok:    tok,
		Name:   nameTok.Value.(string),
		Params: params,
		Body:   block,
	}, nil
}

func (p *Parser) parseParamList() ([]*ast.Param, error) {
	var params []*ast.Param
	group, err := p.parseParamGroup()
	if err != nil {
		return nil, err
	}
	params = append(params, group...)
	for p.cur.Type == lexer.TokenSemi {
		if _, err := p.eat(lexer.TokenSemi); err != nil {
			return nil, err
		}
		group, err := p.parseParamGroup()
		if err != nil {
			return nil, err
		}
		params = append(params, group...)
	}
	return params, nil
}

func (p *Parser) parseParamGroup() ([]*ast.Param, error) {
	names, toks, err := p.parseIDList()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenColon); err != nil {
		return nil, err
	}
	typeTok, typeName, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	params := make([]*ast.Param, len(names))
	for i, name := range names {
		params[i] = &ast.Param{
			Tok:       toks[i],
			Name:      name,
			NameToken: toks[i],
			TypeTok:   typeTok,
			TypeName:  typeName,
		}
	}
	return params, nil
}

// parseCompoundStatement is "BEGIN" statement_list "END" .
func (p *Parser) parseCompoundStatement() (*ast.CompoundStatement, error) {
	tok, err := p.eat(lexer.TokenBegin)
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatementList()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenEnd); err != nil {
		return nil, err
	}
	return &ast.CompoundStatement{Tok: tok, Children: stmts}, nil
}

func (p *Parser) parseStatementList() ([]ast.Stmt, error) {
	first, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmts := []ast.Stmt{first}
	for p.cur.Type == lexer.TokenSemi {
		if _, err := p.eat(lexer.TokenSemi); err != nil {
			return nil, err
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// parseStatement dispatches on the current token. A bare ID followed by a
// statement terminator (SEMI/END/the outer EOF/ELSE) is a parameterless
// procedure call; ID followed by ":=" is an assignment; ID followed by
// "(" is a procedure call with arguments. This ambiguity needs one token
// of lookahead beyond the identifier, which PeekToken on the lexer
// provides without disturbing the parser's own single-token-lookahead
// invariant.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.cur.Type {
	case lexer.TokenBegin:
		return p.parseCompoundStatement()
	case lexer.TokenIf:
		return p.parseIfStatement()
	case lexer.TokenWhile:
		return p.parseWhileStatement()
	case lexer.TokenRead:
		return p.parseReadStatement()
	case lexer.TokenWrite:
		return p.parseWriteStatement()
	case lexer.TokenID:
		return p.parseIDStatement()
	default:
		return &ast.NoOp{Tok: p.cur}, nil
	}
}

func (p *Parser) parseIDStatement() (ast.Stmt, error) {
	nameTok := p.cur
	next, err := p.peekNext()
	if err != nil {
		return nil, err
	}
	switch next.Type {
	case lexer.TokenAssign:
		return p.parseAssignment()
	case lexer.TokenLParen:
		return p.parseProcedureCall()
	default:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ProcedureCall{Tok: nameTok, Name: nameTok.Value.(string)}, nil
	}
}

func (p *Parser) parseAssignment() (*ast.Assign, error) {
	v, err := p.parseVariable()
	if err != nil {
		return nil, err
	}
	opTok, err := p.eat(lexer.TokenAssign)
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Tok: v.Tok, Left: v, OpTok: opTok, Right: rhs}, nil
}

func (p *Parser) parseProcedureCall() (*ast.ProcedureCall, error) {
	nameTok, err := p.eat(lexer.TokenID)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var actuals []ast.Expr
	if p.cur.Type != lexer.TokenRParen {
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		actuals = append(actuals, first)
		for p.cur.Type == lexer.TokenComma {
			if _, err := p.eat(lexer.TokenComma); err != nil {
				return nil, err
			}
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			actuals = append(actuals, arg)
		}
	}
	if _, err := p.eat(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return &ast.ProcedureCall{Tok: nameTok, Name: nameTok.Value.(string), Actuals: actuals}, nil
}

// parseIfStatement resolves the dangling else by greedily attaching an
// ELSE to the nearest preceding unmatched IF, which falls out naturally
// from recursive descent: the ELSE check happens right after parsing the
// THEN branch, before returning to any enclosing caller.
func (p *Parser) parseIfStatement() (*ast.If, error) {
	tok, err := p.eat(lexer.TokenIf)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenThen); err != nil {
		return nil, err
	}
	thenStmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if p.cur.Type == lexer.TokenElse {
		if _, err := p.eat(lexer.TokenElse); err != nil {
			return nil, err
		}
		elseStmt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.If{Tok: tok, Condition: cond, Then: thenStmt, Else: elseStmt}, nil
}

func (p *Parser) parseWhileStatement() (*ast.While, error) {
	tok, err := p.eat(lexer.TokenWhile)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenDo); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.While{Tok: tok, Condition: cond, Body: body}, nil
}

func (p *Parser) parseReadStatement() (*ast.Read, error) {
	tok, err := p.eat(lexer.TokenRead)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var vars []*ast.Variable
	v, err := p.parseVariable()
	if err != nil {
		return nil, err
	}
	vars = append(vars, v)
	for p.cur.Type == lexer.TokenComma {
		if _, err := p.eat(lexer.TokenComma); err != nil {
			return nil, err
		}
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	if _, err := p.eat(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return &ast.Read{Tok: tok, Variables: vars}, nil
}

func (p *Parser) parseWriteStatement() (*ast.Write, error) {
	tok, err := p.eat(lexer.TokenWrite)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var exprs []ast.Expr
	if p.cur.Type != lexer.TokenRParen {
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, first)
		for p.cur.Type == lexer.TokenComma {
			if _, err := p.eat(lexer.TokenComma); err != nil {
				return nil, err
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
	}
	if _, err := p.eat(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return &ast.Write{Tok: tok, Expressions: exprs}, nil
}

func (p *Parser) parseVariable() (*ast.Variable, error) {
	tok, err := p.eat(lexer.TokenID)
	if err != nil {
		return nil, err
	}
	v := &ast.Variable{Name: tok.Value.(string)}
	v.Tok = tok
	return v, nil
}

// Expression grammar, lowest to highest precedence:
//
//	expr        -> or_expr
//	or_expr     -> and_expr ("OR" and_expr)*
//	and_expr    -> not_expr ("AND" not_expr)*
//	not_expr    -> "NOT" not_expr | cmp_expr
//	cmp_expr    -> simple_expr ( (= | <> | < | <= | > | >=) simple_expr )?
//	simple_expr -> term ( (+ | -) term )*
//	term        -> factor ( (* | / | DIV) factor )*
//	factor      -> (+ | -) factor | "(" expr ")" | INTEGER_CONST |
//	               REAL_CONST | STRING_LITERAL | variable

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOrExpr()
}

func (p *Parser) parseOrExpr() (ast.Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.TokenOr {
		opTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		n := &ast.BinOp{Left: left, Op: opTok.Type, OpTok: opTok, Right: right}
		n.Tok = opTok
		left = n
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (ast.Expr, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.TokenAnd {
		opTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		n := &ast.BinOp{Left: left, Op: opTok.Type, OpTok: opTok, Right: right}
		n.Tok = opTok
		left = n
	}
	return left, nil
}

// parseNotExpr handles "NOT", which binds to an entire cmp_expr (and may
// stack, "NOT NOT x") rather than just the next factor — "NOT x = y" is
// "NOT (x = y)", not "(NOT x) = y".
func (p *Parser) parseNotExpr() (ast.Expr, error) {
	if p.cur.Type == lexer.TokenNot {
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		n := &ast.UnaryOp{Op: tok.Type, OpTok: tok, Operand: operand}
		n.Tok = tok
		return n, nil
	}
	return p.parseCmpExpr()
}

func (p *Parser) parseCmpExpr() (ast.Expr, error) {
	left, err := p.parseSimpleExpr()
	if err != nil {
		return nil, err
	}
	switch p.cur.Type {
	case lexer.TokenEqual, lexer.TokenNotEqual, lexer.TokenLess,
		lexer.TokenLessEqual, lexer.TokenGreater, lexer.TokenGreaterEqual:
		opTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseSimpleExpr()
		if err != nil {
			return nil, err
		}
		n := &ast.BinOp{Left: left, Op: opTok.Type, OpTok: opTok, Right: right}
		n.Tok = opTok
		return n, nil
	}
	return left, nil
}

func (p *Parser) parseSimpleExpr() (ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.TokenPlus || p.cur.Type == lexer.TokenMinus {
		opTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		n := &ast.BinOp{Left: left, Op: opTok.Type, OpTok: opTok, Right: right}
		n.Tok = opTok
		left = n
	}
	return left, nil
}

func (p *Parser) parseTerm() (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.TokenMul || p.cur.Type == lexer.TokenRealDiv ||
		p.cur.Type == lexer.TokenDiv {
		opTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		n := &ast.BinOp{Left: left, Op: opTok.Type, OpTok: opTok, Right: right}
		n.Tok = opTok
		left = n
	}
	return left, nil
}

func (p *Parser) parseFactor() (ast.Expr, error) {
	tok := p.cur
	switch tok.Type {
	case lexer.TokenPlus, lexer.TokenMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		n := &ast.UnaryOp{Op: tok.Type, OpTok: tok, Operand: operand}
		n.Tok = tok
		return n, nil
	case lexer.TokenLParen:
		if _, err := p.eat(lexer.TokenLParen); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.TokenIntegerConst, lexer.TokenRealConst:
		return p.parseNumberLiteral()
	case lexer.TokenStringLiteral:
		if _, err := p.eat(lexer.TokenStringLiteral); err != nil {
			return nil, err
		}
		n := &ast.StringLiteral{Value: tok.Value.(string)}
		n.Tok = tok
		n.SetType(ast.TypeString)
		return n, nil
	case lexer.TokenID:
		return p.parseVariable()
	default:
		return nil, newError(tok.Pos, "unexpected token %s in expression", tok.Type)
	}
}
