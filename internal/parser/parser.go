// Package parser implements a recursive-descent parser: token stream →
// *ast.Program. One method per grammar production, a Pratt-style
// precedence climb for the binary-operator chain, and fail-fast error
// reporting — the first offending token aborts parsing immediately with
// a *diagnostic.ParseError rather than attempting recovery.
package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"mlsec/internal/ast"
	"mlsec/internal/diagnostic"
	"mlsec/internal/lexer"
)

var dunderPattern = regexp.MustCompile(`^__.*__$`)

// precedence levels, lowest to highest:
// || < && < equality < relational < additive < multiplicative < unary < postfix
const (
	precLowest = iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binPrec = map[lexer.Kind]int{
	lexer.OR:      precOr,
	lexer.AND:     precAnd,
	lexer.EQ:      precEquality,
	lexer.NEQ:     precEquality,
	lexer.LT:      precRelational,
	lexer.LTE:     precRelational,
	lexer.GT:      precRelational,
	lexer.GTE:     precRelational,
	lexer.PLUS:    precAdditive,
	lexer.MINUS:   precAdditive,
	lexer.STAR:    precMultiplicative,
	lexer.SLASH:   precMultiplicative,
	lexer.PERCENT: precMultiplicative,
}

var binOps = map[lexer.Kind]ast.BinaryOp{
	lexer.OR: ast.OpOr, lexer.AND: ast.OpAnd,
	lexer.EQ: ast.OpEq, lexer.NEQ: ast.OpNeq,
	lexer.LT: ast.OpLt, lexer.LTE: ast.OpLte, lexer.GT: ast.OpGt, lexer.GTE: ast.OpGte,
	lexer.PLUS: ast.OpAdd, lexer.MINUS: ast.OpSub,
	lexer.STAR: ast.OpMul, lexer.SLASH: ast.OpDiv, lexer.PERCENT: ast.OpMod,
}

// Parser holds the two-token lookahead state over one source unit.
type Parser struct {
	lex       *lexer.Lexer
	filename  string
	cur, peek lexer.Token
}

// Parse scans and parses source into a *ast.Program, or returns the first
// *diagnostic.ParseError encountered.
func Parse(source []byte, filename string) (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*diagnostic.ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	p := &Parser{lex: lexer.New(source, filename), filename: filename}
	p.advance()
	p.advance()
	prog = p.parseProgram()
	return prog, nil
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) fail(span ast.Span, expected, found string) {
	panic(&diagnostic.ParseError{File: p.filename, Span: span, Expected: expected, Found: found})
}

func (p *Parser) expect(k lexer.Kind) lexer.Token {
	if p.cur.Kind != k {
		p.fail(p.cur.Span, k.String(), p.describeCur())
	}
	t := p.cur
	p.advance()
	return t
}

func (p *Parser) describeCur() string {
	if p.cur.Lexeme != "" {
		return fmt.Sprintf("%s %q", p.cur.Kind, p.cur.Lexeme)
	}
	return p.cur.Kind.String()
}

func span2(a, b ast.Span) ast.Span {
	return ast.Span{Start: a.Start, End: b.End, Line: a.Line, Column: a.Column}
}

func (p *Parser) parseProgram() *ast.Program {
	start := p.cur.Span
	prog := &ast.Program{}
	for p.cur.Kind != lexer.EOF {
		switch p.cur.Kind {
		case lexer.KwCapability:
			prog.Capabilities = append(prog.Capabilities, p.parseCapabilityDecl())
		case lexer.KwImport:
			prog.Imports = append(prog.Imports, p.parseImportDecl())
		default:
			prog.Statements = append(prog.Statements, p.parseStatement())
		}
	}
	prog.Span = span2(start, p.cur.Span)
	return prog
}

func (p *Parser) parseCapabilityDecl() *ast.CapabilityDecl {
	start := p.expect(lexer.KwCapability).Span
	name := p.expect(lexer.IDENT).Lexeme
	p.expect(lexer.LBRACE)
	decl := &ast.CapabilityDecl{Name: name}
	for p.cur.Kind != lexer.RBRACE {
		switch p.cur.Kind {
		case lexer.KwResource:
			p.advance()
			decl.ResourcePatterns = append(decl.ResourcePatterns, p.expect(lexer.STRING).Lexeme)
			p.expect(lexer.SEMI)
		case lexer.KwAllow:
			itemStart := p.cur.Span
			p.advance()
			op := p.expect(lexer.IDENT).Lexeme
			to := ""
			if p.cur.Kind == lexer.KwTo {
				p.advance()
				to = p.expect(lexer.STRING).Lexeme
			}
			end := p.cur.Span
			p.expect(lexer.SEMI)
			decl.Allows = append(decl.Allows, ast.CapabilityAllow{Span: span2(itemStart, end), Operation: op, To: to})
		default:
			p.fail(p.cur.Span, `"resource" or "allow"`, p.describeCur())
		}
	}
	end := p.expect(lexer.RBRACE).Span
	decl.Span = span2(start, end)
	return decl
}

func (p *Parser) parseImportDecl() *ast.ImportDecl {
	start := p.expect(lexer.KwImport).Span
	decl := &ast.ImportDecl{}
	decl.Path = append(decl.Path, p.expect(lexer.IDENT).Lexeme)
	for p.cur.Kind == lexer.DOT {
		p.advance()
		decl.Path = append(decl.Path, p.expect(lexer.IDENT).Lexeme)
	}
	if p.cur.Kind == lexer.KwAs {
		p.advance()
		decl.Alias = p.expect(lexer.IDENT).Lexeme
	}
	end := p.cur.Span
	p.expect(lexer.SEMI)
	decl.Span = span2(start, end)
	return decl
}

func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(lexer.LBRACE).Span
	b := &ast.Block{}
	for p.cur.Kind != lexer.RBRACE {
		b.Statements = append(b.Statements, p.parseStatement())
	}
	end := p.expect(lexer.RBRACE).Span
	b.Span = span2(start, end)
	return b
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur.Kind {
	case lexer.KwFunction:
		return p.parseFunctionDecl()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwTry:
		return p.parseTry()
	case lexer.KwReturn:
		return p.parseReturn()
	case lexer.KwBreak:
		start := p.cur.Span
		p.advance()
		p.expect(lexer.SEMI)
		brk := &ast.BreakStmt{}
		brk.Span = start
		return brk
	case lexer.KwContinue:
		start := p.cur.Span
		p.advance()
		p.expect(lexer.SEMI)
		cnt := &ast.ContinueStmt{}
		cnt.Span = start
		return cnt
	case lexer.LBRACE:
		return p.parseBlock()
	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	start := p.expect(lexer.KwFunction).Span
	name := p.expect(lexer.IDENT).Lexeme
	p.expect(lexer.LPAREN)
	var params []string
	for p.cur.Kind != lexer.RPAREN {
		params = append(params, p.expect(lexer.IDENT).Lexeme)
		if p.cur.Kind == lexer.COMMA {
			p.advance()
		}
	}
	p.expect(lexer.RPAREN)
	body := p.parseBlock()
	fn := &ast.FunctionDecl{Name: name, Params: params, Body: body}
	fn.Span = span2(start, body.Span)
	return fn
}

func (p *Parser) parseIf() *ast.IfStmt {
	start := p.expect(lexer.KwIf).Span
	p.expect(lexer.LPAREN)
	cond := p.parseExpr()
	p.expect(lexer.RPAREN)
	then := p.parseBlock()
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	end := then.Span
	for p.cur.Kind == lexer.KwElif {
		p.advance()
		p.expect(lexer.LPAREN)
		econd := p.parseExpr()
		p.expect(lexer.RPAREN)
		ebody := p.parseBlock()
		stmt.ElifClauses = append(stmt.ElifClauses, ast.ElifClause{Cond: econd, Body: ebody})
		end = ebody.Span
	}
	if p.cur.Kind == lexer.KwElse {
		p.advance()
		stmt.Else = p.parseBlock()
		end = stmt.Else.Span
	}
	stmt.Span = span2(start, end)
	return stmt
}

func (p *Parser) parseWhile() *ast.WhileStmt {
	start := p.expect(lexer.KwWhile).Span
	p.expect(lexer.LPAREN)
	cond := p.parseExpr()
	p.expect(lexer.RPAREN)
	body := p.parseBlock()
	stmt := &ast.WhileStmt{Cond: cond, Body: body}
	stmt.Span = span2(start, body.Span)
	return stmt
}

func (p *Parser) parseFor() *ast.ForStmt {
	start := p.expect(lexer.KwFor).Span
	p.expect(lexer.LPAREN)
	v := p.expect(lexer.IDENT).Lexeme
	p.expect(lexer.KwIn)
	iter := p.parseExpr()
	p.expect(lexer.RPAREN)
	body := p.parseBlock()
	stmt := &ast.ForStmt{Var: v, Iter: iter, Body: body}
	stmt.Span = span2(start, body.Span)
	return stmt
}

func (p *Parser) parseTry() *ast.TryStmt {
	start := p.expect(lexer.KwTry).Span
	body := p.parseBlock()
	stmt := &ast.TryStmt{Body: body}
	end := body.Span
	for p.cur.Kind == lexer.KwExcept {
		p.advance()
		var binding string
		if p.cur.Kind == lexer.LPAREN {
			p.advance()
			binding = p.expect(lexer.IDENT).Lexeme
			p.expect(lexer.RPAREN)
		}
		ebody := p.parseBlock()
		stmt.ExceptClauses = append(stmt.ExceptClauses, ast.ExceptClause{Binding: binding, Body: ebody})
		end = ebody.Span
	}
	if p.cur.Kind == lexer.KwFinally {
		p.advance()
		stmt.Finally = p.parseBlock()
		end = stmt.Finally.Span
	}
	stmt.Span = span2(start, end)
	return stmt
}

func (p *Parser) parseReturn() *ast.ReturnStmt {
	start := p.expect(lexer.KwReturn).Span
	stmt := &ast.ReturnStmt{}
	stmt.Span = start
	if p.cur.Kind != lexer.SEMI {
		stmt.Value = p.parseExpr()
	}
	end := p.cur.Span
	p.expect(lexer.SEMI)
	stmt.Span = span2(start, end)
	return stmt
}

// parseAssignOrExprStmt disambiguates `target = expr;` from a bare
// expression statement by parsing an expression first and checking
// whether an `=` follows — matching how the grammar only terminates
// either form with `;`.
func (p *Parser) parseAssignOrExprStmt() ast.Stmt {
	start := p.cur.Span
	x := p.parseExpr()
	if p.cur.Kind == lexer.ASSIGN {
		switch x.(type) {
		case *ast.Identifier, *ast.MemberExpr, *ast.IndexExpr:
		default:
			p.fail(x.Pos(), "assignable target", "non-assignable expression")
		}
		p.advance()
		value := p.parseExpr()
		end := p.cur.Span
		p.expect(lexer.SEMI)
		assign := &ast.AssignStmt{Target: x, Value: value}
		assign.Span = span2(start, end)
		return assign
	}
	end := p.cur.Span
	p.expect(lexer.SEMI)
	exprStmt := &ast.ExprStmt{X: x}
	exprStmt.Span = span2(start, end)
	return exprStmt
}

// --- expressions ---

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(precLowest)
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec, ok := binPrec[p.cur.Kind]
		if !ok || prec < minPrec {
			return left
		}
		op := binOps[p.cur.Kind]
		p.advance()
		right := p.parseBinary(prec + 1)
		bin := &ast.BinaryExpr{Op: op, Left: left, Right: right}
		bin.Span = span2(left.Pos(), right.Pos())
		left = bin
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Kind {
	case lexer.BANG:
		start := p.cur.Span
		p.advance()
		operand := p.parseUnary()
		notExpr := &ast.UnaryExpr{Op: ast.OpNot, Operand: operand}
		notExpr.Span = span2(start, operand.Pos())
		return notExpr
	case lexer.MINUS:
		start := p.cur.Span
		p.advance()
		operand := p.parseUnary()
		negExpr := &ast.UnaryExpr{Op: ast.OpNeg, Operand: operand}
		negExpr.Span = span2(start, operand.Pos())
		return negExpr
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.cur.Kind {
		case lexer.DOT:
			p.advance()
			nameTok := p.expect(lexer.IDENT)
			if dunderPattern.MatchString(nameTok.Lexeme) {
				p.fail(nameTok.Span, "non-dunder member name", fmt.Sprintf("%q", nameTok.Lexeme))
			}
			member := &ast.MemberExpr{Object: x, Name: nameTok.Lexeme}
			member.Span = span2(x.Pos(), nameTok.Span)
			x = member
		case lexer.LBRACKET:
			p.advance()
			idx := p.parseExpr()
			end := p.expect(lexer.RBRACKET).Span
			indexExpr := &ast.IndexExpr{Object: x, Index: idx}
			indexExpr.Span = span2(x.Pos(), end)
			x = indexExpr
		case lexer.LPAREN:
			p.advance()
			var args []ast.Expr
			for p.cur.Kind != lexer.RPAREN {
				args = append(args, p.parseExpr())
				if p.cur.Kind == lexer.COMMA {
					p.advance()
				}
			}
			end := p.expect(lexer.RPAREN).Span
			callExpr := &ast.CallExpr{Callee: x, Args: args}
			callExpr.Span = span2(x.Pos(), end)
			x = callExpr
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur.Kind {
	case lexer.NUMBER:
		tok := p.cur
		p.advance()
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.fail(tok.Span, "valid number literal", tok.Lexeme)
		}
		numLit := &ast.Literal{Kind: ast.LitNumber, Number: f}
		numLit.Span = tok.Span
		return numLit
	case lexer.STRING:
		tok := p.cur
		p.advance()
		strLit := &ast.Literal{Kind: ast.LitString, Str: tok.Lexeme}
		strLit.Span = tok.Span
		return strLit
	case lexer.KwTrue:
		tok := p.cur
		p.advance()
		trueLit := &ast.Literal{Kind: ast.LitBool, Bool: true}
		trueLit.Span = tok.Span
		return trueLit
	case lexer.KwFalse:
		tok := p.cur
		p.advance()
		falseLit := &ast.Literal{Kind: ast.LitBool, Bool: false}
		falseLit.Span = tok.Span
		return falseLit
	case lexer.KwNull:
		tok := p.cur
		p.advance()
		nullLit := &ast.Literal{Kind: ast.LitNull}
		nullLit.Span = tok.Span
		return nullLit
	case lexer.IDENT:
		tok := p.cur
		p.advance()
		return ast.NewIdentifier(tok.Span, tok.Lexeme)
	case lexer.LPAREN:
		p.advance()
		x := p.parseExpr()
		p.expect(lexer.RPAREN)
		return x
	case lexer.LBRACKET:
		return p.parseArrayLit()
	case lexer.LBRACE:
		return p.parseObjectLit()
	default:
		p.fail(p.cur.Span, "expression", p.describeCur())
		panic("unreachable")
	}
}

func (p *Parser) parseArrayLit() *ast.ArrayLit {
	start := p.expect(lexer.LBRACKET).Span
	lit := &ast.ArrayLit{}
	for p.cur.Kind != lexer.RBRACKET {
		lit.Elements = append(lit.Elements, p.parseExpr())
		if p.cur.Kind == lexer.COMMA {
			p.advance()
		}
	}
	end := p.expect(lexer.RBRACKET).Span
	lit.Span = span2(start, end)
	return lit
}

func (p *Parser) parseObjectLit() *ast.ObjectLit {
	start := p.expect(lexer.LBRACE).Span
	lit := &ast.ObjectLit{}
	for p.cur.Kind != lexer.RBRACE {
		var key string
		switch p.cur.Kind {
		case lexer.IDENT:
			key = p.cur.Lexeme
			p.advance()
		case lexer.STRING:
			key = p.cur.Lexeme
			p.advance()
		default:
			p.fail(p.cur.Span, "object key", p.describeCur())
		}
		p.expect(lexer.COLON)
		value := p.parseExpr()
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, value)
		if p.cur.Kind == lexer.COMMA {
			p.advance()
		}
	}
	end := p.expect(lexer.RBRACE).Span
	lit.Span = span2(start, end)
	return lit
}
