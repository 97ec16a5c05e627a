package parser

import (
	"strconv"

	"github.com/paivett/gone/pkg/ast"
	"github.com/paivett/gone/pkg/diag"
	"github.com/paivett/gone/pkg/token"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	diags    *diag.Sink
}

// bailout unwinds a statement after a syntax error has been recorded.
type bailout struct{}

// NewParser creates and initializes a new Parser from a token stream. The
// stream must end with an EOF token.
func NewParser(tokens []token.Token, diags *diag.Sink) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0], diags: diags}
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) check(tokType token.Type) bool { return p.current.Type == tokType }

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type) token.Token {
	if !p.check(tokType) {
		p.syntaxError()
	}
	p.advance()
	return p.previous
}

func (p *Parser) syntaxError() {
	if p.current.Type == token.EOF {
		p.diags.Errorf(p.current, "Syntax error. No more input.")
	} else {
		p.diags.Errorf(p.current, "Syntax error in input at token '%s'", p.current.Text())
	}
	panic(bailout{})
}

// synchronize skips past the next ';' so parsing resumes at a statement
// boundary.
func (p *Parser) synchronize() {
	for !p.check(token.EOF) {
		if p.match(token.Semi) {
			return
		}
		p.advance()
	}
}

// Parse returns the program tree. Statements with syntax errors are left out
// of the tree; the errors themselves are in the diagnostic sink.
func (p *Parser) Parse() *ast.Node {
	start := p.current
	var stmts []*ast.Node
	for !p.check(token.EOF) {
		if stmt := p.parseStatementOrRecover(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return ast.NewProgram(start, stmts)
}

func (p *Parser) parseStatementOrRecover() (stmt *ast.Node) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			stmt = nil
			p.synchronize()
		}
	}()
	return p.parseStatement()
}

func (p *Parser) parseStatement() *ast.Node {
	switch {
	case p.match(token.Const):
		name := p.expect(token.Ident)
		p.expect(token.Assign)
		value := p.parseExpr(0)
		p.expect(token.Semi)
		return ast.NewConstDecl(name, name.Value, value)

	case p.match(token.Var):
		name := p.expect(token.Ident)
		typTok := p.expect(token.Ident)
		datatype := ast.NewSimpleType(typTok, typTok.Value)
		var value *ast.Node
		if p.match(token.Assign) {
			value = p.parseExpr(0)
		}
		p.expect(token.Semi)
		return ast.NewVarDecl(name, name.Value, datatype, value)

	case p.match(token.Print):
		tok := p.previous
		value := p.parseExpr(0)
		p.expect(token.Semi)
		return ast.NewPrintStmt(tok, value)

	case p.match(token.Ident):
		locTok := p.previous
		loc := ast.NewSimpleLocation(locTok, locTok.Value)
		p.expect(token.Assign)
		value := p.parseExpr(0)
		p.expect(token.Semi)
		return ast.NewWriteLocation(locTok, loc, value)
	}
	p.syntaxError()
	return nil
}

// Expression Parsing
func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash:
		return 2
	case token.Plus, token.Minus:
		return 1
	default:
		return -1
	}
}

// parseExpr is a precedence climber; every binary operator is left
// associative.
func (p *Parser) parseExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		prec := getBinaryOpPrecedence(p.current.Type)
		if prec < 0 || prec < minPrec {
			return left
		}
		opTok := p.current
		p.advance()
		right := p.parseExpr(prec + 1)
		left = ast.NewBinaryOp(opTok, opTok.Type, left, right)
	}
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	if p.check(token.Plus) || p.check(token.Minus) {
		opTok := p.current
		p.advance()
		return ast.NewUnaryOp(opTok, opTok.Type, p.parseUnaryExpr())
	}
	return p.parsePrimaryExpr()
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Integer):
		val, _ := strconv.ParseInt(tok.Value, 10, 64)
		return ast.NewIntegerLit(tok, val)
	case p.match(token.Float):
		val, _ := strconv.ParseFloat(tok.Value, 64)
		return ast.NewFloatLit(tok, val)
	case p.match(token.Char):
		val, _ := strconv.ParseInt(tok.Value, 10, 32)
		return ast.NewCharLit(tok, rune(val))
	case p.match(token.Ident):
		return ast.NewReadLocation(tok, ast.NewSimpleLocation(tok, tok.Value))
	case p.match(token.LParen):
		expr := p.parseExpr(0)
		p.expect(token.RParen)
		return expr
	}
	p.syntaxError()
	return nil
}
