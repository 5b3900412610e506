// Package parser turns the token stream into a Module AST, enforcing the
// supported source subset. Expression parsing is precedence climbing over
// the explicit source precedence table in precedence.go.
package parser

import (
	"fmt"

	"github.com/py2sqf/py2sqf/pkg/compiler/ast"
	"github.com/py2sqf/py2sqf/pkg/compiler/lexer"
)

// Error is a grammar mismatch at a concrete position.
type Error struct {
	Position lexer.Position
	Expected string
	Found    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d:%d: expected %s, found %s", e.Position.Line, e.Position.Col, e.Expected, e.Found)
}

// UnsupportedError marks a construct outside the supported subset. This is a
// permanent limitation of the translator, not a recoverable condition.
type UnsupportedError struct {
	Position  lexer.Position
	Construct string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("line %d:%d: unsupported construct: %s", e.Position.Line, e.Position.Col, e.Construct)
}

// unsupportedKeywords maps reserved words of the full language to the
// construct name reported for them.
var unsupportedKeywords = map[string]string{
	"class":    "class definition",
	"import":   "import",
	"from":     "import",
	"try":      "exception handling",
	"except":   "exception handling",
	"finally":  "exception handling",
	"raise":    "raise",
	"with":     "with statement",
	"lambda":   "lambda",
	"yield":    "yield",
	"global":   "global declaration",
	"nonlocal": "nonlocal declaration",
	"assert":   "assert",
	"is":       "identity comparison",
}

type Parser struct {
	scanner *lexer.Scanner
	curTok  lexer.Token
	peekTok lexer.Token

	inFunction bool
}

// NewParser creates a parser over the given scanner.
func NewParser(s *lexer.Scanner) (*Parser, error) {
	p := &Parser{scanner: s}
	// Read two tokens, so curTok and peekTok are both set.
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse scans and parses src in one step.
func Parse(src string) (*ast.Module, error) {
	p, err := NewParser(lexer.NewScanner(src))
	if err != nil {
		return nil, err
	}
	return p.ParseModule()
}

func (p *Parser) nextToken() error {
	tok, err := p.scanner.Next()
	if err != nil {
		return err
	}
	p.curTok = p.peekTok
	p.peekTok = tok
	return nil
}

func (p *Parser) pos() lexer.Position { return p.curTok.Pos() }

func describe(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.KindIdentifier, lexer.KindKeyword, lexer.KindOperator, lexer.KindDelimiter, lexer.KindNumber:
		return fmt.Sprintf("%q", tok.Lit)
	case lexer.KindString:
		return "string literal"
	default:
		return tok.Kind.String()
	}
}

func (p *Parser) errExpected(expected string) error {
	return &Error{Position: p.pos(), Expected: expected, Found: describe(p.curTok)}
}

func (p *Parser) errUnsupported(construct string) error {
	return &UnsupportedError{Position: p.pos(), Construct: construct}
}

func (p *Parser) isKeyword(lit string) bool {
	return p.curTok.Kind == lexer.KindKeyword && p.curTok.Lit == lit
}

func (p *Parser) isDelim(lit string) bool {
	return p.curTok.Kind == lexer.KindDelimiter && p.curTok.Lit == lit
}

func (p *Parser) isOperator(lit string) bool {
	return p.curTok.Kind == lexer.KindOperator && p.curTok.Lit == lit
}

func (p *Parser) expectDelim(lit string) error {
	if !p.isDelim(lit) {
		return p.errExpected(fmt.Sprintf("%q", lit))
	}
	return p.nextToken()
}

func (p *Parser) expectKeyword(lit string) error {
	if !p.isKeyword(lit) {
		return p.errExpected(fmt.Sprintf("%q", lit))
	}
	return p.nextToken()
}

func (p *Parser) expectNewline() error {
	if p.curTok.Kind == lexer.KindEOF {
		return nil
	}
	if p.curTok.Kind != lexer.KindNewline {
		return p.errExpected("newline")
	}
	return p.nextToken()
}

// ParseModule parses the whole token stream into one Module node.
func (p *Parser) ParseModule() (*ast.Module, error) {
	module := &ast.Module{}
	for p.curTok.Kind != lexer.KindEOF {
		if p.curTok.Kind == lexer.KindNewline {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		module.Body = append(module.Body, stmt)
	}
	return module, nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	if p.curTok.Kind == lexer.KindKeyword {
		if construct, ok := unsupportedKeywords[p.curTok.Lit]; ok {
			return nil, p.errUnsupported(construct)
		}
		switch p.curTok.Lit {
		case "def":
			return p.parseFunctionDef(false)
		case "async":
			if p.peekTok.Kind == lexer.KindKeyword && p.peekTok.Lit == "def" {
				if err := p.nextToken(); err != nil {
					return nil, err
				}
				return p.parseFunctionDef(true)
			}
			return nil, p.errUnsupported("async statement")
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "for":
			return p.parseFor()
		case "return":
			return p.parseReturn()
		case "pass":
			stmt := &ast.Pass{Position: p.pos()}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			return stmt, p.expectNewline()
		case "break":
			stmt := &ast.Break{Position: p.pos()}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			return stmt, p.expectNewline()
		case "continue":
			stmt := &ast.Continue{Position: p.pos()}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			return stmt, p.expectNewline()
		case "del":
			return p.parseDelete()
		case "await":
			return p.parseAwait()
		}
	}
	if p.isOperator("@") {
		return nil, p.errUnsupported("decorator")
	}
	return p.parseExprOrAssign()
}

func (p *Parser) parseFunctionDef(background bool) (ast.Stmt, error) {
	pos := p.pos()
	if p.inFunction {
		return nil, p.errUnsupported("nested function definition")
	}
	if err := p.nextToken(); err != nil { // skip def
		return nil, err
	}
	if p.curTok.Kind != lexer.KindIdentifier {
		return nil, p.errExpected("function name")
	}
	name := p.curTok.Lit
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expectDelim("("); err != nil {
		return nil, err
	}

	var params []string
	for !p.isDelim(")") {
		if p.isOperator("*") {
			return nil, p.errUnsupported("starred parameter")
		}
		if p.curTok.Kind != lexer.KindIdentifier {
			return nil, p.errExpected("parameter name")
		}
		if p.peekTok.Kind == lexer.KindOperator && p.peekTok.Lit == "=" {
			return nil, p.errUnsupported("default parameter value")
		}
		params = append(params, p.curTok.Lit)
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.isDelim(",") {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		} else if !p.isDelim(")") {
			return nil, p.errExpected(`"," or ")"`)
		}
	}
	if err := p.nextToken(); err != nil { // skip )
		return nil, err
	}

	p.inFunction = true
	body, err := p.parseBlock()
	p.inFunction = false
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDef{
		Position:   pos,
		Name:       name,
		Params:     params,
		Body:       body,
		Background: background,
	}, nil
}

// parseBlock parses `: NEWLINE INDENT stmt+ DEDENT`.
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if err := p.expectDelim(":"); err != nil {
		return nil, err
	}
	if p.curTok.Kind != lexer.KindNewline {
		return nil, p.errExpected("newline")
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curTok.Kind != lexer.KindIndent {
		return nil, p.errExpected("indented block")
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	var stmts []ast.Stmt
	for p.curTok.Kind != lexer.KindDedent && p.curTok.Kind != lexer.KindEOF {
		if p.curTok.Kind == lexer.KindNewline {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if p.curTok.Kind == lexer.KindDedent {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return stmts, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil { // skip if/elif
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt := &ast.If{Position: pos, Cond: cond, Body: body}
	if p.isKeyword("elif") {
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		stmt.Else = []ast.Stmt{nested}
	} else if p.isKeyword("else") {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		stmt.Else, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Position: pos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curTok.Kind != lexer.KindIdentifier {
		if p.isDelim("(") {
			return nil, p.errUnsupported("tuple loop target")
		}
		return nil, p.errExpected("loop variable name")
	}
	target := &ast.Name{Position: p.pos(), Ident: p.curTok.Lit}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.isDelim(",") {
		return nil, p.errUnsupported("tuple loop target")
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Position: pos, Var: target, Iter: iter, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	stmt := &ast.Return{Position: pos}
	if p.curTok.Kind != lexer.KindNewline && p.curTok.Kind != lexer.KindEOF {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	return stmt, p.expectNewline()
}

func (p *Parser) parseDelete() (ast.Stmt, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	stmt := &ast.Delete{Position: pos}
	for {
		if p.curTok.Kind != lexer.KindIdentifier {
			return nil, p.errExpected("name")
		}
		stmt.Names = append(stmt.Names, &ast.Name{Position: p.pos(), Ident: p.curTok.Lit})
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if !p.isDelim(",") {
			break
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return stmt, p.expectNewline()
}

func (p *Parser) parseAwait() (ast.Stmt, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	call, ok := expr.(*ast.Call)
	if !ok {
		return nil, &Error{Position: pos, Expected: "call after \"await\"", Found: "expression"}
	}
	return &ast.Await{Position: pos, Call: call}, p.expectNewline()
}

func (p *Parser) parseExprOrAssign() (ast.Stmt, error) {
	pos := p.pos()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.isOperator("=") {
		switch t := expr.(type) {
		case *ast.Name:
		case *ast.Subscript:
			if t.IsSlice {
				return nil, p.errUnsupported("slice assignment")
			}
		default:
			return nil, &Error{Position: pos, Expected: "assignable target", Found: "expression"}
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Position: pos, Target: expr, Value: value}, p.expectNewline()
	}

	if p.curTok.Kind == lexer.KindOperator {
		if aug, ok := augOps[p.curTok.Lit]; ok {
			if _, isName := expr.(*ast.Name); !isName {
				return nil, &Error{Position: pos, Expected: "name target for augmented assignment", Found: "expression"}
			}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &ast.Assign{Position: pos, Target: expr, Op: aug, Value: value}, p.expectNewline()
		}
	}

	return &ast.ExprStmt{Position: pos, Value: expr}, p.expectNewline()
}

var augOps = map[string]string{"+=": "+", "-=": "-", "*=": "*", "/=": "/"}
