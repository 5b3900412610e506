package parser

import (
	"strings"

	"github.com/py2sqf/py2sqf/pkg/compiler/ast"
	"github.com/py2sqf/py2sqf/pkg/compiler/lexer"
)

// parseExpr parses a full expression, including the conditional form
// `A if C else B`. The else branch re-enters parseExpr, so conditionals
// nest to the right as in the source language.
func (p *Parser) parseExpr() (ast.Expr, error) {
	expr, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("if") {
		return expr, nil
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("else"); err != nil {
		return nil, err
	}
	orelse, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.IfExp{Position: expr.Pos(), Cond: cond, Then: expr, Else: orelse}, nil
}

// binOp returns the binary operator spelling the current token denotes, if
// any. "and"/"or" arrive as keywords, everything else as operators.
func (p *Parser) binOp() (string, bool) {
	switch p.curTok.Kind {
	case lexer.KindOperator:
		if _, ok := binaryPrec[p.curTok.Lit]; ok {
			return p.curTok.Lit, true
		}
	case lexer.KindKeyword:
		if p.curTok.Lit == "and" || p.curTok.Lit == "or" {
			return p.curTok.Lit, true
		}
	}
	return "", false
}

// parseBinary is a precedence climber over binaryPrec.
func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary(minPrec)
	if err != nil {
		return nil, err
	}

	justCompared := false
	for {
		op, ok := p.binOp()
		if !ok {
			break
		}
		prec := binaryPrec[op]
		if prec < minPrec {
			break
		}
		if isCompareOp(op) && justCompared {
			return nil, p.errUnsupported("chained comparison")
		}
		pos := p.pos()
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		next := prec + 1
		if rightAssoc(op) {
			next = prec
		}
		right, err := p.parseBinary(next)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Position: pos, Op: op, Left: left, Right: right}
		justCompared = isCompareOp(op)
	}
	return left, nil
}

func (p *Parser) parseUnary(minPrec int) (ast.Expr, error) {
	if p.curTok.Kind == lexer.KindOperator && (p.curTok.Lit == "-" || p.curTok.Lit == "+") {
		pos := p.pos()
		op := p.curTok.Lit
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		// Unary minus binds looser than **: -x ** y is -(x ** y).
		operand, err := p.parseBinary(precPow)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Position: pos, Op: op, Operand: operand}, nil
	}
	if p.isKeyword("not") {
		// `not` only sits below comparisons: `a == not b` is a syntax
		// error in the source language.
		if minPrec > precNot {
			return nil, p.errExpected("expression")
		}
		return p.parseNot()
	}
	if p.isKeyword("await") {
		return nil, p.errUnsupported("await in expression position")
	}
	return p.parsePostfix()
}

// parseNot parses a `not` chain; the operand of `not` is either another
// `not` or anything binding at comparison level and tighter.
func (p *Parser) parseNot() (ast.Expr, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var operand ast.Expr
	var err error
	if p.isKeyword("not") {
		operand, err = p.parseNot()
	} else {
		operand, err = p.parseBinary(precNot + 1)
	}
	if err != nil {
		return nil, err
	}
	return &ast.UnaryOp{Position: pos, Op: "not", Operand: operand}, nil
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isDelim("("):
			expr, err = p.parseCall(expr)
		case p.isDelim("["):
			expr, err = p.parseSubscript(expr)
		case p.isDelim("."):
			if err = p.nextToken(); err != nil {
				return nil, err
			}
			if p.curTok.Kind != lexer.KindIdentifier {
				return nil, p.errExpected("attribute name")
			}
			expr = &ast.Attribute{Position: expr.Pos(), Value: expr, Attr: p.curTok.Lit}
			err = p.nextToken()
		default:
			return expr, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseCall(fn ast.Expr) (ast.Expr, error) {
	call := &ast.Call{Position: fn.Pos(), Func: fn}
	if err := p.nextToken(); err != nil { // skip (
		return nil, err
	}
	for !p.isDelim(")") {
		if p.isOperator("*") {
			return nil, p.errUnsupported("starred argument")
		}
		if p.curTok.Kind == lexer.KindIdentifier && p.peekTok.Kind == lexer.KindOperator && p.peekTok.Lit == "=" {
			return nil, p.errUnsupported("keyword argument")
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.isKeyword("for") {
			return nil, p.errUnsupported("comprehension")
		}
		if p.isDelim(",") {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		} else if !p.isDelim(")") {
			return nil, p.errExpected(`"," or ")"`)
		}
	}
	return call, p.nextToken()
}

func (p *Parser) parseSubscript(value ast.Expr) (ast.Expr, error) {
	sub := &ast.Subscript{Position: value.Pos(), Value: value}
	if err := p.nextToken(); err != nil { // skip [
		return nil, err
	}
	if p.isDelim(":") {
		return nil, p.errUnsupported("open-ended slice")
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.isDelim(":") {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.isDelim("]") {
			return nil, p.errUnsupported("open-ended slice")
		}
		high, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.isDelim(":") {
			return nil, p.errUnsupported("slice with step")
		}
		sub.IsSlice = true
		sub.Low = first
		sub.High = high
	} else {
		sub.Index = first
	}
	if err := p.expectDelim("]"); err != nil {
		return nil, err
	}
	return sub, nil
}

func (p *Parser) parseAtom() (ast.Expr, error) {
	pos := p.pos()
	switch p.curTok.Kind {
	case lexer.KindNumber:
		lit := p.curTok.Lit
		return &ast.Constant{Position: pos, Kind: ast.ConstNumber, Lit: lit}, p.nextToken()
	case lexer.KindString:
		lit := p.curTok.Lit
		return &ast.Constant{Position: pos, Kind: ast.ConstString, Lit: lit}, p.nextToken()
	case lexer.KindFString:
		lit := p.curTok.Lit
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return p.parseFString(lit, pos)
	case lexer.KindIdentifier:
		ident := p.curTok.Lit
		return &ast.Name{Position: pos, Ident: ident}, p.nextToken()
	case lexer.KindKeyword:
		switch p.curTok.Lit {
		case "True":
			return &ast.Constant{Position: pos, Kind: ast.ConstTrue, Lit: "True"}, p.nextToken()
		case "False":
			return &ast.Constant{Position: pos, Kind: ast.ConstFalse, Lit: "False"}, p.nextToken()
		case "None":
			return &ast.Constant{Position: pos, Kind: ast.ConstNone, Lit: "None"}, p.nextToken()
		case "lambda":
			return nil, p.errUnsupported("lambda")
		case "yield":
			return nil, p.errUnsupported("yield")
		}
		return nil, p.errExpected("expression")
	case lexer.KindDelimiter:
		switch p.curTok.Lit {
		case "(":
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if p.isDelim(")") {
				return nil, p.errUnsupported("tuple literal")
			}
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.isDelim(",") {
				return nil, p.errUnsupported("tuple literal")
			}
			return expr, p.expectDelim(")")
		case "[":
			return p.parseList(pos)
		}
		return nil, p.errExpected("expression")
	default:
		return nil, p.errExpected("expression")
	}
}

// parseFString splits an interpolated string into literal segments and
// embedded expressions. {{ and }} are brace escapes; each field holds one
// expression, parsed over its own scanner. An f-string without fields
// degrades to a plain string constant.
func (p *Parser) parseFString(lit string, pos lexer.Position) (ast.Expr, error) {
	fs := &ast.FString{Position: pos}
	var seg strings.Builder
	for i := 0; i < len(lit); i++ {
		switch lit[i] {
		case '{':
			if i+1 < len(lit) && lit[i+1] == '{' {
				seg.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(lit[i+1:], '}')
			if end < 0 {
				return nil, &Error{Position: pos, Expected: `"}" closing interpolation`, Found: "end of string"}
			}
			field := lit[i+1 : i+1+end]
			if field == "" {
				return nil, &Error{Position: pos, Expected: "expression in interpolation", Found: `"}"`}
			}
			if strings.Contains(field, ":") {
				return nil, &UnsupportedError{Position: pos, Construct: "format specifier"}
			}
			if len(field) >= 2 && field[len(field)-2] == '!' {
				return nil, &UnsupportedError{Position: pos, Construct: "conversion specifier"}
			}
			expr, err := parseFieldExpr(field, pos)
			if err != nil {
				return nil, err
			}
			fs.Text = append(fs.Text, seg.String())
			seg.Reset()
			fs.Exprs = append(fs.Exprs, expr)
			i += end + 1
		case '}':
			if i+1 < len(lit) && lit[i+1] == '}' {
				seg.WriteByte('}')
				i++
				continue
			}
			return nil, &Error{Position: pos, Expected: `"{" before "}"`, Found: `"}"`}
		default:
			seg.WriteByte(lit[i])
		}
	}
	if len(fs.Exprs) == 0 {
		return &ast.Constant{Position: pos, Kind: ast.ConstString, Lit: seg.String()}, nil
	}
	fs.Text = append(fs.Text, seg.String())
	return fs, nil
}

func parseFieldExpr(src string, pos lexer.Position) (ast.Expr, error) {
	sub, err := NewParser(lexer.NewScanner(src))
	if err != nil {
		return nil, err
	}
	expr, err := sub.parseExpr()
	if err != nil {
		return nil, err
	}
	if sub.curTok.Kind != lexer.KindNewline && sub.curTok.Kind != lexer.KindEOF {
		return nil, &Error{Position: pos, Expected: "end of interpolation", Found: describe(sub.curTok)}
	}
	return expr, nil
}

func (p *Parser) parseList(pos lexer.Position) (ast.Expr, error) {
	list := &ast.List{Position: pos}
	if err := p.nextToken(); err != nil { // skip [
		return nil, err
	}
	for !p.isDelim("]") {
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, elem)
		if p.isKeyword("for") {
			return nil, p.errUnsupported("comprehension")
		}
		if p.isDelim(",") {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		} else if !p.isDelim("]") {
			return nil, p.errExpected(`"," or "]"`)
		}
	}
	return list, p.nextToken()
}
