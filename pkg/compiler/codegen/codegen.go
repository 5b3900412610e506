// Package codegen emits target-dialect text from a fully resolved AST. The
// generator is a single stateless tree walk; the only mutable state is the
// output builder and the current indentation depth.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/py2sqf/py2sqf/pkg/compiler/ast"
	"github.com/py2sqf/py2sqf/pkg/compiler/builtins"
	"github.com/py2sqf/py2sqf/pkg/compiler/lexer"
)

// UnsupportedOperatorError reports an operator with no target mapping.
type UnsupportedOperatorError struct {
	Op       string
	Position lexer.Position
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("line %d:%d: no target mapping for operator %q", e.Position.Line, e.Position.Col, e.Op)
}

// UnsupportedControlError reports a control form the target subset cannot
// express.
type UnsupportedControlError struct {
	Construct string
	Position  lexer.Position
}

func (e *UnsupportedControlError) Error() string {
	return fmt.Sprintf("line %d:%d: target dialect cannot express %s", e.Position.Line, e.Position.Col, e.Construct)
}

// UnknownBuiltinError reports a call to a name outside the built-in table.
type UnknownBuiltinError struct {
	Name     string
	Position lexer.Position
}

func (e *UnknownBuiltinError) Error() string {
	return fmt.Sprintf("line %d:%d: unknown built-in %q", e.Position.Line, e.Position.Col, e.Name)
}

const indent = "    "

type generator struct {
	out   strings.Builder
	depth int
}

// Generate emits the target text for a resolved module. The input AST is
// not modified. Output is all-or-nothing: on error the partial buffer is
// discarded.
func Generate(m *ast.Module) (string, error) {
	g := &generator{}
	for _, stmt := range m.Body {
		if err := g.stmt(stmt, false); err != nil {
			return "", err
		}
	}
	return g.out.String(), nil
}

func (g *generator) line(s string) {
	for i := 0; i < g.depth; i++ {
		g.out.WriteString(indent)
	}
	g.out.WriteString(s)
	g.out.WriteByte('\n')
}

// stmt emits one statement. tail is true only for the last statement of a
// function body, where a return value becomes the block result.
func (g *generator) stmt(stmt ast.Stmt, tail bool) error {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		g.line(fmt.Sprintf("%s = {", s.Target))
		g.depth++
		if len(s.ParamTargets) > 0 {
			quoted := make([]string, len(s.ParamTargets))
			for i, p := range s.ParamTargets {
				quoted[i] = `"` + p + `"`
			}
			g.line(fmt.Sprintf("params [%s];", strings.Join(quoted, ", ")))
		}
		for i, inner := range s.Body {
			if err := g.stmt(inner, i == len(s.Body)-1); err != nil {
				return err
			}
		}
		g.depth--
		g.line("};")
		return nil
	case *ast.Assign:
		return g.assign(s)
	case *ast.ExprStmt:
		text, _, err := g.expr(s.Value)
		if err != nil {
			return err
		}
		g.line(text + ";")
		return nil
	case *ast.If:
		cond, _, err := g.expr(s.Cond)
		if err != nil {
			return err
		}
		g.line(fmt.Sprintf("if (%s) then {", cond))
		g.depth++
		for _, inner := range s.Body {
			if err := g.stmt(inner, false); err != nil {
				return err
			}
		}
		g.depth--
		if len(s.Else) > 0 {
			g.line("} else {")
			g.depth++
			for _, inner := range s.Else {
				if err := g.stmt(inner, false); err != nil {
					return err
				}
			}
			g.depth--
		}
		g.line("};")
		return nil
	case *ast.While:
		cond, _, err := g.expr(s.Cond)
		if err != nil {
			return err
		}
		g.line(fmt.Sprintf("while {%s} do {", cond))
		g.depth++
		for _, inner := range s.Body {
			if err := g.stmt(inner, false); err != nil {
				return err
			}
		}
		g.depth--
		g.line("};")
		return nil
	case *ast.For:
		return g.forLoop(s)
	case *ast.Return:
		if !tail {
			return &UnsupportedControlError{Construct: "early return", Position: s.Position}
		}
		if s.Value == nil {
			return nil
		}
		text, _, err := g.expr(s.Value)
		if err != nil {
			return err
		}
		g.line(text + ";")
		return nil
	case *ast.Pass:
		return nil
	case *ast.Break:
		g.line("break;")
		return nil
	case *ast.Continue:
		g.line("continue;")
		return nil
	case *ast.Delete:
		for _, name := range s.Names {
			g.line(name.Target + " = nil;")
		}
		return nil
	case *ast.Await:
		text, _, err := g.expr(s.Call)
		if err != nil {
			return err
		}
		g.line(fmt.Sprintf("waitUntil {%s};", text))
		return nil
	default:
		return fmt.Errorf("unexpected statement %T", stmt)
	}
}

func (g *generator) assign(s *ast.Assign) error {
	value, valuePrec, err := g.expr(s.Value)
	if err != nil {
		return err
	}
	switch target := s.Target.(type) {
	case *ast.Name:
		if target.Target == "" {
			return fmt.Errorf("line %d:%d: unresolved name %q reached generation", target.Position.Line, target.Position.Col, target.Ident)
		}
		if s.Op == "" {
			g.line(fmt.Sprintf("%s = %s;", target.Target, value))
			return nil
		}
		op, ok := binaryOps[s.Op]
		if !ok {
			return &UnsupportedOperatorError{Op: s.Op, Position: s.Position}
		}
		if valuePrec <= op.prec {
			value = "(" + value + ")"
		}
		g.line(fmt.Sprintf("%s = %s %s %s;", target.Target, target.Target, op.text, value))
		return nil
	case *ast.Subscript:
		obj, err := g.operand(target.Value, precCommand, false)
		if err != nil {
			return err
		}
		index, _, err := g.expr(target.Index)
		if err != nil {
			return err
		}
		g.line(fmt.Sprintf("%s set [%s, %s];", obj, index, value))
		return nil
	default:
		return fmt.Errorf("unexpected assignment target %T", s.Target)
	}
}

func (g *generator) forLoop(s *ast.For) error {
	if call, ok := s.Iter.(*ast.Call); ok && call.Class == ast.ClassRange {
		start, stop, step := "0", "", "1"
		var err error
		switch len(call.Args) {
		case 1:
			stop, err = g.rangeStop(call.Args[0])
		case 2:
			if start, err = g.atomOrParen(call.Args[0]); err == nil {
				stop, err = g.rangeStop(call.Args[1])
			}
		case 3:
			if start, err = g.atomOrParen(call.Args[0]); err == nil {
				if stop, err = g.rangeStop(call.Args[1]); err == nil {
					step, err = g.atomOrParen(call.Args[2])
				}
			}
		}
		if err != nil {
			return err
		}
		g.line(fmt.Sprintf("for %q from %s to %s step %s do {", s.Var.Target, start, stop, step))
		g.depth++
		for _, inner := range s.Body {
			if err := g.stmt(inner, false); err != nil {
				return err
			}
		}
		g.depth--
		g.line("};")
		return nil
	}

	iter, err := g.operand(s.Iter, precCommand, true)
	if err != nil {
		return err
	}
	g.line("{")
	g.depth++
	g.line(fmt.Sprintf("private %s = _x;", s.Var.Target))
	for _, inner := range s.Body {
		if err := g.stmt(inner, false); err != nil {
			return err
		}
	}
	g.depth--
	g.line(fmt.Sprintf("} forEach %s;", iter))
	return nil
}

// rangeStop converts an exclusive range bound into the target's inclusive
// loop bound: constant stops fold to stop-1, dynamic ones emit (stop - 1).
func (g *generator) rangeStop(stop ast.Expr) (string, error) {
	if c, ok := stop.(*ast.Constant); ok && c.Kind == ast.ConstNumber {
		if n, err := strconv.Atoi(c.Lit); err == nil {
			return strconv.Itoa(n - 1), nil
		}
	}
	text, _, err := g.expr(stop)
	if err != nil {
		return "", err
	}
	return "(" + text + " - 1)", nil
}

// atomOrParen renders an expression bare when atomic, parenthesized
// otherwise. Used inside composite loop headers and array elements that
// splice sub-expressions into command syntax.
func (g *generator) atomOrParen(e ast.Expr) (string, error) {
	text, prec, err := g.expr(e)
	if err != nil {
		return "", err
	}
	if prec < precAtom {
		return "(" + text + ")", nil
	}
	return text, nil
}

// operand renders a child expression, consulting the target precedence
// table to decide parenthesization. All target binary operators are left
// associative, so a right-hand child needs parentheses at equal precedence.
func (g *generator) operand(e ast.Expr, parentPrec int, rightSide bool) (string, error) {
	text, prec, err := g.expr(e)
	if err != nil {
		return "", err
	}
	if prec < parentPrec || (rightSide && prec == parentPrec) {
		return "(" + text + ")", nil
	}
	return text, nil
}

// expr renders an expression and reports the precedence of its outermost
// target operator, precAtom for forms that never need parenthesization.
func (g *generator) expr(expr ast.Expr) (string, int, error) {
	switch e := expr.(type) {
	case *ast.Name:
		if e.Target == "" {
			return "", 0, fmt.Errorf("line %d:%d: unresolved name %q reached generation", e.Position.Line, e.Position.Col, e.Ident)
		}
		return e.Target, precAtom, nil
	case *ast.Constant:
		switch e.Kind {
		case ast.ConstNumber:
			return e.Lit, precAtom, nil
		case ast.ConstString:
			return `"` + strings.ReplaceAll(e.Lit, `"`, `""`) + `"`, precAtom, nil
		case ast.ConstTrue:
			return "true", precAtom, nil
		case ast.ConstFalse:
			return "false", precAtom, nil
		default:
			return "nil", precAtom, nil
		}
	case *ast.List:
		elems := make([]string, len(e.Elems))
		for i, elem := range e.Elems {
			text, _, err := g.expr(elem)
			if err != nil {
				return "", 0, err
			}
			elems[i] = text
		}
		return "[" + strings.Join(elems, ", ") + "]", precAtom, nil
	case *ast.BinaryOp:
		return g.binary(e)
	case *ast.UnaryOp:
		return g.unary(e)
	case *ast.IfExp:
		return g.ifExp(e)
	case *ast.FString:
		return g.fstring(e)
	case *ast.Subscript:
		return g.subscript(e)
	case *ast.Attribute:
		if name, ok := e.Value.(*ast.Name); ok && name.Ident == "GLOBAL" {
			return e.Attr, precAtom, nil
		}
		obj, err := g.operand(e.Value, precCommand, false)
		if err != nil {
			return "", 0, err
		}
		return obj + " " + e.Attr, precCommand, nil
	case *ast.Call:
		return g.call(e)
	default:
		return "", 0, fmt.Errorf("unexpected expression %T", expr)
	}
}

// ifExp lowers a conditional expression to the target's if-then-else, which
// is itself an expression yielding the taken branch's value.
func (g *generator) ifExp(e *ast.IfExp) (string, int, error) {
	cond, _, err := g.expr(e.Cond)
	if err != nil {
		return "", 0, err
	}
	then, _, err := g.expr(e.Then)
	if err != nil {
		return "", 0, err
	}
	orelse, _, err := g.expr(e.Else)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("if (%s) then {%s} else {%s}", cond, then, orelse), precCommand, nil
}

// fstring lowers an interpolated string to a format command: literal
// segments become the format string with %1, %2, ... placeholders, the
// field expressions follow in the array.
func (g *generator) fstring(e *ast.FString) (string, int, error) {
	var format strings.Builder
	for i, seg := range e.Text {
		format.WriteString(strings.ReplaceAll(seg, `"`, `""`))
		if i < len(e.Exprs) {
			format.WriteString("%")
			format.WriteString(strconv.Itoa(i + 1))
		}
	}
	parts := make([]string, 0, len(e.Exprs)+1)
	parts = append(parts, `"`+format.String()+`"`)
	for _, inner := range e.Exprs {
		text, _, err := g.expr(inner)
		if err != nil {
			return "", 0, err
		}
		parts = append(parts, text)
	}
	return "format [" + strings.Join(parts, ", ") + "]", precUnary, nil
}

func (g *generator) binary(e *ast.BinaryOp) (string, int, error) {
	// Floor division has no target operator; lower to a floor command.
	if e.Op == "//" {
		left, err := g.operand(e.Left, precMulDiv, false)
		if err != nil {
			return "", 0, err
		}
		right, err := g.operand(e.Right, precMulDiv, true)
		if err != nil {
			return "", 0, err
		}
		return fmt.Sprintf("floor (%s / %s)", left, right), precUnary, nil
	}
	op, ok := binaryOps[e.Op]
	if !ok {
		return "", 0, &UnsupportedOperatorError{Op: e.Op, Position: e.Position}
	}
	left, err := g.operand(e.Left, op.prec, false)
	if err != nil {
		return "", 0, err
	}
	right, err := g.operand(e.Right, op.prec, true)
	if err != nil {
		return "", 0, err
	}
	return left + " " + op.text + " " + right, op.prec, nil
}

func (g *generator) unary(e *ast.UnaryOp) (string, int, error) {
	switch e.Op {
	case "+":
		// Unary plus is the identity; emit the operand unchanged.
		return g.expr(e.Operand)
	case "-", "not":
		text, err := g.operand(e.Operand, precUnary, true)
		if err != nil {
			return "", 0, err
		}
		sym := "-"
		if e.Op == "not" {
			sym = "!"
		}
		return sym + text, precUnary, nil
	default:
		return "", 0, &UnsupportedOperatorError{Op: e.Op, Position: e.Position}
	}
}

func (g *generator) subscript(e *ast.Subscript) (string, int, error) {
	value, err := g.operand(e.Value, precCommand, false)
	if err != nil {
		return "", 0, err
	}
	if !e.IsSlice {
		index, err := g.operand(e.Index, precCommand, true)
		if err != nil {
			return "", 0, err
		}
		return value + " select " + index, precCommand, nil
	}

	low, _, err := g.expr(e.Low)
	if err != nil {
		return "", 0, err
	}
	count, err := g.sliceCount(e.Low, e.High)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%s select [%s, %s]", value, low, count), precCommand, nil
}

// sliceCount renders high-low, the element count of the target's two-element
// selection form; constant bounds fold to a number.
func (g *generator) sliceCount(low, high ast.Expr) (string, error) {
	lc, lok := low.(*ast.Constant)
	hc, hok := high.(*ast.Constant)
	if lok && hok && lc.Kind == ast.ConstNumber && hc.Kind == ast.ConstNumber {
		l, lerr := strconv.Atoi(lc.Lit)
		h, herr := strconv.Atoi(hc.Lit)
		if lerr == nil && herr == nil {
			return strconv.Itoa(h - l), nil
		}
	}
	highText, err := g.operand(high, precAddSub, false)
	if err != nil {
		return "", err
	}
	lowText, err := g.operand(low, precAddSub, true)
	if err != nil {
		return "", err
	}
	return highText + " - " + lowText, nil
}

func (g *generator) call(e *ast.Call) (string, int, error) {
	if e.Strategy == ast.StrategyUnknown {
		return "", 0, fmt.Errorf("line %d:%d: call reached generation with unresolved invocation strategy", e.Position.Line, e.Position.Col)
	}
	switch e.Class {
	case ast.ClassUser:
		verb := "call"
		if e.Strategy == ast.StrategyAsync {
			verb = "spawn"
		}
		args, err := g.callArgs(e.Args)
		if err != nil {
			return "", 0, err
		}
		return args + " " + verb + " " + e.Callee, precCommand, nil
	case ast.ClassBuiltin:
		cmd, ok := builtins.Lookup(e.Callee)
		if !ok {
			return "", 0, &UnknownBuiltinError{Name: e.Callee, Position: e.Position}
		}
		switch cmd.Form {
		case builtins.FormNullary:
			return cmd.Name, precAtom, nil
		case builtins.FormUnary:
			arg, err := g.operand(e.Args[0], precUnary, true)
			if err != nil {
				return "", 0, err
			}
			return cmd.Name + " " + arg, precUnary, nil
		default:
			left, err := g.operand(e.Args[0], precCommand, false)
			if err != nil {
				return "", 0, err
			}
			right, err := g.operand(e.Args[1], precCommand, true)
			if err != nil {
				return "", 0, err
			}
			return left + " " + cmd.Name + " " + right, precCommand, nil
		}
	case ast.ClassGlobal:
		switch len(e.Args) {
		case 0:
			return e.Callee, precAtom, nil
		case 1:
			arg, err := g.operand(e.Args[0], precUnary, true)
			if err != nil {
				return "", 0, err
			}
			return e.Callee + " " + arg, precUnary, nil
		default:
			args, err := g.argArray(e.Args)
			if err != nil {
				return "", 0, err
			}
			return e.Callee + " " + args, precUnary, nil
		}
	case ast.ClassMethod:
		attr := e.Func.(*ast.Attribute)
		obj, err := g.operand(attr.Value, precCommand, false)
		if err != nil {
			return "", 0, err
		}
		if len(e.Args) == 1 {
			arg, err := g.operand(e.Args[0], precCommand, true)
			if err != nil {
				return "", 0, err
			}
			return obj + " " + e.Callee + " " + arg, precCommand, nil
		}
		args, err := g.argArray(e.Args)
		if err != nil {
			return "", 0, err
		}
		return obj + " " + e.Callee + " " + args, precCommand, nil
	default:
		return "", 0, fmt.Errorf("line %d:%d: call reached generation unclassified", e.Position.Line, e.Position.Col)
	}
}

// callArgs renders the left operand of call/spawn: a single argument stays
// bare, everything else becomes an array.
func (g *generator) callArgs(args []ast.Expr) (string, error) {
	if len(args) == 1 {
		return g.operand(args[0], precCommand, false)
	}
	return g.argArray(args)
}

func (g *generator) argArray(args []ast.Expr) (string, error) {
	elems := make([]string, len(args))
	for i, arg := range args {
		text, _, err := g.expr(arg)
		if err != nil {
			return "", err
		}
		elems[i] = text
	}
	return "[" + strings.Join(elems, ", ") + "]", nil
}
