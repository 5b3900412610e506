package parser_test

import (
	"errors"
	"testing"

	"github.com/py2sqf/py2sqf/pkg/compiler/ast"
	"github.com/py2sqf/py2sqf/pkg/compiler/parser"
)

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	m, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return m
}

func assignValue(t *testing.T, src string) ast.Expr {
	t.Helper()
	m := mustParse(t, src)
	if len(m.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(m.Body))
	}
	assign, ok := m.Body[0].(*ast.Assign)
	if !ok {
		t.Fatalf("expected assignment, got %T", m.Body[0])
	}
	return assign.Value
}

func TestParseFunctionDef(t *testing.T) {
	src := `
async def patrol(unit, radius):
    pass

def distance(a, b):
    return a - b
`
	m := mustParse(t, src)
	if len(m.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(m.Body))
	}

	patrol, ok := m.Body[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected function def, got %T", m.Body[0])
	}
	if patrol.Name != "patrol" || !patrol.Background {
		t.Errorf("expected background function patrol, got %q background=%v", patrol.Name, patrol.Background)
	}
	if len(patrol.Params) != 2 || patrol.Params[0] != "unit" || patrol.Params[1] != "radius" {
		t.Errorf("unexpected params: %v", patrol.Params)
	}

	dist, ok := m.Body[1].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected function def, got %T", m.Body[1])
	}
	if dist.Background {
		t.Error("plain def parsed as background function")
	}
	if len(dist.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(dist.Body))
	}
	ret, ok := dist.Body[0].(*ast.Return)
	if !ok || ret.Value == nil {
		t.Errorf("expected return with value, got %T", dist.Body[0])
	}
}

func TestParseElifChain(t *testing.T) {
	src := `
if a:
    pass
elif b:
    pass
else:
    pass
`
	m := mustParse(t, src)
	outer, ok := m.Body[0].(*ast.If)
	if !ok {
		t.Fatalf("expected if, got %T", m.Body[0])
	}
	if len(outer.Else) != 1 {
		t.Fatalf("expected elif as single else statement, got %d", len(outer.Else))
	}
	inner, ok := outer.Else[0].(*ast.If)
	if !ok {
		t.Fatalf("expected nested if for elif, got %T", outer.Else[0])
	}
	if len(inner.Else) != 1 {
		t.Errorf("expected final else on nested if, got %d statements", len(inner.Else))
	}
}

func TestParseForAndAwait(t *testing.T) {
	src := `
for i in range(10):
    await work(i)
`
	m := mustParse(t, src)
	loop, ok := m.Body[0].(*ast.For)
	if !ok {
		t.Fatalf("expected for, got %T", m.Body[0])
	}
	if loop.Var.Ident != "i" {
		t.Errorf("expected loop variable i, got %q", loop.Var.Ident)
	}
	if _, ok := loop.Iter.(*ast.Call); !ok {
		t.Errorf("expected call iterator, got %T", loop.Iter)
	}
	aw, ok := loop.Body[0].(*ast.Await)
	if !ok {
		t.Fatalf("expected await statement, got %T", loop.Body[0])
	}
	if len(aw.Call.Args) != 1 {
		t.Errorf("expected 1 call argument, got %d", len(aw.Call.Args))
	}
}

func TestParseAugmentedAssign(t *testing.T) {
	tests := []struct {
		src string
		op  string
	}{
		{"x += 1\n", "+"},
		{"x -= 1\n", "-"},
		{"x *= 2\n", "*"},
		{"x /= 2\n", "/"},
	}
	for _, tt := range tests {
		m := mustParse(t, tt.src)
		assign, ok := m.Body[0].(*ast.Assign)
		if !ok {
			t.Fatalf("%s: expected assignment, got %T", tt.src, m.Body[0])
		}
		if assign.Op != tt.op {
			t.Errorf("%s: expected op %q, got %q", tt.src, tt.op, assign.Op)
		}
	}
}

func TestParseSubscriptTarget(t *testing.T) {
	m := mustParse(t, "items[0] = 5\n")
	assign, ok := m.Body[0].(*ast.Assign)
	if !ok {
		t.Fatalf("expected assignment, got %T", m.Body[0])
	}
	if _, ok := assign.Target.(*ast.Subscript); !ok {
		t.Errorf("expected subscript target, got %T", assign.Target)
	}
}

func TestParsePrecedenceShapes(t *testing.T) {
	t.Run("MulBindsTighterThanAdd", func(t *testing.T) {
		v := assignValue(t, "x = 1 + 2 * 3\n")
		add, ok := v.(*ast.BinaryOp)
		if !ok || add.Op != "+" {
			t.Fatalf("expected + at root, got %T", v)
		}
		mul, ok := add.Right.(*ast.BinaryOp)
		if !ok || mul.Op != "*" {
			t.Errorf("expected * as right child, got %T", add.Right)
		}
	})

	t.Run("PowerRightAssociative", func(t *testing.T) {
		v := assignValue(t, "x = 2 ** 3 ** 2\n")
		pow, ok := v.(*ast.BinaryOp)
		if !ok || pow.Op != "**" {
			t.Fatalf("expected ** at root, got %T", v)
		}
		if inner, ok := pow.Right.(*ast.BinaryOp); !ok || inner.Op != "**" {
			t.Errorf("expected ** nested on the right, got %T", pow.Right)
		}
	})

	t.Run("UnaryMinusLooserThanPower", func(t *testing.T) {
		v := assignValue(t, "x = -2 ** 2\n")
		neg, ok := v.(*ast.UnaryOp)
		if !ok || neg.Op != "-" {
			t.Fatalf("expected unary - at root, got %T", v)
		}
		if pow, ok := neg.Operand.(*ast.BinaryOp); !ok || pow.Op != "**" {
			t.Errorf("expected ** under unary -, got %T", neg.Operand)
		}
	})

	t.Run("NotLooserThanComparison", func(t *testing.T) {
		v := assignValue(t, "x = not a == b\n")
		not, ok := v.(*ast.UnaryOp)
		if !ok || not.Op != "not" {
			t.Fatalf("expected not at root, got %T", v)
		}
		if cmp, ok := not.Operand.(*ast.BinaryOp); !ok || cmp.Op != "==" {
			t.Errorf("expected == under not, got %T", not.Operand)
		}
	})

	t.Run("AndBindsTighterThanOr", func(t *testing.T) {
		v := assignValue(t, "x = a or b and c\n")
		or, ok := v.(*ast.BinaryOp)
		if !ok || or.Op != "or" {
			t.Fatalf("expected or at root, got %T", v)
		}
		if and, ok := or.Right.(*ast.BinaryOp); !ok || and.Op != "and" {
			t.Errorf("expected and as right child, got %T", or.Right)
		}
	})

	t.Run("NotChain", func(t *testing.T) {
		v := assignValue(t, "x = not not a\n")
		outer, ok := v.(*ast.UnaryOp)
		if !ok || outer.Op != "not" {
			t.Fatalf("expected not at root, got %T", v)
		}
		if inner, ok := outer.Operand.(*ast.UnaryOp); !ok || inner.Op != "not" {
			t.Errorf("expected nested not, got %T", outer.Operand)
		}
	})

	t.Run("ParensOverride", func(t *testing.T) {
		v := assignValue(t, "x = (1 + 2) * 3\n")
		mul, ok := v.(*ast.BinaryOp)
		if !ok || mul.Op != "*" {
			t.Fatalf("expected * at root, got %T", v)
		}
		if add, ok := mul.Left.(*ast.BinaryOp); !ok || add.Op != "+" {
			t.Errorf("expected + as left child, got %T", mul.Left)
		}
	})
}

func TestParseConditionalExpression(t *testing.T) {
	v := assignValue(t, "x = 1 if c else 2\n")
	ie, ok := v.(*ast.IfExp)
	if !ok {
		t.Fatalf("expected conditional expression, got %T", v)
	}
	if _, ok := ie.Cond.(*ast.Name); !ok {
		t.Errorf("expected name condition, got %T", ie.Cond)
	}
	if c, ok := ie.Then.(*ast.Constant); !ok || c.Lit != "1" {
		t.Errorf("expected constant 1 branch, got %T", ie.Then)
	}
	if c, ok := ie.Else.(*ast.Constant); !ok || c.Lit != "2" {
		t.Errorf("expected constant 2 branch, got %T", ie.Else)
	}

	// The else branch nests to the right.
	v = assignValue(t, "x = 1 if a else 2 if b else 3\n")
	outer, ok := v.(*ast.IfExp)
	if !ok {
		t.Fatalf("expected conditional expression, got %T", v)
	}
	if _, ok := outer.Else.(*ast.IfExp); !ok {
		t.Errorf("expected nested conditional in else branch, got %T", outer.Else)
	}
}

func TestParseFString(t *testing.T) {
	v := assignValue(t, "x = f\"count {n} of {m}\"\n")
	fs, ok := v.(*ast.FString)
	if !ok {
		t.Fatalf("expected f-string, got %T", v)
	}
	if len(fs.Exprs) != 2 || len(fs.Text) != 3 {
		t.Fatalf("expected 2 fields and 3 segments, got %d and %d", len(fs.Exprs), len(fs.Text))
	}
	if fs.Text[0] != "count " || fs.Text[1] != " of " || fs.Text[2] != "" {
		t.Errorf("unexpected segments: %q", fs.Text)
	}
	if n, ok := fs.Exprs[0].(*ast.Name); !ok || n.Ident != "n" {
		t.Errorf("expected name field n, got %T", fs.Exprs[0])
	}

	// Fields hold full expressions.
	v = assignValue(t, "x = f\"sum {a + b}\"\n")
	fs, ok = v.(*ast.FString)
	if !ok {
		t.Fatalf("expected f-string, got %T", v)
	}
	if _, ok := fs.Exprs[0].(*ast.BinaryOp); !ok {
		t.Errorf("expected binary field expression, got %T", fs.Exprs[0])
	}

	// Without fields it is an ordinary string; {{ and }} are brace escapes.
	v = assignValue(t, "x = f\"100{{pct}}\"\n")
	c, ok := v.(*ast.Constant)
	if !ok || c.Kind != ast.ConstString || c.Lit != "100{pct}" {
		t.Errorf("expected plain string constant 100{pct}, got %T %v", v, v)
	}
}

func TestParseUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		construct string
	}{
		{"Class", "class Foo:\n    pass\n", "class definition"},
		{"Import", "import math\n", "import"},
		{"FromImport", "from math import sqrt\n", "import"},
		{"Try", "try:\n    pass\n", "exception handling"},
		{"With", "with open(f):\n    pass\n", "with statement"},
		{"Raise", "raise\n", "raise"},
		{"Lambda", "f = lambda x: x\n", "lambda"},
		{"Yield", "x = yield 1\n", "yield"},
		{"Global", "global x\n", "global declaration"},
		{"Assert", "assert x\n", "assert"},
		{"Decorator", "@memo\ndef f():\n    pass\n", "decorator"},
		{"NestedDef", "def f():\n    def g():\n        pass\n", "nested function definition"},
		{"DefaultParam", "def f(x=1):\n    pass\n", "default parameter value"},
		{"StarredParam", "def f(*args):\n    pass\n", "starred parameter"},
		{"KeywordArgument", "f(x=1)\n", "keyword argument"},
		{"StarredArgument", "f(*args)\n", "starred argument"},
		{"ChainedComparison", "x = 1 < y < 3\n", "chained comparison"},
		{"Comprehension", "x = [i for i in y]\n", "comprehension"},
		{"TupleLiteral", "x = (1, 2)\n", "tuple literal"},
		{"TupleLoopTarget", "for a, b in pairs:\n    pass\n", "tuple loop target"},
		{"OpenSlice", "x = items[:3]\n", "open-ended slice"},
		{"StepSlice", "x = items[1:5:2]\n", "slice with step"},
		{"SliceAssignment", "items[1:3] = x\n", "slice assignment"},
		{"AwaitExpression", "x = await f()\n", "await in expression position"},
		{"FormatSpecifier", "x = f\"{n:03}\"\n", "format specifier"},
		{"ConversionSpecifier", "x = f\"{n!r}\"\n", "conversion specifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.src)
			var uerr *parser.UnsupportedError
			if !errors.As(err, &uerr) {
				t.Fatalf("expected UnsupportedError, got %v", err)
			}
			if uerr.Construct != tt.construct {
				t.Errorf("expected construct %q, got %q", tt.construct, uerr.Construct)
			}
			if uerr.Position.Line == 0 {
				t.Errorf("error carries no position: %v", uerr)
			}
		})
	}
}

func TestParseGrammarErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"DanglingOperator", "x = 1 +\n"},
		{"MissingColon", "if x\n    pass\n"},
		{"MissingBlock", "while x:\npass\n"},
		{"BadAssignTarget", "1 = x\n"},
		{"UnclosedCall", "f(1, 2\n"},
		{"NotAfterComparison", "x = a == not b\n"},
		{"NotAfterArithmetic", "x = a + not b\n"},
		{"ConditionalMissingElse", "x = 1 if c\n"},
		{"UnclosedInterpolation", "x = f\"count {n\"\n"},
		{"EmptyInterpolation", "x = f\"count {}\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.src)
			var perr *parser.Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected parser.Error, got %v", err)
			}
			if perr.Position.Line == 0 {
				t.Errorf("error carries no position: %v", perr)
			}
		})
	}
}
