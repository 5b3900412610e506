package codegen_test

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/py2sqf/py2sqf/pkg/compiler/codegen"
	"github.com/py2sqf/py2sqf/pkg/compiler/parser"
	"github.com/py2sqf/py2sqf/pkg/compiler/resolver"
)

func translate(t *testing.T, src string) string {
	t.Helper()
	m, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := resolver.Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	out, err := codegen.Generate(m)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return out
}

// lastLine returns the final emitted statement of a translated program,
// letting preamble assignments establish bindings for the expression under
// test.
func lastLine(t *testing.T, src string) string {
	t.Helper()
	out := strings.TrimRight(translate(t, src), "\n")
	lines := strings.Split(out, "\n")
	return lines[len(lines)-1]
}

func TestGenerateExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"RightChildKeepsParens",
			"a = 2\nb = 3\nc = 4\nd = 5\nx = a * b / (c * d)\n",
			"_x = _a * _b / (_c * _d);",
		},
		{
			"UnaryMinusOverPower",
			"x = -2 ** 2\n",
			"_x = -(2 ^ 2);",
		},
		{
			"PowerRightAssocNeedsParens",
			"x = 2 ** 3 ** 2\n",
			"_x = 2 ^ (3 ^ 2);",
		},
		{
			"FloorDivisionLowering",
			"x = 7 // 2\n",
			"_x = floor (7 / 2);",
		},
		{
			"ModuloSpelling",
			"x = 10 % 3\n",
			"_x = 10 mod 3;",
		},
		{
			"AndOrSameTargetLevel",
			"a = True\nb = False\nc = True\nx = a or b and c\n",
			"_x = _a || (_b && _c);",
		},
		{
			"NotOverComparison",
			"a = 1\nb = 2\nx = not a == b\n",
			"_x = !(_a == _b);",
		},
		{
			"IndexWithArithmetic",
			"items = [1, 2, 3]\ni = 1\nx = items[i + 1]\n",
			"_x = _items select _i + 1;",
		},
		{
			"SliceFoldsToCount",
			"items = [1, 2, 3, 4]\nx = items[1:3]\n",
			"_x = _items select [1, 2];",
		},
		{
			"SubscriptAssignment",
			"items = [0, 0]\nitems[0] = 5\n",
			"_items set [0, 5];",
		},
		{
			"AugmentedNoParens",
			"x = 1\nx += 2 * 3\n",
			"_x = _x + 2 * 3;",
		},
		{
			"AugmentedParens",
			"x = 1\nx *= 2 + 1\n",
			"_x = _x * (2 + 1);",
		},
		{
			"StringQuoteDoubling",
			"x = 'say \"hi\"'\n",
			`_x = "say ""hi""";`,
		},
		{
			"NoneIsNil",
			"x = None\n",
			"_x = nil;",
		},
		{
			"ListLiteral",
			"x = [1, 2, 1 + 2]\n",
			"_x = [1, 2, 1 + 2];",
		},
		{
			"CommandTighterThanComparison",
			"items = [1, 2]\nx = len(items) != 0\n",
			"_x = count _items != 0;",
		},
		{
			"ConditionalExpression",
			"c = True\nx = 1 if c else 2\n",
			"_x = if (_c) then {1} else {2};",
		},
		{
			"ConditionalAsOperand",
			"c = True\nx = (1 if c else 2) + 1\n",
			"_x = (if (_c) then {1} else {2}) + 1;",
		},
		{
			"FStringFormat",
			"n = 3\nm = 4\nx = f\"count {n} of {m}\"\n",
			`_x = format ["count %1 of %2", _n, _m];`,
		},
		{
			"FStringExpressionField",
			"a = 1\nb = 2\nx = f\"sum {a + b}\"\n",
			`_x = format ["sum %1", _a + _b];`,
		},
		{
			"FStringQuoteDoubling",
			"n = 3\nx = f'say \"{n}\"'\n",
			`_x = format ["say ""%1""", _n];`,
		},
		{
			"FStringAsBuiltinArgument",
			"n = 3\nhint(f\"count {n}\")\n",
			`hint (format ["count %1", _n]);`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lastLine(t, tt.src)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGenerateControlFlow(t *testing.T) {
	src := `total = 0
for i in range(2, 10, 2):
    total += i

units = [1, 2, 3]
for u in units:
    if u == 2:
        continue
    total = total + u

while total > 0:
    total -= 1
    if total == 3:
        break

del total
`
	want := `_total = 0;
for "_i" from 2 to 9 step 2 do {
    _total = _total + _i;
};
_units = [1, 2, 3];
{
    private _u = _x;
    if (_u == 2) then {
        continue;
    };
    _total = _total + _u;
} forEach _units;
while {_total > 0} do {
    _total = _total - 1;
    if (_total == 3) then {
        break;
    };
};
_total = nil;
`
	got := translate(t, src)
	if got != want {
		t.Errorf("output mismatch\nexpected:\n%s\ngot:\n%s", want, got)
	}
}

func TestGenerateIfElse(t *testing.T) {
	src := `x = 1
if x > 0:
    x = 2
else:
    x = 3
`
	want := `_x = 1;
if (_x > 0) then {
    _x = 2;
} else {
    _x = 3;
};
`
	got := translate(t, src)
	if got != want {
		t.Errorf("output mismatch\nexpected:\n%s\ngot:\n%s", want, got)
	}
}

func TestGenerateDynamicRangeBound(t *testing.T) {
	src := "n = 5\nfor i in range(n):\n    pass\n"
	out := translate(t, src)
	if !strings.Contains(out, `for "_i" from 0 to (_n - 1) step 1 do {`) {
		t.Errorf("expected dynamic inclusive bound, got:\n%s", out)
	}
}

func TestGenerateEarlyReturnRejected(t *testing.T) {
	src := `def f(x):
    return 1
    x = 2
`
	m, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := resolver.Resolve(m); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	_, err = codegen.Generate(m)
	var cerr *codegen.UnsupportedControlError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected UnsupportedControlError, got %v", err)
	}
}

// A miniature evaluator for the emitted numeric expressions, applying the
// target dialect's rules: every binary operator is left associative, unary
// commands bind tighter than ^, mod and the arithmetic operators sit on
// their own levels. Evaluating the emitted text and comparing against the
// source-language result proves the generator's parenthesization compensates
// for the precedence differences between the two languages.

type sqfEval struct {
	toks []string
	pos  int
}

var sqfPrec = map[string]int{
	"+": 6, "-": 6,
	"*": 7, "/": 7, "mod": 7,
	"^": 8,
}

func sqfTokens(s string) []string {
	var toks []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		case c >= 'a' && c <= 'z':
			j := i
			for j < len(s) && s[j] >= 'a' && s[j] <= 'z' {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			toks = append(toks, string(c))
			i++
		}
	}
	return toks
}

func (e *sqfEval) peek() string {
	if e.pos >= len(e.toks) {
		return ""
	}
	return e.toks[e.pos]
}

func (e *sqfEval) next() string {
	tok := e.peek()
	e.pos++
	return tok
}

func (e *sqfEval) primary() (float64, error) {
	switch tok := e.next(); tok {
	case "(":
		v, err := e.binary(1)
		if err != nil {
			return 0, err
		}
		if e.next() != ")" {
			return 0, fmt.Errorf("missing )")
		}
		return v, nil
	case "-":
		v, err := e.binary(10)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case "floor":
		v, err := e.binary(10)
		if err != nil {
			return 0, err
		}
		return math.Floor(v), nil
	case "abs":
		v, err := e.binary(10)
		if err != nil {
			return 0, err
		}
		return math.Abs(v), nil
	case "sqrt":
		v, err := e.binary(10)
		if err != nil {
			return 0, err
		}
		return math.Sqrt(v), nil
	default:
		return strconv.ParseFloat(tok, 64)
	}
}

func (e *sqfEval) binary(minPrec int) (float64, error) {
	left, err := e.primary()
	if err != nil {
		return 0, err
	}
	for {
		prec, ok := sqfPrec[e.peek()]
		if !ok || prec < minPrec {
			return left, nil
		}
		op := e.next()
		right, err := e.binary(prec + 1)
		if err != nil {
			return 0, err
		}
		switch op {
		case "+":
			left += right
		case "-":
			left -= right
		case "*":
			left *= right
		case "/":
			left /= right
		case "mod":
			left = math.Mod(left, right)
		case "^":
			left = math.Pow(left, right)
		}
	}
}

func evalSQF(s string) (float64, error) {
	e := &sqfEval{toks: sqfTokens(s)}
	v, err := e.binary(1)
	if err != nil {
		return 0, err
	}
	if e.pos != len(e.toks) {
		return 0, fmt.Errorf("trailing tokens in %q", s)
	}
	return v, nil
}

func TestGenerateNumericRoundTrip(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"-2 ** 2", -4},
		{"(-2) ** 2", 4},
		{"2 ** 3 ** 2", 512},
		{"(2 ** 3) ** 2", 64},
		{"7 // 2", 3},
		{"-7 // 2", -4},
		{"10 % 3", 1},
		{"2 * 7 / 9.8 ** 0.5", 2 * 7 / math.Sqrt(9.8)},
		{"(2 * 7 / 9.8) ** 0.5", math.Sqrt(2 * 7 / 9.8)},
		{"1 + 2 * 3 - 4 / 8", 6.5},
		{"-3 ** 2 + (2 + 1) * 2", -3},
		{"10 - 4 - 3", 3},
		{"10 - (4 - 3)", 9},
		{"17 % 5 * 2", 4},
		{"17 % (5 * 2)", 7},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			line := lastLine(t, "x = "+tt.expr+"\n")
			text := strings.TrimSuffix(strings.TrimPrefix(line, "_x = "), ";")
			got, err := evalSQF(text)
			if err != nil {
				t.Fatalf("evaluating %q: %v", text, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("%s => %q evaluated to %v, want %v", tt.expr, text, got, tt.want)
			}
		})
	}
}
