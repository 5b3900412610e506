package parser

// The source-language precedence table. This is the single source of truth
// for how the subset binds its operators; the code generator consults its
// own target-dialect table when deciding parenthesization, never this one.
//
// Levels (loosest to tightest): or, and, not, comparisons, + -, * / // %,
// unary + -, **. Exponentiation is the only right-associative operator.
var binaryPrec = map[string]int{
	"or":  1,
	"and": 2,

	"==": 4, "!=": 4, "<": 4, "<=": 4, ">": 4, ">=": 4,

	"+": 5, "-": 5,

	"*": 6, "/": 6, "//": 6, "%": 6,

	"**": 8,
}

const (
	precNot   = 3
	precUnary = 7
	precPow   = 8
)

func isCompareOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func rightAssoc(op string) bool { return op == "**" }
