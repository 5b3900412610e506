package codegen

// The target-dialect precedence table, modeled on the engine's documented
// operator levels. It is independent of the source table the parser used;
// the generator re-derives parenthesization for every operand from this
// table because the two tables disagree (notably exponentiation, which the
// source binds tighter than unary minus and associates to the right, while
// the target evaluates it left to right below its unary commands).
//
// Levels (loosest to tightest): logical && ||, comparisons, general binary
// commands (call, spawn, select, set, forEach, method commands), + -,
// * / % mod, ^, unary commands, atoms. All target binary operators are left
// associative.
const (
	precBool    = 2
	precCompare = 3
	precCommand = 4
	precAddSub  = 6
	precMulDiv  = 7
	precPow     = 8
	precUnary   = 9
	precAtom    = 10
)

type sqfOp struct {
	text string
	prec int
}

// binaryOps maps source operator spellings to their target form. Floor
// division is absent: it has no single target operator and lowers to a
// floor command in the generator.
var binaryOps = map[string]sqfOp{
	"or":  {"||", precBool},
	"and": {"&&", precBool},

	"==": {"==", precCompare},
	"!=": {"!=", precCompare},
	"<":  {"<", precCompare},
	"<=": {"<=", precCompare},
	">":  {">", precCompare},
	">=": {">=", precCompare},

	"+": {"+", precAddSub},
	"-": {"-", precAddSub},

	"*": {"*", precMulDiv},
	"/": {"/", precMulDiv},
	"%": {"mod", precMulDiv},

	"**": {"^", precPow},
}
