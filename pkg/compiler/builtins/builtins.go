// Package builtins holds the fixed mapping from recognized source-level
// function names to native target-dialect commands. The table is a versioned
// external interface of the core: adding or removing an entry changes which
// programs translate successfully. It is consumed read-only by the resolver
// (classification, arity) and the code generator (emission form).
package builtins

// Form describes how a native command takes its operands.
type Form uint8

const (
	FormNullary Form = iota // CMD
	FormUnary               // CMD arg
	FormBinary              // left CMD right
)

// Command is one built-in mapping entry.
type Command struct {
	Name  string // target-dialect spelling
	Form  Form
	Arity int
}

var table = map[string]Command{
	"len":    {"count", FormUnary, 1},
	"abs":    {"abs", FormUnary, 1},
	"floor":  {"floor", FormUnary, 1},
	"ceil":   {"ceil", FormUnary, 1},
	"round":  {"round", FormUnary, 1},
	"sqrt":   {"sqrt", FormUnary, 1},
	"random": {"random", FormUnary, 1},
	"str":    {"str", FormUnary, 1},

	"sleep":       {"sleep", FormUnary, 1},
	"hint":        {"hint", FormUnary, 1},
	"system_chat": {"systemChat", FormUnary, 1},

	// Emitted only when the source calls them; never injected into
	// generated loops.
	"select_weapon":  {"selectWeapon", FormBinary, 2},
	"fire":           {"fire", FormBinary, 2},
	"delete_vehicle": {"deleteVehicle", FormUnary, 1},
}

// Lookup returns the mapping entry for a source-level name.
func Lookup(name string) (Command, bool) {
	cmd, ok := table[name]
	return cmd, ok
}
