// Package ast defines the abstract syntax tree for the supported source
// subset. The variant set is fixed; nodes own their children exclusively and
// the tree is acyclic by construction. Every node retains its source
// position for diagnostics.
package ast

import "github.com/py2sqf/py2sqf/pkg/compiler/lexer"

// Node represents any node in the tree.
type Node interface {
	Pos() lexer.Position
}

// Expr represents an expression that yields a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a standalone unit of execution.
type Stmt interface {
	Node
	stmtNode()
}

// Strategy is the invocation strategy the resolver assigns to a call site.
type Strategy uint8

const (
	StrategyUnknown Strategy = iota
	StrategySync
	StrategyAsync
)

// CallClass is the resolver's classification of a call target.
type CallClass uint8

const (
	ClassUnknown CallClass = iota
	ClassUser              // top-level user-defined function
	ClassBuiltin           // entry in the built-in mapping table
	ClassGlobal            // GLOBAL.attr raw command passthrough
	ClassMethod            // obj.attr binary/unary command form
	ClassRange             // range(...) as a for-loop iterator
)

// Module is the root node.
type Module struct {
	Body []Stmt
}

func (m *Module) Pos() lexer.Position { return lexer.Position{Line: 1, Col: 1} }

// FunctionDef is a named function with a flat parameter list. Background
// marks `async def`, the marker for functions intended to run as spawned
// tasks.
type FunctionDef struct {
	Position   lexer.Position
	Name       string
	Params     []string
	Body       []Stmt
	Background bool

	// Target is the resolved global identifier, set by the resolver.
	Target string
	// ParamTargets are the resolved parameter identifiers, in order.
	ParamTargets []string
}

func (f *FunctionDef) Pos() lexer.Position { return f.Position }
func (f *FunctionDef) stmtNode()           {}

// Assign is `target = value` or an augmented form when Op is one of
// "+", "-", "*", "/". Target is a Name or a Subscript.
type Assign struct {
	Position lexer.Position
	Target   Expr
	Op       string
	Value    Expr
}

func (a *Assign) Pos() lexer.Position { return a.Position }
func (a *Assign) stmtNode()           {}

// ExprStmt is an expression evaluated for effect.
type ExprStmt struct {
	Position lexer.Position
	Value    Expr
}

func (e *ExprStmt) Pos() lexer.Position { return e.Position }
func (e *ExprStmt) stmtNode()           {}

// If with optional else branch; elif chains nest in Else.
type If struct {
	Position lexer.Position
	Cond     Expr
	Body     []Stmt
	Else     []Stmt
}

func (i *If) Pos() lexer.Position { return i.Position }
func (i *If) stmtNode()           {}

type While struct {
	Position lexer.Position
	Cond     Expr
	Body     []Stmt
}

func (w *While) Pos() lexer.Position { return w.Position }
func (w *While) stmtNode()           {}

// For iterates Var over Iter. The loop variable is block-scoped.
type For struct {
	Position lexer.Position
	Var      *Name
	Iter     Expr
	Body     []Stmt
}

func (f *For) Pos() lexer.Position { return f.Position }
func (f *For) stmtNode()           {}

type Return struct {
	Position lexer.Position
	Value    Expr // nil for a bare return
}

func (r *Return) Pos() lexer.Position { return r.Position }
func (r *Return) stmtNode()           {}

type Pass struct{ Position lexer.Position }

func (p *Pass) Pos() lexer.Position { return p.Position }
func (p *Pass) stmtNode()           {}

type Break struct{ Position lexer.Position }

func (b *Break) Pos() lexer.Position { return b.Position }
func (b *Break) stmtNode()           {}

type Continue struct{ Position lexer.Position }

func (c *Continue) Pos() lexer.Position { return c.Position }
func (c *Continue) stmtNode()           {}

// Delete is `del name, ...`.
type Delete struct {
	Position lexer.Position
	Names    []*Name
}

func (d *Delete) Pos() lexer.Position { return d.Position }
func (d *Delete) stmtNode()           {}

// Await suspends until Call yields a truthy result. Statement position only.
type Await struct {
	Position lexer.Position
	Call     *Call
}

func (a *Await) Pos() lexer.Position { return a.Position }
func (a *Await) stmtNode()           {}

// Call is a function or command invocation. Class, Strategy and Callee are
// filled in by the resolver; Strategy must be concrete before generation.
type Call struct {
	Position lexer.Position
	Func     Expr
	Args     []Expr

	Class    CallClass
	Strategy Strategy
	Callee   string // resolved target name for user/builtin/global/method calls
}

func (c *Call) Pos() lexer.Position { return c.Position }
func (c *Call) exprNode()           {}

// BinaryOp carries the source operator spelling ("+", "==", "and", ...).
type BinaryOp struct {
	Position lexer.Position
	Op       string
	Left     Expr
	Right    Expr
}

func (b *BinaryOp) Pos() lexer.Position { return b.Position }
func (b *BinaryOp) exprNode()           {}

// UnaryOp carries "-", "+" or "not".
type UnaryOp struct {
	Position lexer.Position
	Op       string
	Operand  Expr
}

func (u *UnaryOp) Pos() lexer.Position { return u.Position }
func (u *UnaryOp) exprNode()           {}

// IfExp is the conditional expression `Then if Cond else Else`.
type IfExp struct {
	Position lexer.Position
	Cond     Expr
	Then     Expr
	Else     Expr
}

func (i *IfExp) Pos() lexer.Position { return i.Position }
func (i *IfExp) exprNode()           {}

// FString is an interpolated string literal. Text holds the literal
// segments, always one more than Exprs; the expressions slot between them.
type FString struct {
	Position lexer.Position
	Text     []string
	Exprs    []Expr
}

func (f *FString) Pos() lexer.Position { return f.Position }
func (f *FString) exprNode()           {}

// Subscript is `Value[Index]`, or `Value[Low:High]` when IsSlice is set.
type Subscript struct {
	Position lexer.Position
	Value    Expr
	Index    Expr
	IsSlice  bool
	Low      Expr
	High     Expr
}

func (s *Subscript) Pos() lexer.Position { return s.Position }
func (s *Subscript) exprNode()           {}

// Attribute is `Value.Attr`.
type Attribute struct {
	Position lexer.Position
	Value    Expr
	Attr     string
}

func (a *Attribute) Pos() lexer.Position { return a.Position }
func (a *Attribute) exprNode()           {}

// Name is an identifier reference. Target is the resolved target-dialect
// identifier, set by the resolver; generation fails on an empty Target.
type Name struct {
	Position lexer.Position
	Ident    string
	Target   string
}

func (n *Name) Pos() lexer.Position { return n.Position }
func (n *Name) exprNode()           {}

// ConstKind tags a Constant's lexical form; emission choices are made
// syntactically from it, never from inferred runtime type.
type ConstKind uint8

const (
	ConstNumber ConstKind = iota
	ConstString
	ConstTrue
	ConstFalse
	ConstNone
)

type Constant struct {
	Position lexer.Position
	Kind     ConstKind
	Lit      string
}

func (c *Constant) Pos() lexer.Position { return c.Position }
func (c *Constant) exprNode()           {}

// List is a list literal.
type List struct {
	Position lexer.Position
	Elems    []Expr
}

func (l *List) Pos() lexer.Position { return l.Position }
func (l *List) exprNode()           {}
