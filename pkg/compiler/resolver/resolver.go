// Package resolver walks the AST, maps every source identifier to a
// target-dialect-legal identifier and classifies every call site. The walk
// annotates nodes in place; scopes exist only for the duration of the pass.
package resolver

import (
	"fmt"

	"github.com/py2sqf/py2sqf/pkg/compiler/ast"
	"github.com/py2sqf/py2sqf/pkg/compiler/builtins"
	"github.com/py2sqf/py2sqf/pkg/compiler/lexer"
)

// globalMarker is the distinguished attribute base that passes a raw
// target-dialect command through untranslated.
const globalMarker = "GLOBAL"

// UndefinedNameError reports a Name with no enclosing-scope binding.
type UndefinedNameError struct {
	Name     string
	Position lexer.Position
}

func (e *UndefinedNameError) Error() string {
	return fmt.Sprintf("line %d:%d: undefined name %q", e.Position.Line, e.Position.Col, e.Name)
}

// AmbiguousCallError reports a call whose target or invocation strategy
// cannot be determined statically. Calls are never silently defaulted.
type AmbiguousCallError struct {
	Name     string
	Position lexer.Position
	Reason   string
}

func (e *AmbiguousCallError) Error() string {
	return fmt.Sprintf("line %d:%d: ambiguous call target %q: %s", e.Position.Line, e.Position.Col, e.Name, e.Reason)
}

// scope is one lexical block's name table. Lookup walks from the innermost
// scope outward; sibling scopes are never consulted. A block scope holds
// only loop variables; ordinary assignments bind in the nearest function or
// module scope, matching source-language assignment semantics.
type scope struct {
	parent *scope
	block  bool
	names  map[string]string
}

func (s *scope) lookup(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if target, ok := cur.names[name]; ok {
			return target, true
		}
	}
	return "", false
}

type resolver struct {
	funcs map[string]*ast.FunctionDef
	scope *scope
}

// Resolve annotates m with target identifiers and call strategies, or
// returns the first resolution error.
func Resolve(m *ast.Module) error {
	r := &resolver{
		funcs: make(map[string]*ast.FunctionDef),
		scope: &scope{names: make(map[string]string)},
	}

	// Function names are hoisted so top-level calls may precede the
	// definition. They bind to unprefixed globals: a function value is a
	// global script variable in the target dialect.
	for _, stmt := range m.Body {
		fn, ok := stmt.(*ast.FunctionDef)
		if !ok {
			continue
		}
		if _, dup := r.funcs[fn.Name]; dup {
			return fmt.Errorf("line %d:%d: function %q redefined", fn.Position.Line, fn.Position.Col, fn.Name)
		}
		r.funcs[fn.Name] = fn
		r.scope.names[fn.Name] = fn.Name
		fn.Target = fn.Name
	}

	for _, stmt := range m.Body {
		if err := r.stmt(stmt, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) enter(block bool) {
	r.scope = &scope{parent: r.scope, block: block, names: make(map[string]string)}
}
func (r *resolver) exit() { r.scope = r.scope.parent }

// bindIn creates a binding for name in the given scope. The first binding of
// a spelling maps to the marker prefix plus the name; a binding that shadows
// enclosing ones gets a depth suffix so the two remain distinct identifiers
// in the output. A candidate that is already the target of another visible
// binding (a source identifier spelled like a suffixed target, say `x_1`
// next to a shadowed `x`) bumps the suffix until the target is free.
func (r *resolver) bindIn(owner *scope, name string) string {
	depth := 0
	for s := owner.parent; s != nil; s = s.parent {
		if _, ok := s.names[name]; ok {
			depth++
		}
	}
	target := "_" + name
	if depth > 0 {
		target = fmt.Sprintf("_%s_%d", name, depth)
	}
	for r.targetInUse(target) {
		depth++
		target = fmt.Sprintf("_%s_%d", name, depth)
	}
	owner.names[name] = target
	return target
}

// targetInUse reports whether any live binding already maps to target.
func (r *resolver) targetInUse(target string) bool {
	for s := r.scope; s != nil; s = s.parent {
		for _, t := range s.names {
			if t == target {
				return true
			}
		}
	}
	return false
}

// bind creates a binding in the nearest function or module scope.
func (r *resolver) bind(name string) string {
	owner := r.scope
	for owner.block {
		owner = owner.parent
	}
	return r.bindIn(owner, name)
}

// assignTarget reuses a binding visible within the current function (its
// scope chain up to and including the nearest non-block scope) or creates a
// new one, shadowing any enclosing binding of the same spelling.
func (r *resolver) assignTarget(name string) string {
	for s := r.scope; ; s = s.parent {
		if target, ok := s.names[name]; ok {
			return target
		}
		if !s.block {
			break
		}
	}
	return r.bind(name)
}

func (r *resolver) stmt(stmt ast.Stmt, topLevel bool) error {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		r.enter(false)
		defer r.exit()
		s.ParamTargets = s.ParamTargets[:0]
		for _, param := range s.Params {
			s.ParamTargets = append(s.ParamTargets, r.bind(param))
		}
		for _, inner := range s.Body {
			if err := r.stmt(inner, false); err != nil {
				return err
			}
		}
		return nil
	case *ast.Assign:
		if err := r.expr(s.Value); err != nil {
			return err
		}
		switch target := s.Target.(type) {
		case *ast.Name:
			if s.Op != "" {
				// Augmented assignment reads the target first.
				resolved, ok := r.scope.lookup(target.Ident)
				if !ok {
					return &UndefinedNameError{Name: target.Ident, Position: target.Position}
				}
				target.Target = resolved
				return nil
			}
			target.Target = r.assignTarget(target.Ident)
			return nil
		case *ast.Subscript:
			if err := r.expr(target.Value); err != nil {
				return err
			}
			return r.expr(target.Index)
		default:
			return fmt.Errorf("line %d:%d: unassignable target", s.Position.Line, s.Position.Col)
		}
	case *ast.ExprStmt:
		if call, ok := s.Value.(*ast.Call); ok {
			return r.call(call, topLevel, false)
		}
		return r.expr(s.Value)
	case *ast.If:
		if err := r.expr(s.Cond); err != nil {
			return err
		}
		for _, inner := range s.Body {
			if err := r.stmt(inner, false); err != nil {
				return err
			}
		}
		for _, inner := range s.Else {
			if err := r.stmt(inner, false); err != nil {
				return err
			}
		}
		return nil
	case *ast.While:
		if err := r.expr(s.Cond); err != nil {
			return err
		}
		for _, inner := range s.Body {
			if err := r.stmt(inner, false); err != nil {
				return err
			}
		}
		return nil
	case *ast.For:
		if err := r.forIter(s.Iter); err != nil {
			return err
		}
		// The loop variable is block-scoped: the emitted loop forms make
		// it local to the loop body in the target dialect.
		r.enter(true)
		defer r.exit()
		s.Var.Target = r.bindIn(r.scope, s.Var.Ident)
		for _, inner := range s.Body {
			if err := r.stmt(inner, false); err != nil {
				return err
			}
		}
		return nil
	case *ast.Return:
		if s.Value != nil {
			return r.expr(s.Value)
		}
		return nil
	case *ast.Delete:
		for _, name := range s.Names {
			resolved, ok := r.scope.lookup(name.Ident)
			if !ok {
				return &UndefinedNameError{Name: name.Ident, Position: name.Position}
			}
			name.Target = resolved
		}
		return nil
	case *ast.Await:
		return r.call(s.Call, false, true)
	case *ast.Pass, *ast.Break, *ast.Continue:
		return nil
	default:
		return fmt.Errorf("unexpected statement %T", stmt)
	}
}

// forIter resolves a for-loop iterator, recognizing range(...) as the
// count-controlled loop marker.
func (r *resolver) forIter(iter ast.Expr) error {
	if call, ok := iter.(*ast.Call); ok {
		if name, ok := call.Func.(*ast.Name); ok && name.Ident == "range" {
			if len(call.Args) < 1 || len(call.Args) > 3 {
				return &AmbiguousCallError{
					Name:     "range",
					Position: call.Position,
					Reason:   fmt.Sprintf("expects 1 to 3 arguments, got %d", len(call.Args)),
				}
			}
			call.Class = ast.ClassRange
			call.Strategy = ast.StrategySync
			call.Callee = "range"
			name.Target = "range"
			for _, arg := range call.Args {
				if err := r.expr(arg); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return r.expr(iter)
}

func (r *resolver) expr(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.Name:
		resolved, ok := r.scope.lookup(e.Ident)
		if !ok {
			return &UndefinedNameError{Name: e.Ident, Position: e.Position}
		}
		e.Target = resolved
		return nil
	case *ast.Constant:
		return nil
	case *ast.BinaryOp:
		if err := r.expr(e.Left); err != nil {
			return err
		}
		return r.expr(e.Right)
	case *ast.UnaryOp:
		return r.expr(e.Operand)
	case *ast.IfExp:
		if err := r.expr(e.Cond); err != nil {
			return err
		}
		if err := r.expr(e.Then); err != nil {
			return err
		}
		return r.expr(e.Else)
	case *ast.FString:
		for _, inner := range e.Exprs {
			if err := r.expr(inner); err != nil {
				return err
			}
		}
		return nil
	case *ast.Subscript:
		if err := r.expr(e.Value); err != nil {
			return err
		}
		if e.IsSlice {
			if err := r.expr(e.Low); err != nil {
				return err
			}
			return r.expr(e.High)
		}
		return r.expr(e.Index)
	case *ast.Attribute:
		if name, ok := e.Value.(*ast.Name); ok && name.Ident == globalMarker {
			name.Target = globalMarker
			return nil
		}
		return r.expr(e.Value)
	case *ast.List:
		for _, elem := range e.Elems {
			if err := r.expr(elem); err != nil {
				return err
			}
		}
		return nil
	case *ast.Call:
		return r.call(e, false, false)
	default:
		return fmt.Errorf("unexpected expression %T", expr)
	}
}

// call classifies a call site and fixes its invocation strategy. The
// classification is total: every call is user, builtin, global passthrough
// or method, or resolution fails.
func (r *resolver) call(c *ast.Call, topLevel, awaited bool) error {
	for _, arg := range c.Args {
		if err := r.expr(arg); err != nil {
			return err
		}
	}

	switch fn := c.Func.(type) {
	case *ast.Name:
		if resolved, ok := r.scope.lookup(fn.Ident); ok {
			def, isFunc := r.funcs[fn.Ident]
			if !isFunc || resolved != def.Target {
				return &AmbiguousCallError{
					Name:     fn.Ident,
					Position: c.Position,
					Reason:   "target is a variable, not a function or built-in",
				}
			}
			if len(c.Args) != len(def.Params) {
				return &AmbiguousCallError{
					Name:     fn.Ident,
					Position: c.Position,
					Reason:   fmt.Sprintf("expects %d arguments, got %d", len(def.Params), len(c.Args)),
				}
			}
			fn.Target = def.Target
			c.Class = ast.ClassUser
			c.Callee = def.Target
			switch {
			case def.Background && topLevel:
				c.Strategy = ast.StrategyAsync
			case def.Background && !awaited:
				return &AmbiguousCallError{
					Name:     fn.Ident,
					Position: c.Position,
					Reason:   "background function called without await outside the top level",
				}
			default:
				c.Strategy = ast.StrategySync
			}
			return nil
		}
		if cmd, ok := builtins.Lookup(fn.Ident); ok {
			if len(c.Args) != cmd.Arity {
				return &AmbiguousCallError{
					Name:     fn.Ident,
					Position: c.Position,
					Reason:   fmt.Sprintf("built-in expects %d arguments, got %d", cmd.Arity, len(c.Args)),
				}
			}
			fn.Target = fn.Ident
			c.Class = ast.ClassBuiltin
			c.Callee = fn.Ident
			c.Strategy = ast.StrategySync
			return nil
		}
		if fn.Ident == "range" {
			return &AmbiguousCallError{
				Name:     fn.Ident,
				Position: c.Position,
				Reason:   "range is only usable as a for-loop iterator",
			}
		}
		return &AmbiguousCallError{
			Name:     fn.Ident,
			Position: c.Position,
			Reason:   "not a user-defined function or recognized built-in",
		}
	case *ast.Attribute:
		if name, ok := fn.Value.(*ast.Name); ok && name.Ident == globalMarker {
			name.Target = globalMarker
			c.Class = ast.ClassGlobal
			c.Callee = fn.Attr
			c.Strategy = ast.StrategySync
			return nil
		}
		if err := r.expr(fn.Value); err != nil {
			return err
		}
		c.Class = ast.ClassMethod
		c.Callee = fn.Attr
		c.Strategy = ast.StrategySync
		return nil
	default:
		return &AmbiguousCallError{
			Name:     "<expression>",
			Position: c.Position,
			Reason:   "call target cannot be identified statically",
		}
	}
}
