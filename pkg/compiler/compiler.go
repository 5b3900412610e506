// Package compiler chains the translation pipeline: lexing, parsing, name
// resolution and code generation, strictly forward with no shared state.
// Translate is a pure function and safe to call concurrently on independent
// inputs.
package compiler

import (
	"fmt"

	"github.com/py2sqf/py2sqf/pkg/compiler/codegen"
	"github.com/py2sqf/py2sqf/pkg/compiler/parser"
	"github.com/py2sqf/py2sqf/pkg/compiler/resolver"
)

// Translate converts one source-subset program into target-dialect text.
// Each stage fails fast on its first error; errors are wrapped with the
// failing stage's name and carry the source position.
func Translate(src string) (string, error) {
	module, err := parser.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}
	if err := resolver.Resolve(module); err != nil {
		return "", fmt.Errorf("resolve: %w", err)
	}
	out, err := codegen.Generate(module)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}
