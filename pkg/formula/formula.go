package formula

import (
	"fmt"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/formula/parser"
)

// Parse parses an expression without validation.
// Use this if you want to inspect the AST before validation.
func Parse(expression string) (ast.Node, error) {
	return parser.Parse(expression)
}

// ParseAndValidate is a convenience function that parses an expression and
// checks every function call against registry. A nil registry means the
// default built-in registry.
func ParseAndValidate(expression string, registry *functions.Registry) (ast.Node, error) {
	node, err := parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	if err := Validate(node, registry); err != nil {
		return nil, err
	}
	return node, nil
}

// Validate checks every function call in the tree, including both branches
// of IF, for an unknown name or a wrong argument count. All problems are
// reported together as an *errors.ErrorList.
func Validate(node ast.Node, registry *functions.Registry) error {
	if registry == nil {
		registry = functions.NewDefaultRegistry()
	}

	el := ferrors.NewErrorList()
	_ = ast.Walk(node, func(n ast.Node) error {
		call, ok := n.(*ast.FunctionCall)
		if !ok {
			return nil
		}

		def, ok := registry.Get(call.Name)
		if !ok {
			el.Add(&ferrors.FormulaError{
				Kind:       ferrors.KindFunctionNotFound,
				Message:    fmt.Sprintf("unknown function %s", call.Name),
				Position:   call.Pos,
				Suggestion: ferrors.SuggestFunctionName(call.Name, registry.Names()),
			})
			return nil
		}

		if err := def.CheckArity(len(call.Args)); err != nil {
			fe := err.(*ferrors.FormulaError)
			c := *fe
			c.Position = call.Pos
			el.Add(&c)
		}
		return nil
	})

	return el.ToError()
}

// Dependencies returns the column references of an expression in order of
// first appearance. Both branches of IF are included, so the result is the
// set of columns the formula may read, not the set one evaluation reads.
func Dependencies(expression string) ([]string, error) {
	node, err := parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	return ast.ColumnRefs(node), nil
}

// UsesCategory reports whether the tree calls any function of category.
func UsesCategory(node ast.Node, registry *functions.Registry, category functions.Category) bool {
	if registry == nil {
		return false
	}
	for _, name := range ast.FunctionNames(node) {
		if def, ok := registry.Get(name); ok && def.Category == category {
			return true
		}
	}
	return false
}
