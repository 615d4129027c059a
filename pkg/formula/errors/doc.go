// Package errors provides the structured error type shared by the formula
// parser, evaluator and dependency graph.
//
// # Error Kinds
//
// KindSyntax: malformed expression (unmatched parenthesis, unknown token,
// nesting too deep) or a function called with the wrong number of arguments
//
// KindReference: a column reference that matches no field and no schema column
//
// KindCircular: the column schema contains a dependency cycle; raised when the
// schema is loaded, never during evaluation
//
// KindType: an operand or argument cannot be used by the operator or function
//
// KindDivisionByZero: the divisor of "/" evaluated to exactly 0
//
// KindFunctionNotFound: the called function is not registered
//
// # Matching
//
// Every FormulaError matches the package sentinel of its kind:
//
//	if errors.Is(err, ferrors.ErrDivisionByZero) {
//	    // render "#DIV/0" in place of the cell value
//	}
//
// # Format
//
//	[reference] unknown column "emial" at col 7: did you mean 'email'?
package errors
