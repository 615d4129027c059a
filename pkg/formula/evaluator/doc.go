// Package evaluator evaluates formula ASTs against a record.
//
// # Basic Usage
//
//	ev := evaluator.New(functions.NewDefaultRegistry())
//	ctx := &schema.Context{
//	    Record: &schema.Record{
//	        ID:     "r1",
//	        Fields: map[string]any{"firstName": "John", "lastName": "Doe"},
//	    },
//	}
//	v, err := ev.EvaluateExpression(`CONCAT(firstName, " ", lastName)`, ctx)
//	// v == "John Doe"
//
// # Semantics
//
// Column references resolve against Record.Fields, then Record.Custom. A
// reference naming a schema column whose value is missing is blank (nil);
// any other unknown name is a reference error.
//
// Arithmetic treats blank as 0 and parses numeric text. Dividing by exactly
// 0 is a division_by_zero error. "=" compares numerically when both sides
// are numeric and blank equals blank. AND and OR short-circuit.
//
// IF evaluates only the chosen branch, so a guard such as
//
//	IF(b = 0, 0, a / b)
//
// never divides by zero. IFERROR evaluates its fallback only when the
// value fails.
//
// # Memo
//
// EvaluateExpression memoizes outcomes per (record, expression) until
// ResetPass. Workers call ResetPass once per message.
package evaluator
