// Package ast provides the Abstract Syntax Tree for formula expressions.
//
// A parsed formula is a tree of five node kinds:
//
//	Literal       42, "text", TRUE, NULL
//	ColumnRef     firstName, [Full Name]
//	FunctionCall  CONCAT(firstName, " ", lastName)
//	BinaryOp      a + b, x >= 10, p AND q
//	UnaryOp       -a, NOT done
//
// Nodes carry their 1-based position in the source expression for error
// reporting and are never modified after the parser returns them, so a tree
// can be shared between goroutines.
//
// # Static analysis
//
// Walk visits every node, including both branches of IF. ColumnRefs builds on
// it to extract the columns a formula may read:
//
//	node, _ := parser.Parse(`IF(ISBLANK(phone), email, phone)`)
//	ast.ColumnRefs(node) // [phone email]
//
// The evaluator, in contrast, only evaluates the branch IF selects.
package ast
