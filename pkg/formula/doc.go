// Package formula is the entry point to the formula language.
//
// The language is implemented by the subpackages:
//
//	ast        syntax tree and static analysis
//	parser     expression parser
//	functions  function registry and built-ins
//	evaluator  tree-walking evaluator
//	errors     structured FormulaError
//
// This package offers the common combinations:
//
//	node, err := formula.ParseAndValidate(`ROUND(AVERAGE(q1, q2, q3), 2)`, nil)
//
//	deps, err := formula.Dependencies(`IF(ISBLANK(phone), email, phone)`)
//	// deps == [phone email]
package formula
