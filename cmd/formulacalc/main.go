// Formulacalc evaluates spreadsheet-style formulas over tabular records.
//
// It loads a column schema, checks it for syntax errors, unknown functions
// and circular references, and computes every formula column for a set of
// records using a pool of workers.
//
// Usage:
//
//	# Evaluate one expression
//	formulacalc eval 'IF(budget > 1000, "enterprise", "smb")' --set budget=1500
//
//	# Validate a column schema
//	formulacalc check --schema columns.yaml
//
//	# Show the calculation order of a schema
//	formulacalc deps --schema columns.yaml
//
//	# Compute all formula columns for a record file
//	formulacalc calc --schema columns.yaml --records leads.json --out scored.json
//
//	# Recompute on every schema change and serve metrics and health probes
//	formulacalc watch --config config.yaml
//
//	# List the available functions
//	formulacalc functions --category math
package main

func main() {
	Execute()
}
