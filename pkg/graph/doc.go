// Package graph builds the dependency graph of a column schema.
//
// Every column is a node. A formula column has an edge to each column its
// expression references (by id, key or name) and to each declared
// dependency. Data columns have no outgoing edges, so changing one marks
// its readers as affected.
//
// # Levels
//
// A column's level is 0 when it reads nothing and otherwise one more than
// the highest level it reads. CalculationOrder sorts by level, so
//
//	for _, id := range g.CalculationOrder() { ... }
//
// always computes a column after everything it reads.
//
// # Cycles
//
// Cycle detection is a precondition check performed before any evaluation:
//
//	g := graph.New(columns)
//	if err := g.Validate(); err != nil {
//	    // [circular] circular dependency: col_a -> col_b -> col_a
//	}
//
// Expressions are analysed statically, so both branches of IF contribute
// edges even though evaluation only takes one.
package graph
