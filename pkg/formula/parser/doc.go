// Package parser turns formula expressions into ASTs.
//
// The parser is a hand-written recursive-descent parser. It performs no I/O
// and keeps no state between calls apart from its configuration, so one
// Parser can be shared by every goroutine of a worker pool.
//
// # Basic Usage
//
//	node, err := parser.Parse(`CONCAT(firstName, " ", lastName)`)
//	if err != nil {
//	    var fe *ferrors.FormulaError
//	    if errors.As(err, &fe) {
//	        fmt.Println(fe.Position, fe.Message)
//	    }
//	}
//
// # Grammar
//
// Loosest to tightest binding:
//
//	or             and { ("OR" | "||") and }
//	and            equality { ("AND" | "&&") equality }
//	equality       relational { ("=" | "==" | "!=" | "<>") relational }
//	relational     additive { ("<" | ">" | "<=" | ">=") additive }
//	additive       multiplicative { ("+" | "-") multiplicative }
//	multiplicative unary { ("*" | "/") unary }
//	unary          ("-" | "+" | "NOT" | "!") unary | primary
//	primary        NUMBER | STRING | TRUE | FALSE | NULL
//	               | NAME "(" [ or { "," or } ] ")"
//	               | identifier | "[" any text "]"
//	               | "(" or ")"
//
// A function name is a run of upper-case letters, digits and underscores
// directly followed by "(". Any other identifier is a column reference.
// Column names containing spaces are written in brackets: [Deal Size].
//
// # Configuration
//
//	p := parser.NewParser().
//	    WithMaxDepth(32).      // Max nesting depth
//	    WithMaxLength(4096)    // Max expression length
//
// Expressions nested deeper than the maximum depth fail with a syntax error.
// The limit also bounds the recursion of the evaluator.
package parser
