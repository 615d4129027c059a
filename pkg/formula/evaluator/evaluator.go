package evaluator

import (
	"errors"
	"fmt"
	"log/slog"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/formula/parser"
	"tabula-hq/formula/pkg/schema"
)

// Evaluator walks formula ASTs against a record context.
//
// An Evaluator is safe for concurrent use. Its memo is shared by every
// caller until ResetPass is called.
type Evaluator struct {
	registry *functions.Registry
	parser   *parser.Parser
	memo     *Memo
	maxDepth int
	logger   *slog.Logger
}

// New creates an evaluator that resolves functions in registry.
// A nil registry means the default built-in registry.
func New(registry *functions.Registry) *Evaluator {
	if registry == nil {
		registry = functions.NewDefaultRegistry()
	}
	return &Evaluator{
		registry: registry,
		parser:   parser.NewParser(),
		memo:     NewMemo(),
		maxDepth: parser.DefaultMaxDepth,
		logger:   slog.Default().With("component", "formula.evaluator"),
	}
}

// WithParser sets the parser used by EvaluateExpression. The evaluator
// adopts the parser's maximum depth.
func (e *Evaluator) WithParser(p *parser.Parser) *Evaluator {
	e.parser = p
	e.maxDepth = p.MaxDepth()
	return e
}

// WithLogger sets the logger.
func (e *Evaluator) WithLogger(logger *slog.Logger) *Evaluator {
	if logger != nil {
		e.logger = logger.With("component", "formula.evaluator")
	}
	return e
}

// Registry returns the function registry.
func (e *Evaluator) Registry() *functions.Registry {
	return e.registry
}

// Parser returns the parser used by EvaluateExpression.
func (e *Evaluator) Parser() *parser.Parser {
	return e.parser
}

// Memo returns the per-pass memo, for reuse by callers that cache results.
func (e *Evaluator) Memo() *Memo {
	return e.memo
}

// ResetPass ends the current evaluation pass and forgets memoized results.
func (e *Evaluator) ResetPass() {
	e.memo.Reset()
}

// EvaluateExpression parses and evaluates expr for the record in ctx.
// Outcomes are memoized per (record, expression) until ResetPass.
func (e *Evaluator) EvaluateExpression(expr string, ctx *schema.Context) (any, error) {
	recordID := ctx.RecordID()
	if recordID != "" {
		if entry, ok := e.memo.Get(recordID, expr); ok {
			return entry.Value, entry.Err
		}
	}

	node, err := e.parser.Parse(expr)
	if err != nil {
		return nil, err
	}

	value, err := e.Evaluate(node, ctx)
	if recordID != "" {
		e.memo.Put(recordID, expr, value, err)
	}
	return value, err
}

// Evaluate evaluates a parsed expression. Every failure is a
// *errors.FormulaError; a panicking function becomes a type error.
func (e *Evaluator) Evaluate(node ast.Node, ctx *schema.Context) (any, error) {
	if node == nil {
		return nil, ferrors.New(ferrors.KindSyntax, "empty expression")
	}
	return e.eval(node, ctx, 0)
}

// eval evaluates node. depth counts nested unary operators and function
// calls, matching the nesting the parser limits; binary operators do not
// add to it.
func (e *Evaluator) eval(node ast.Node, ctx *schema.Context, depth int) (any, error) {
	if e.maxDepth > 0 && depth > e.maxDepth {
		return nil, ferrors.NewAt(ferrors.KindSyntax, node.Position(), "expression nested deeper than %d levels", e.maxDepth)
	}

	switch n := node.(type) {
	case *ast.Literal:
		return n.Value, nil

	case *ast.ColumnRef:
		return resolveColumn(n, ctx)

	case *ast.UnaryOp:
		return e.evalUnary(n, ctx, depth)

	case *ast.BinaryOp:
		return e.evalBinary(n, ctx, depth)

	case *ast.FunctionCall:
		return e.evalCall(n, ctx, depth)

	default:
		return nil, ferrors.NewAt(ferrors.KindSyntax, node.Position(), "unsupported node %T", node)
	}
}

func (e *Evaluator) evalUnary(n *ast.UnaryOp, ctx *schema.Context, depth int) (any, error) {
	v, err := e.eval(n.Operand, ctx, depth+1)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpNot:
		return !functions.Truthy(v), nil
	case ast.OpNeg:
		return evaluateNegation(n.Pos, v)
	default:
		return nil, ferrors.NewAt(ferrors.KindSyntax, n.Pos, "unknown unary operator %q", n.Op)
	}
}

func (e *Evaluator) evalBinary(n *ast.BinaryOp, ctx *schema.Context, depth int) (any, error) {
	left, err := e.eval(n.Left, ctx, depth)
	if err != nil {
		return nil, err
	}

	// AND and OR short-circuit.
	switch n.Op {
	case ast.OpAnd:
		if !functions.Truthy(left) {
			return false, nil
		}
		right, err := e.eval(n.Right, ctx, depth)
		if err != nil {
			return nil, err
		}
		return functions.Truthy(right), nil

	case ast.OpOr:
		if functions.Truthy(left) {
			return true, nil
		}
		right, err := e.eval(n.Right, ctx, depth)
		if err != nil {
			return nil, err
		}
		return functions.Truthy(right), nil
	}

	right, err := e.eval(n.Right, ctx, depth)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		return evaluateArithmetic(n.Op, n.Pos, left, right)
	default:
		return evaluateComparison(n.Op, n.Pos, left, right)
	}
}

func (e *Evaluator) evalCall(n *ast.FunctionCall, ctx *schema.Context, depth int) (any, error) {
	def, ok := e.registry.Get(n.Name)
	if !ok {
		return nil, &ferrors.FormulaError{
			Kind:       ferrors.KindFunctionNotFound,
			Message:    fmt.Sprintf("unknown function %s", n.Name),
			Position:   n.Pos,
			Suggestion: ferrors.SuggestFunctionName(n.Name, e.registry.Names()),
		}
	}

	if err := def.CheckArity(len(n.Args)); err != nil {
		return nil, atPosition(err, n.Pos)
	}

	if functions.IsLazy(def.Name) {
		return e.evalLazy(def, n, ctx, depth)
	}

	args := make([]any, len(n.Args))
	for i, arg := range n.Args {
		v, err := e.eval(arg, ctx, depth+1)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return e.invoke(def, n, args, ctx)
}

// evalLazy evaluates IF and IFERROR, whose arguments are evaluated only
// when needed.
func (e *Evaluator) evalLazy(def *functions.Definition, n *ast.FunctionCall, ctx *schema.Context, depth int) (any, error) {
	switch def.Name {
	case "IF":
		cond, err := e.eval(n.Args[0], ctx, depth+1)
		if err != nil {
			return nil, err
		}
		if functions.Truthy(cond) {
			return e.eval(n.Args[1], ctx, depth+1)
		}
		if len(n.Args) > 2 {
			return e.eval(n.Args[2], ctx, depth+1)
		}
		return nil, nil

	case "IFERROR":
		v, err := e.eval(n.Args[0], ctx, depth+1)
		if err == nil {
			return v, nil
		}
		var fe *ferrors.FormulaError
		if !errors.As(err, &fe) {
			return nil, err
		}
		return e.eval(n.Args[1], ctx, depth+1)

	default:
		return nil, ferrors.NewAt(ferrors.KindSyntax, n.Pos, "function %s has no lazy form", def.Name)
	}
}

// invoke runs a function implementation, converting panics and untyped
// errors into type errors at the call position.
func (e *Evaluator) invoke(def *functions.Definition, n *ast.FunctionCall, args []any, ctx *schema.Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("function panicked",
				"function", def.Name,
				"record_id", ctx.RecordID(),
				"panic", fmt.Sprint(r),
			)
			result = nil
			err = ferrors.NewAt(ferrors.KindType, n.Pos, "%s failed: %v", def.Name, r)
		}
	}()

	v, err := def.Execute(args, ctx)
	if err != nil {
		var fe *ferrors.FormulaError
		if errors.As(err, &fe) {
			return nil, atPosition(fe, n.Pos)
		}
		return nil, ferrors.NewAt(ferrors.KindType, n.Pos, "%s: %v", def.Name, err)
	}
	v = functions.Normalize(v)
	if !functions.IsFinite(v) {
		return nil, ferrors.NewAt(ferrors.KindType, n.Pos, "%s result is out of numeric range", def.Name)
	}
	return v, nil
}

// atPosition sets pos on a FormulaError that has none.
func atPosition(err error, pos ast.Pos) error {
	var fe *ferrors.FormulaError
	if !errors.As(err, &fe) || fe.Position.IsValid() {
		return err
	}
	c := *fe
	c.Position = pos
	return &c
}
