package evaluator

import (
	"strings"
	"time"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/formula/functions"
)

// evaluateArithmetic applies + - * / to two operands.
func evaluateArithmetic(op ast.Operator, pos ast.Pos, left, right any) (any, error) {
	l, err := toOperand(op, pos, left)
	if err != nil {
		return nil, err
	}
	r, err := toOperand(op, pos, right)
	if err != nil {
		return nil, err
	}

	var v float64
	switch op {
	case ast.OpAdd:
		v = l + r
	case ast.OpSub:
		v = l - r
	case ast.OpMul:
		v = l * r
	case ast.OpDiv:
		if r == 0 {
			return nil, ferrors.NewAt(ferrors.KindDivisionByZero, pos, "division by zero")
		}
		v = l / r
	default:
		return nil, ferrors.NewAt(ferrors.KindSyntax, pos, "unknown arithmetic operator %q", op)
	}
	return finite(op, pos, v)
}

// finite rejects infinite and NaN results, which have no value in the
// formula model.
func finite(op ast.Operator, pos ast.Pos, v float64) (any, error) {
	if !functions.IsFinite(v) {
		return nil, ferrors.NewAt(ferrors.KindType, pos, "result of %q is out of numeric range", op)
	}
	return v, nil
}

// toOperand converts an arithmetic operand to a number. Blank counts as 0.
func toOperand(op ast.Operator, pos ast.Pos, v any) (float64, error) {
	if functions.IsBlank(v) {
		return 0, nil
	}
	n, ok := functions.ToNumber(v)
	if !ok {
		return 0, ferrors.NewAt(ferrors.KindType, pos, "cannot apply %q to %s", op, functions.Describe(v))
	}
	return n, nil
}

// evaluateComparison applies = != < > <= >=.
func evaluateComparison(op ast.Operator, pos ast.Pos, left, right any) (bool, error) {
	switch op {
	case ast.OpEqual:
		return functions.Equal(left, right), nil
	case ast.OpNotEqual:
		return !functions.Equal(left, right), nil
	}

	c, err := order(op, pos, left, right)
	if err != nil {
		return false, err
	}

	switch op {
	case ast.OpLessThan:
		return c < 0, nil
	case ast.OpGreaterThan:
		return c > 0, nil
	case ast.OpLessEqual:
		return c <= 0, nil
	case ast.OpGreaterEqual:
		return c >= 0, nil
	default:
		return false, ferrors.NewAt(ferrors.KindSyntax, pos, "unknown comparison operator %q", op)
	}
}

// order returns -1, 0 or 1. Numbers compare numerically, dates by instant
// and text lexicographically. A blank operand takes the zero value of the
// other operand's kind.
func order(op ast.Operator, pos ast.Pos, left, right any) (int, error) {
	left, right = functions.Normalize(left), functions.Normalize(right)

	ln, lok := functions.NumericValue(left)
	rn, rok := functions.NumericValue(right)
	switch {
	case lok && rok:
		return compareFloat(ln, rn), nil
	case lok && right == nil:
		return compareFloat(ln, 0), nil
	case left == nil && rok:
		return compareFloat(0, rn), nil
	}

	_, lTime := left.(time.Time)
	_, rTime := right.(time.Time)
	if lTime || rTime {
		lt, lok := functions.ToTime(left)
		rt, rok := functions.ToTime(right)
		if lok && rok {
			return lt.Compare(rt), nil
		}
		return 0, mismatch(op, pos, left, right)
	}

	ls, lStr := left.(string)
	rs, rStr := right.(string)
	switch {
	case lStr && rStr:
		return strings.Compare(ls, rs), nil
	case lStr && right == nil:
		return strings.Compare(ls, ""), nil
	case left == nil && rStr:
		return strings.Compare("", rs), nil
	case left == nil && right == nil:
		return 0, nil
	}

	return 0, mismatch(op, pos, left, right)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func mismatch(op ast.Operator, pos ast.Pos, left, right any) error {
	return ferrors.NewAt(ferrors.KindType, pos, "cannot compare %s %s %s",
		functions.Describe(left), op, functions.Describe(right))
}

// evaluateNegation applies unary minus.
func evaluateNegation(pos ast.Pos, v any) (any, error) {
	n, err := toOperand(ast.OpNeg, pos, v)
	if err != nil {
		return nil, err
	}
	return finite(ast.OpNeg, pos, -n)
}
