package ast

import (
	"strconv"
	"strings"
)

// NodeType identifies the variant of an AST node.
type NodeType string

const (
	NodeLiteral      NodeType = "literal"
	NodeColumnRef    NodeType = "column_ref"
	NodeFunctionCall NodeType = "function_call"
	NodeBinaryOp     NodeType = "binary_op"
	NodeUnaryOp      NodeType = "unary_op"
)

// Operator is a binary or unary operator in a formula.
type Operator string

const (
	OpAdd          Operator = "+"
	OpSub          Operator = "-"
	OpMul          Operator = "*"
	OpDiv          Operator = "/"
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLessThan     Operator = "<"
	OpGreaterThan  Operator = ">"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpAnd          Operator = "AND"
	OpOr           Operator = "OR"
	OpNot          Operator = "NOT"
	OpNeg          Operator = "-"
)

// Node is implemented by every AST node. The set of implementations is closed:
// Literal, ColumnRef, FunctionCall, BinaryOp and UnaryOp.
type Node interface {
	Type() NodeType
	Position() Pos
	String() string
	node()
}

// Literal is a constant value: float64, string, bool or nil.
type Literal struct {
	Value any
	Pos   Pos
}

// ColumnRef references a column by id, key or name.
type ColumnRef struct {
	Name string
	Pos  Pos
}

// FunctionCall invokes a registered function. Name is upper-cased by the parser.
type FunctionCall struct {
	Name string
	Args []Node
	Pos  Pos
}

// BinaryOp applies Op to Left and Right.
type BinaryOp struct {
	Op    Operator
	Left  Node
	Right Node
	Pos   Pos
}

// UnaryOp applies Op (NOT or negation) to Operand.
type UnaryOp struct {
	Op      Operator
	Operand Node
	Pos     Pos
}

func (*Literal) Type() NodeType      { return NodeLiteral }
func (*ColumnRef) Type() NodeType    { return NodeColumnRef }
func (*FunctionCall) Type() NodeType { return NodeFunctionCall }
func (*BinaryOp) Type() NodeType     { return NodeBinaryOp }
func (*UnaryOp) Type() NodeType      { return NodeUnaryOp }

func (n *Literal) Position() Pos      { return n.Pos }
func (n *ColumnRef) Position() Pos    { return n.Pos }
func (n *FunctionCall) Position() Pos { return n.Pos }
func (n *BinaryOp) Position() Pos     { return n.Pos }
func (n *UnaryOp) Position() Pos      { return n.Pos }

func (*Literal) node()      {}
func (*ColumnRef) node()    {}
func (*FunctionCall) node() {}
func (*BinaryOp) node()     {}
func (*UnaryOp) node()      {}

// String renders the literal in formula syntax.
func (n *Literal) String() string {
	switch v := n.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return strconv.Quote(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "?"
	}
}

// String renders the reference, bracketing names that are not plain identifiers.
func (n *ColumnRef) String() string {
	if isPlainIdentifier(n.Name) {
		return n.Name
	}
	return "[" + n.Name + "]"
}

func (n *FunctionCall) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}

func (n *BinaryOp) String() string {
	return "(" + n.Left.String() + " " + string(n.Op) + " " + n.Right.String() + ")"
}

func (n *UnaryOp) String() string {
	if n.Op == OpNot {
		return "NOT " + n.Operand.String()
	}
	return string(n.Op) + n.Operand.String()
}

func isPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && ((r >= '0' && r <= '9') || r == '.'):
		default:
			return false
		}
	}
	return true
}
