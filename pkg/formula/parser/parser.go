package parser

import (
	"strings"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
)

// DefaultMaxDepth is the default maximum nesting depth of an expression.
// Deeper expressions are rejected with a syntax error, which bounds the
// recursion of both the parser and the evaluator.
const DefaultMaxDepth = 64

// DefaultMaxLength is the default maximum expression length in characters.
const DefaultMaxLength = 8192

// Parser parses formula expressions into ASTs.
// A Parser holds only configuration and can be shared between goroutines.
type Parser struct {
	maxDepth  int // Maximum nesting depth (default: 64)
	maxLength int // Maximum expression length (default: 8192)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxDepth:  DefaultMaxDepth,
		maxLength: DefaultMaxLength,
	}
}

// WithMaxDepth sets the maximum nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// WithMaxLength sets the maximum expression length.
func (p *Parser) WithMaxLength(length int) *Parser {
	p.maxLength = length
	return p
}

// MaxDepth returns the configured maximum nesting depth.
func (p *Parser) MaxDepth() int {
	return p.maxDepth
}

// Parse parses an expression and returns the root node of its AST.
// A leading "=" (spreadsheet style) is ignored.
func (p *Parser) Parse(expression string) (ast.Node, error) {
	trimmed := strings.TrimSpace(expression)
	offset := strings.Index(expression, trimmed)
	if strings.HasPrefix(trimmed, "=") {
		trimmed = trimmed[1:]
		offset++
	}

	if strings.TrimSpace(trimmed) == "" {
		return nil, ferrors.New(ferrors.KindSyntax, "empty expression")
	}
	if p.maxLength > 0 && len(expression) > p.maxLength {
		return nil, ferrors.New(ferrors.KindSyntax, "expression length %d exceeds maximum %d", len(expression), p.maxLength)
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, shiftPosition(err, offset)
	}

	s := &state{tokens: tokens, maxDepth: p.maxDepth}
	node, err := s.parseExpression()
	if err != nil {
		return nil, shiftPosition(err, offset)
	}

	if tok := s.peek(); tok.typ != tokenEOF {
		var perr error
		if tok.typ == tokenRParen {
			perr = ferrors.NewAt(ferrors.KindSyntax, tok.pos, "unmatched ')'")
		} else {
			perr = ferrors.NewAt(ferrors.KindSyntax, tok.pos, "unexpected %s %q", tok.typ, tok.text)
		}
		return nil, shiftPosition(perr, offset)
	}

	return node, nil
}

// shiftPosition adjusts token positions for characters stripped before tokenizing.
func shiftPosition(err error, offset int) error {
	if fe, ok := err.(*ferrors.FormulaError); ok && fe.Position.IsValid() && offset > 0 {
		c := *fe
		c.Position += ast.Pos(offset)
		return &c
	}
	return err
}

// state is the token cursor of one parse.
type state struct {
	tokens   []token
	pos      int
	depth    int
	maxDepth int
}

func (s *state) peek() token {
	return s.tokens[s.pos]
}

func (s *state) next() token {
	tok := s.tokens[s.pos]
	if tok.typ != tokenEOF {
		s.pos++
	}
	return tok
}

// enter tracks nesting depth; every recursive production calls it.
func (s *state) enter(pos ast.Pos) error {
	s.depth++
	if s.maxDepth > 0 && s.depth > s.maxDepth {
		return ferrors.NewAt(ferrors.KindSyntax, pos, "expression nested deeper than %d levels", s.maxDepth)
	}
	return nil
}

func (s *state) leave() {
	s.depth--
}

func (s *state) parseExpression() (ast.Node, error) {
	return s.parseOr()
}

// binaryLevel parses one left-associative precedence level.
func (s *state) binaryLevel(operand func() (ast.Node, error), match func(token) (ast.Operator, bool)) (ast.Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok := s.peek()
		op, ok := match(tok)
		if !ok {
			return left, nil
		}
		s.next()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right, Pos: tok.pos}
	}
}

func (s *state) parseOr() (ast.Node, error) {
	return s.binaryLevel(s.parseAnd, func(t token) (ast.Operator, bool) {
		if (isWordOperator(t) && t.text == "OR") || (t.typ == tokenOperator && t.text == "||") {
			return ast.OpOr, true
		}
		return "", false
	})
}

func (s *state) parseAnd() (ast.Node, error) {
	return s.binaryLevel(s.parseEquality, func(t token) (ast.Operator, bool) {
		if (isWordOperator(t) && t.text == "AND") || (t.typ == tokenOperator && t.text == "&&") {
			return ast.OpAnd, true
		}
		return "", false
	})
}

// isWordOperator reports whether t can act as the infix AND/OR operator. After
// an operand, "a AND (b OR c)" tokenizes AND as a function name; in infix
// position it can only be the operator.
func isWordOperator(t token) bool {
	return t.typ == tokenKeyword || t.typ == tokenFunction
}

func (s *state) parseEquality() (ast.Node, error) {
	return s.binaryLevel(s.parseRelational, func(t token) (ast.Operator, bool) {
		if t.typ != tokenOperator {
			return "", false
		}
		switch t.text {
		case "=", "==":
			return ast.OpEqual, true
		case "!=", "<>":
			return ast.OpNotEqual, true
		}
		return "", false
	})
}

func (s *state) parseRelational() (ast.Node, error) {
	return s.binaryLevel(s.parseAdditive, func(t token) (ast.Operator, bool) {
		if t.typ != tokenOperator {
			return "", false
		}
		switch t.text {
		case "<":
			return ast.OpLessThan, true
		case ">":
			return ast.OpGreaterThan, true
		case "<=":
			return ast.OpLessEqual, true
		case ">=":
			return ast.OpGreaterEqual, true
		}
		return "", false
	})
}

func (s *state) parseAdditive() (ast.Node, error) {
	return s.binaryLevel(s.parseMultiplicative, func(t token) (ast.Operator, bool) {
		if t.typ == tokenOperator && (t.text == "+" || t.text == "-") {
			return ast.Operator(t.text), true
		}
		return "", false
	})
}

func (s *state) parseMultiplicative() (ast.Node, error) {
	return s.binaryLevel(s.parseUnary, func(t token) (ast.Operator, bool) {
		if t.typ == tokenOperator && (t.text == "*" || t.text == "/") {
			return ast.Operator(t.text), true
		}
		return "", false
	})
}

func (s *state) parseUnary() (ast.Node, error) {
	tok := s.peek()

	var op ast.Operator
	switch {
	case tok.typ == tokenOperator && tok.text == "-":
		op = ast.OpNeg
	case tok.typ == tokenOperator && tok.text == "+":
		s.next()
		return s.parseUnary()
	case tok.typ == tokenOperator && tok.text == "!":
		op = ast.OpNot
	case tok.typ == tokenKeyword && tok.text == "NOT":
		op = ast.OpNot
	default:
		return s.parsePrimary()
	}

	s.next()
	if err := s.enter(tok.pos); err != nil {
		return nil, err
	}
	defer s.leave()

	operand, err := s.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryOp{Op: op, Operand: operand, Pos: tok.pos}, nil
}

func (s *state) parsePrimary() (ast.Node, error) {
	tok := s.next()

	switch tok.typ {
	case tokenNumber:
		return &ast.Literal{Value: tok.num, Pos: tok.pos}, nil

	case tokenString:
		return &ast.Literal{Value: tok.text, Pos: tok.pos}, nil

	case tokenKeyword:
		switch tok.text {
		case "TRUE":
			return &ast.Literal{Value: true, Pos: tok.pos}, nil
		case "FALSE":
			return &ast.Literal{Value: false, Pos: tok.pos}, nil
		case "NULL":
			return &ast.Literal{Value: nil, Pos: tok.pos}, nil
		}
		return nil, ferrors.NewAt(ferrors.KindSyntax, tok.pos, "unexpected keyword %q", tok.text)

	case tokenFunction:
		return s.parseCall(tok)

	case tokenIdent:
		if next := s.peek(); next.typ == tokenLParen {
			return nil, &ferrors.FormulaError{
				Kind:       ferrors.KindSyntax,
				Message:    "function names must be upper-case",
				Position:   tok.pos,
				Suggestion: "write " + strings.ToUpper(tok.text) + "(...)",
			}
		}
		return &ast.ColumnRef{Name: tok.text, Pos: tok.pos}, nil

	case tokenLParen:
		if err := s.enter(tok.pos); err != nil {
			return nil, err
		}
		defer s.leave()

		inner, err := s.parseExpression()
		if err != nil {
			return nil, err
		}
		if closing := s.next(); closing.typ != tokenRParen {
			return nil, ferrors.NewAt(ferrors.KindSyntax, tok.pos, "unmatched '('")
		}
		return inner, nil

	case tokenRParen:
		return nil, ferrors.NewAt(ferrors.KindSyntax, tok.pos, "unmatched ')'")

	case tokenEOF:
		return nil, ferrors.NewAt(ferrors.KindSyntax, tok.pos, "unexpected end of expression")

	default:
		return nil, ferrors.NewAt(ferrors.KindSyntax, tok.pos, "unexpected %s %q", tok.typ, tok.text)
	}
}

// parseCall parses NAME(arg, ...) after the name token was consumed.
func (s *state) parseCall(name token) (ast.Node, error) {
	if lp := s.next(); lp.typ != tokenLParen {
		return nil, ferrors.NewAt(ferrors.KindSyntax, lp.pos, "expected '(' after %s", name.text)
	}
	if err := s.enter(name.pos); err != nil {
		return nil, err
	}
	defer s.leave()

	call := &ast.FunctionCall{Name: strings.ToUpper(name.text), Pos: name.pos}

	if s.peek().typ == tokenRParen {
		s.next()
		return call, nil
	}

	for {
		arg, err := s.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		tok := s.next()
		switch tok.typ {
		case tokenComma:
			continue
		case tokenRParen:
			return call, nil
		case tokenEOF:
			return nil, ferrors.NewAt(ferrors.KindSyntax, name.pos, "unmatched '(' in call to %s", call.Name)
		default:
			return nil, ferrors.NewAt(ferrors.KindSyntax, tok.pos, "expected ',' or ')' in call to %s, got %s %q", call.Name, tok.typ, tok.text)
		}
	}
}

// Parse parses an expression with the default parser configuration.
func Parse(expression string) (ast.Node, error) {
	return NewParser().Parse(expression)
}
