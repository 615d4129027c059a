package parser

import (
	"strconv"
	"strings"
	"unicode"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
)

// tokenType identifies the kind of a lexical token.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenNumber
	tokenString
	tokenIdent    // column reference
	tokenFunction // NAME immediately followed by "("
	tokenKeyword  // AND, OR, NOT, TRUE, FALSE, NULL
	tokenOperator
	tokenLParen
	tokenRParen
	tokenComma
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "end of expression"
	case tokenNumber:
		return "number"
	case tokenString:
		return "string"
	case tokenIdent:
		return "column reference"
	case tokenFunction:
		return "function name"
	case tokenKeyword:
		return "keyword"
	case tokenOperator:
		return "operator"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenComma:
		return "','"
	default:
		return "token"
	}
}

// token is a lexical token with its 1-based position.
type token struct {
	typ  tokenType
	text string
	num  float64
	pos  ast.Pos
}

var keywords = map[string]bool{
	"AND":   true,
	"OR":    true,
	"NOT":   true,
	"TRUE":  true,
	"FALSE": true,
	"NULL":  true,
}

// tokenize splits the expression into tokens. It fails with a syntax error on
// the first character that cannot start a token.
func tokenize(input string) ([]token, error) {
	runes := []rune(input)
	var tokens []token
	i := 0

	for i < len(runes) {
		r := runes[i]
		pos := ast.Pos(i + 1)

		switch {
		case unicode.IsSpace(r):
			i++

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
				j := i + 1
				if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
					j++
				}
				if j < len(runes) && unicode.IsDigit(runes[j]) {
					i = j
					for i < len(runes) && unicode.IsDigit(runes[i]) {
						i++
					}
				}
			}
			text := string(runes[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, ferrors.NewAt(ferrors.KindSyntax, pos, "invalid number %q", text)
			}
			tokens = append(tokens, token{typ: tokenNumber, text: text, num: n, pos: pos})

		case r == '"' || r == '\'':
			s, next, err := scanString(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{typ: tokenString, text: s, pos: pos})
			i = next

		case r == '[':
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end >= len(runes) {
				return nil, ferrors.NewAt(ferrors.KindSyntax, pos, "unterminated column reference")
			}
			name := strings.TrimSpace(string(runes[i+1 : end]))
			if name == "" {
				return nil, ferrors.NewAt(ferrors.KindSyntax, pos, "empty column reference")
			}
			tokens = append(tokens, token{typ: tokenIdent, text: name, pos: pos})
			i = end + 1

		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(runes) && isIdentPart(runes[i]) {
				i++
			}
			text := string(runes[start:i])
			tokens = append(tokens, classifyWord(text, runes, i, pos))

		case r == '(':
			tokens = append(tokens, token{typ: tokenLParen, text: "(", pos: pos})
			i++
		case r == ')':
			tokens = append(tokens, token{typ: tokenRParen, text: ")", pos: pos})
			i++
		case r == ',':
			tokens = append(tokens, token{typ: tokenComma, text: ",", pos: pos})
			i++

		default:
			op, width := scanOperator(runes, i)
			if width == 0 {
				return nil, ferrors.NewAt(ferrors.KindSyntax, pos, "unrecognized character %q", string(r))
			}
			tokens = append(tokens, token{typ: tokenOperator, text: op, pos: pos})
			i += width
		}
	}

	tokens = append(tokens, token{typ: tokenEOF, pos: ast.Pos(len(runes) + 1)})
	return tokens, nil
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// classifyWord decides whether an identifier-shaped word is a function name,
// a keyword or a column reference. Only a run of upper-case letters, digits
// and underscores directly followed by "(" is a function name.
func classifyWord(text string, runes []rune, next int, pos ast.Pos) token {
	j := next
	for j < len(runes) && unicode.IsSpace(runes[j]) {
		j++
	}
	followedByParen := j < len(runes) && runes[j] == '('

	if followedByParen && isFunctionName(text) {
		return token{typ: tokenFunction, text: text, pos: pos}
	}
	if keywords[text] {
		return token{typ: tokenKeyword, text: text, pos: pos}
	}
	return token{typ: tokenIdent, text: text, pos: pos}
}

func isFunctionName(text string) bool {
	for _, r := range text {
		if !(r == '_' || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// scanString reads a quoted string starting at runes[start]. Backslash
// escapes \n, \t, \\ and the quote character are supported.
func scanString(runes []rune, start int) (string, int, error) {
	quote := runes[start]
	var sb strings.Builder
	i := start + 1
	for i < len(runes) {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			switch runes[i+1] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(runes[i+1])
			}
			i += 2
			continue
		}
		if r == quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteRune(r)
		i++
	}
	return "", 0, ferrors.NewAt(ferrors.KindSyntax, ast.Pos(start+1), "unterminated string literal")
}

// scanOperator returns the operator at runes[i] and its width, or width 0.
func scanOperator(runes []rune, i int) (string, int) {
	two := ""
	if i+1 < len(runes) {
		two = string(runes[i : i+2])
	}
	switch two {
	case "<=", ">=", "!=", "<>", "==", "&&", "||":
		return two, 2
	}
	switch runes[i] {
	case '+', '-', '*', '/', '=', '<', '>', '!':
		return string(runes[i]), 1
	}
	return "", 0
}
