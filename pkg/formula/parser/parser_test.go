package parser

import (
	"errors"
	"strings"
	"testing"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
)

func TestParser_Parse_Precedence(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"multiplication binds tighter", "1 + 2 * 3", "(1 + (2 * 3))"},
		{"left associative", "10 - 4 - 3", "((10 - 4) - 3)"},
		{"parentheses", "(1 + 2) * 3", "((1 + 2) * 3)"},
		{"relational over equality", "a < b = TRUE", "((a < b) = TRUE)"},
		{"AND over OR", "a OR b AND c", "(a OR (b AND c))"},
		{"symbolic logic", "a || b && c", "(a OR (b AND c))"},
		{"not equal alias", "a <> b", "(a != b)"},
		{"double equals", "a == 1", "(a = 1)"},
		{"unary minus", "-a * 2", "(-a * 2)"},
		{"unary plus ignored", "+a", "a"},
		{"not keyword", "NOT a AND b", "(NOT a AND b)"},
		{"bang", "!done", "NOT done"},
		{"leading equals", "=1+1", "(1 + 1)"},
		{"bracketed column", "[Deal Size] * 2", "([Deal Size] * 2)"},
		{"dotted identifier", "address.city", "address.city"},
		{"string literal", `"a" = 'b'`, `("a" = "b")`},
		{"null literal", "NULL", "NULL"},
		{"exponent number", "1.5e3 + .5", "(1500 + 0.5)"},
		{"infix AND before paren", "a AND (b OR c)", "(a AND (b OR c))"},
		{"infix OR before paren", "(a) OR (b)", "(a OR b)"},
		{"AND as function", "AND(a, b)", "AND(a, b)"},
		{"NOT as function", "NOT(x)", "NOT(x)"},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := p.Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.expr, err)
			}
			if got := node.String(); got != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParser_Parse_FunctionCalls(t *testing.T) {
	node, err := Parse(`IF(ISBLANK(phone), 50, 100)`)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	call, ok := node.(*ast.FunctionCall)
	if !ok {
		t.Fatalf("root = %T, want *ast.FunctionCall", node)
	}
	if call.Name != "IF" {
		t.Errorf("Name = %q, want IF", call.Name)
	}
	if len(call.Args) != 3 {
		t.Fatalf("len(Args) = %d, want 3", len(call.Args))
	}
	inner, ok := call.Args[0].(*ast.FunctionCall)
	if !ok || inner.Name != "ISBLANK" {
		t.Fatalf("Args[0] = %s, want ISBLANK call", call.Args[0])
	}
	if ref, ok := inner.Args[0].(*ast.ColumnRef); !ok || ref.Name != "phone" {
		t.Errorf("ISBLANK arg = %s, want column ref phone", inner.Args[0])
	}
	if lit, ok := call.Args[1].(*ast.Literal); !ok || lit.Value != 50.0 {
		t.Errorf("Args[1] = %s, want literal 50", call.Args[1])
	}
}

func TestParser_Parse_ZeroArgCall(t *testing.T) {
	node, err := Parse("LEAD_SCORE()")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	call, ok := node.(*ast.FunctionCall)
	if !ok {
		t.Fatalf("root = %T, want *ast.FunctionCall", node)
	}
	if call.Name != "LEAD_SCORE" || len(call.Args) != 0 {
		t.Errorf("got %s, want LEAD_SCORE()", call)
	}
}

func TestParser_Parse_Positions(t *testing.T) {
	node, err := Parse("a + bb")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	bin := node.(*ast.BinaryOp)
	if bin.Pos != 3 {
		t.Errorf("operator position = %d, want 3", bin.Pos)
	}
	if bin.Right.Position() != 5 {
		t.Errorf("right operand position = %d, want 5", bin.Right.Position())
	}
}

func TestParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantMsg string
	}{
		{"empty", "", "empty expression"},
		{"whitespace", "   ", "empty expression"},
		{"only equals", "=", "empty expression"},
		{"unmatched open", "(a + b", "unmatched '('"},
		{"unmatched close", "a + b)", "unmatched ')'"},
		{"unclosed call", "CONCAT(a, b", "unmatched '('"},
		{"unrecognized character", "a # b", "unrecognized character"},
		{"unterminated string", `"abc`, "unterminated string"},
		{"unterminated bracket", "[Deal Size", "unterminated column reference"},
		{"empty bracket", "[ ] + 1", "empty column reference"},
		{"dangling operator", "1 +", "unexpected end of expression"},
		{"trailing token", "1 2", "unexpected number"},
		{"missing comma", "SUM(1 2)", "expected ',' or ')'"},
		{"lowercase function", "concat(a)", "function names must be upper-case"},
		{"keyword as operand", "1 + AND", "unexpected keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.expr)
			}
			if !errors.Is(err, ferrors.ErrSyntax) {
				t.Errorf("Parse(%q) error = %v, want syntax kind", tt.expr, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Parse(%q) error = %q, want it to contain %q", tt.expr, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParser_Parse_LowercaseFunctionSuggestion(t *testing.T) {
	_, err := Parse("concat(a, b)")
	var fe *ferrors.FormulaError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FormulaError", err)
	}
	if fe.Suggestion != "write CONCAT(...)" {
		t.Errorf("Suggestion = %q, want %q", fe.Suggestion, "write CONCAT(...)")
	}
	if fe.Position != 1 {
		t.Errorf("Position = %d, want 1", fe.Position)
	}
}

func TestParser_Parse_ErrorPositionAfterLeadingEquals(t *testing.T) {
	_, err := Parse("= a # b")
	var fe *ferrors.FormulaError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FormulaError", err)
	}
	if fe.Position != 5 {
		t.Errorf("Position = %d, want 5", fe.Position)
	}
}

func TestParser_WithMaxDepth(t *testing.T) {
	p := NewParser().WithMaxDepth(3)

	if _, err := p.Parse("((1))"); err != nil {
		t.Errorf("depth 2 should parse: %v", err)
	}
	if _, err := p.Parse("ABS(ABS(ABS(1)))"); err != nil {
		t.Errorf("depth 3 should parse: %v", err)
	}

	_, err := p.Parse("((((1))))")
	if err == nil {
		t.Fatal("depth 4 should fail")
	}
	if !errors.Is(err, ferrors.ErrSyntax) || !strings.Contains(err.Error(), "nested deeper than 3") {
		t.Errorf("unexpected error: %v", err)
	}

	if _, err := p.Parse("- - - - 1"); err == nil {
		t.Error("four nested negations should exceed depth 3")
	}
}

func TestParser_DefaultMaxDepth(t *testing.T) {
	deep := strings.Repeat("(", DefaultMaxDepth+1) + "1" + strings.Repeat(")", DefaultMaxDepth+1)
	if _, err := Parse(deep); err == nil {
		t.Error("expression deeper than the default limit should fail")
	}

	ok := strings.Repeat("(", DefaultMaxDepth) + "1" + strings.Repeat(")", DefaultMaxDepth)
	if _, err := Parse(ok); err != nil {
		t.Errorf("expression at the default limit should parse: %v", err)
	}
}

func TestParser_WithMaxLength(t *testing.T) {
	p := NewParser().WithMaxLength(10)
	if _, err := p.Parse("a + b + c + d"); err == nil {
		t.Error("expression longer than max length should fail")
	}
}

func BenchmarkParse(b *testing.B) {
	expr := `IF(AND(ISEMAIL(email), LEN(company) > 0), ROUND(score * 1.5, 2), CONCAT(firstName, " ", lastName))`
	p := NewParser()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Parse(expr); err != nil {
			b.Fatal(err)
		}
	}
}
