package formula

import (
	"errors"
	"reflect"
	"testing"

	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/formula/functions"
)

func TestParseAndValidate(t *testing.T) {
	node, err := ParseAndValidate(`ROUND(AVERAGE(q1, q2, q3), 2)`, nil)
	if err != nil {
		t.Fatalf("ParseAndValidate() failed: %v", err)
	}
	if node.String() != "ROUND(AVERAGE(q1, q2, q3), 2)" {
		t.Errorf("node = %s", node)
	}
}

func TestParseAndValidate_Errors(t *testing.T) {
	_, err := ParseAndValidate(`IF(a, VLOOKUP(b), ROUND(1, 2, 3))`, nil)
	if err == nil {
		t.Fatal("ParseAndValidate() should fail")
	}

	var el *ferrors.ErrorList
	if !errors.As(err, &el) {
		t.Fatalf("error = %T, want *ErrorList", err)
	}
	if el.Count() != 2 {
		t.Fatalf("Count() = %d, want 2: %v", el.Count(), err)
	}
	if !errors.Is(err, ferrors.ErrFunctionNotFound) {
		t.Error("missing function_not_found error")
	}
	if !errors.Is(err, ferrors.ErrSyntax) {
		t.Error("missing arity error")
	}
	for _, fe := range el.Errors {
		if !fe.Position.IsValid() {
			t.Errorf("error %v has no position", fe)
		}
	}
}

func TestParseAndValidate_SyntaxError(t *testing.T) {
	if _, err := ParseAndValidate("SUM(1,", nil); !errors.Is(err, ferrors.ErrSyntax) {
		t.Errorf("error = %v, want syntax", err)
	}
}

func TestDependencies(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{`CONCAT(firstName, " ", lastName)`, []string{"firstName", "lastName"}},
		{`IF(ISBLANK(phone), email, phone)`, []string{"phone", "email"}},
		{`[Deal Size] * rate + [Deal Size]`, []string{"Deal Size", "rate"}},
		{`NOW()`, nil},
	}
	for _, tt := range tests {
		got, err := Dependencies(tt.expr)
		if err != nil {
			t.Fatalf("Dependencies(%q) failed: %v", tt.expr, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Dependencies(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestUsesCategory(t *testing.T) {
	reg := functions.NewDefaultRegistry()
	node, _ := Parse(`IF(COUNTIF("email", email) > 1, "dup", "ok")`)
	if !UsesCategory(node, reg, functions.CategoryLookup) {
		t.Error("expected lookup category")
	}
	if UsesCategory(node, reg, functions.CategoryDate) {
		t.Error("unexpected date category")
	}
}

func BenchmarkParseAndValidate(b *testing.B) {
	reg := functions.NewDefaultRegistry()
	for i := 0; i < b.N; i++ {
		if _, err := ParseAndValidate(`IF(AND(ISEMAIL(email), LEN(company) > 0), LEAD_SCORE(), 0)`, reg); err != nil {
			b.Fatal(err)
		}
	}
}
