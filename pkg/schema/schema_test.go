package schema

import "testing"

func TestRecord_Lookup(t *testing.T) {
	rec := &Record{
		ID:     "r1",
		Fields: map[string]any{"email": "a@example.com", "phone": nil},
		Custom: map[string]any{"score": 42.0, "email": "shadowed@example.com"},
	}

	tests := []struct {
		name   string
		key    string
		want   any
		wantOK bool
	}{
		{name: "named field", key: "email", want: "a@example.com", wantOK: true},
		{name: "nil named field is present", key: "phone", want: nil, wantOK: true},
		{name: "extension field", key: "score", want: 42.0, wantOK: true},
		{name: "missing", key: "company", want: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := rec.Lookup(tt.key)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestRecord_LookupFold(t *testing.T) {
	rec := &Record{Fields: map[string]any{"JobTitle": "CEO"}}
	v, ok := rec.LookupFold("jobtitle")
	if !ok || v != "CEO" {
		t.Errorf("LookupFold() = %v, %v; want CEO, true", v, ok)
	}

	var nilRec *Record
	if _, ok := nilRec.LookupFold("x"); ok {
		t.Error("LookupFold on nil record should report absent")
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	rec := &Record{ID: "r1", Fields: map[string]any{"a": 1.0}}
	clone := rec.Clone()
	clone.Fields["a"] = 2.0
	clone.Set("b", 3.0)

	if rec.Fields["a"] != 1.0 {
		t.Errorf("original mutated through clone: %v", rec.Fields["a"])
	}
	if rec.Custom != nil {
		t.Errorf("original extension map should stay nil, got %v", rec.Custom)
	}
}

func TestColumn_Matches(t *testing.T) {
	col := Column{ID: "col_1", Key: "fullName", Name: "Full Name"}
	for _, ref := range []string{"col_1", "fullName", "Full Name"} {
		if !col.Matches(ref) {
			t.Errorf("Matches(%q) = false, want true", ref)
		}
	}
	if col.Matches("full name") {
		t.Error("Matches should be case-sensitive")
	}

	noKey := Column{ID: "col_2"}
	if noKey.FieldKey() != "col_2" {
		t.Errorf("FieldKey() = %q, want id fallback", noKey.FieldKey())
	}
}

func TestColumn_HasFormula(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		want bool
	}{
		{name: "no formula", col: Column{ID: "a"}, want: false},
		{name: "blank expression", col: Column{ID: "a", Formula: &Formula{Expression: "  "}}, want: false},
		{name: "expression", col: Column{ID: "a", Formula: &Formula{Expression: "b + 1"}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.col.HasFormula(); got != tt.want {
				t.Errorf("HasFormula() = %v, want %v", got, tt.want)
			}
		})
	}
}
