package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name    string
		in      string
		want    string
		notWant string
	}{
		{name: "empty", in: "", want: ""},
		{name: "no pii", in: "score 85 for Acme", want: "score 85 for Acme"},
		{name: "email", in: "contact john@example.com today", want: "contact j***@example.com today"},
		{name: "ssn", in: "ssn 123-45-6789", want: "ssn ***-**-****"},
		{name: "phone dashed", in: "call 555-123-4567", notWant: "555-123-4567"},
		{name: "phone international", in: "+44 20 7946 0958", notWant: "7946"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactString(tt.in)
			if tt.want != "" || tt.in == "" {
				if got != tt.want {
					t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
				}
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("RedactString(%q) = %q, still contains %q", tt.in, got, tt.notWant)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{name: "sensitive key short", attr: slog.String("token", "abc"), want: "***"},
		{name: "sensitive key long", attr: slog.String("password", "hunter22"), want: "h***"},
		{name: "sensitive key email", attr: slog.String("workEmail", "amy@corp.io"), want: "a***@corp.io"},
		{name: "plain key", attr: slog.String("company", "Acme"), want: "Acme"},
		{name: "plain key with email", attr: slog.String("note", "by bob@x.org"), want: "by b***@x.org"},
		{name: "sensitive any", attr: slog.Any("secret", []int{1, 2}), want: "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Key != tt.attr.Key {
				t.Errorf("Key = %q, want %q", got.Key, tt.attr.Key)
			}
			if got.Value.String() != tt.want {
				t.Errorf("Value = %q, want %q", got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr_NonString(t *testing.T) {
	r := NewRedactor()
	got := r.RedactAttr(slog.Int("score", 42))
	if got.Value.Kind() != slog.KindInt64 || got.Value.Int64() != 42 {
		t.Errorf("numeric attr changed: %v", got)
	}
}

func TestRedactor_RedactAttr_Group(t *testing.T) {
	r := NewRedactor()
	got := r.RedactAttr(slog.Group("record", slog.String("email", "zed@a.io"), slog.Int("age", 30)))

	group := got.Value.Group()
	if len(group) != 2 {
		t.Fatalf("group has %d attrs, want 2", len(group))
	}
	if group[0].Value.String() != "z***@a.io" {
		t.Errorf("nested email = %q", group[0].Value.String())
	}
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"john@example.com", "j***@example.com"},
		{"@example.com", "***@example.com"},
		{"not-an-email", "not-an-email"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func BenchmarkRedactString(b *testing.B) {
	r := NewRedactor()
	msg := "lead john.doe@example.com phone 555-123-4567 score 85"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.RedactString(msg)
	}
}
