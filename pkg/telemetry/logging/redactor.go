package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks personal data that records carry: email addresses, phone
// numbers and national identifiers.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternEmail = "email"
	PatternPhone = "phone"
	PatternSSN   = "ssn"
)

// NewRedactor creates a Redactor with the built-in patterns. Patterns are
// applied in order; SSN runs before phone so a 9-digit identifier is not
// half-masked as a phone number.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{
				name:        PatternEmail,
				regex:       regexp.MustCompile(`([a-zA-Z0-9._%+-])[a-zA-Z0-9._%+-]*@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
				replacement: "$1***@$2",
			},
			{
				name:        PatternSSN,
				regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
				replacement: "***-**-****",
			},
			{
				name:        PatternPhone,
				regex:       regexp.MustCompile(`\+?\(?\d[\d\s().-]{8,}\d`),
				replacement: "***-***-****",
			},
		},
	}
}

// RedactString masks every match of the built-in patterns in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a with personal data masked. Attributes whose key
// names a sensitive field are masked whatever their value; groups are
// redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)

	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))

	case slog.KindAny:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		if s, ok := v.Any().(string); ok {
			return slog.String(a.Key, r.RedactString(s))
		}
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey reports whether a key names a personal-data field.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"email", "phone", "mobile", "ssn", "password", "secret", "token"} {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// maskValue keeps the first character of short-lived debugging hints.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if at := strings.IndexByte(v, '@'); at > 0 {
		return RedactEmail(v)
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:1] + "***"
}

// RedactEmail redacts an email address partially (shows first char and domain).
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	username := parts[0]
	domain := parts[1]

	if len(username) == 0 {
		return "***@" + domain
	}

	return string(username[0]) + "***@" + domain
}
