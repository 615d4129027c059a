package functions

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"tabula-hq/formula/pkg/schema"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validationFunctions() []*Definition {
	return []*Definition{
		{
			Name:        "ISEMAIL",
			Category:    CategoryValidation,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "True when the value looks like an email address",
			Syntax:      "ISEMAIL(value)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return IsEmail(args[0]), nil
			},
		},
		{
			Name:        "ISPHONE",
			Category:    CategoryValidation,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "True when the value has 10 to 15 digits",
			Syntax:      "ISPHONE(value)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return IsPhone(args[0]), nil
			},
		},
		{
			Name:        "ISURL",
			Category:    CategoryValidation,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "True when the value is an absolute http or https URL",
			Syntax:      "ISURL(value)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return isURL(ToText(args[0])), nil
			},
		},
		{
			Name:        "ISNUMBER",
			Category:    CategoryValidation,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "True when the value is a number or numeric text",
			Syntax:      "ISNUMBER(value)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				_, ok := NumericValue(args[0])
				return ok, nil
			},
		},
	}
}

// IsEmail reports whether v is text shaped like local@domain.tld.
func IsEmail(v any) bool {
	return emailPattern.MatchString(strings.TrimSpace(ToText(v)))
}

// IsPhone reports whether v contains between 10 and 15 digits once every
// other character is removed.
func IsPhone(v any) bool {
	digits := 0
	for _, r := range ToText(v) {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 10 && digits <= 15
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
