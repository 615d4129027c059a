package functions

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"tabula-hq/formula/pkg/schema"
)

func textFunctions() []*Definition {
	return []*Definition{
		{
			Name:        "CONCAT",
			Category:    CategoryText,
			MinArgs:     1,
			MaxArgs:     Variadic,
			Description: "Joins values into one text; blank values contribute nothing",
			Syntax:      "CONCAT(value1, value2, ...)",
			Execute:     concat,
		},
		{
			Name:        "UPPER",
			Category:    CategoryText,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Converts text to upper case",
			Syntax:      "UPPER(text)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return strings.ToUpper(ToText(args[0])), nil
			},
		},
		{
			Name:        "LOWER",
			Category:    CategoryText,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Converts text to lower case",
			Syntax:      "LOWER(text)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return strings.ToLower(ToText(args[0])), nil
			},
		},
		{
			Name:        "TRIM",
			Category:    CategoryText,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Removes leading and trailing whitespace",
			Syntax:      "TRIM(text)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return strings.TrimSpace(ToText(args[0])), nil
			},
		},
		{
			Name:        "LEFT",
			Category:    CategoryText,
			MinArgs:     1,
			MaxArgs:     2,
			Description: "Returns the first n characters of text",
			Syntax:      "LEFT(text, n)",
			Execute:     left,
		},
		{
			Name:        "RIGHT",
			Category:    CategoryText,
			MinArgs:     1,
			MaxArgs:     2,
			Description: "Returns the last n characters of text",
			Syntax:      "RIGHT(text, n)",
			Execute:     right,
		},
		{
			Name:        "MID",
			Category:    CategoryText,
			MinArgs:     3,
			MaxArgs:     3,
			Description: "Returns n characters of text starting at a 1-based position",
			Syntax:      "MID(text, start, n)",
			Execute:     mid,
		},
		{
			Name:        "FIND",
			Category:    CategoryText,
			MinArgs:     2,
			MaxArgs:     2,
			Description: "Returns the 1-based position of needle in haystack, or 0 if absent",
			Syntax:      "FIND(needle, haystack)",
			Execute:     find,
		},
		{
			Name:        "LEN",
			Category:    CategoryText,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Returns the number of characters in text",
			Syntax:      "LEN(text)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return float64(utf8.RuneCountInString(ToText(args[0]))), nil
			},
		},
		{
			Name:        "SUBSTITUTE",
			Category:    CategoryText,
			MinArgs:     3,
			MaxArgs:     3,
			Description: "Replaces every occurrence of old with new",
			Syntax:      "SUBSTITUTE(text, old, new)",
			Execute:     substitute,
		},
		{
			Name:        "PROPER",
			Category:    CategoryText,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Capitalizes the first letter of each word",
			Syntax:      "PROPER(text)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return proper(ToText(args[0])), nil
			},
		},
	}
}

func concat(args []any, _ *schema.Context) (any, error) {
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(ToText(arg))
	}
	return sb.String(), nil
}

func left(args []any, _ *schema.Context) (any, error) {
	runes := []rune(ToText(args[0]))
	n, err := intArg("LEFT", args, 1, 1)
	if err != nil {
		return nil, err
	}
	n = clamp(n, 0, len(runes))
	return string(runes[:n]), nil
}

func right(args []any, _ *schema.Context) (any, error) {
	runes := []rune(ToText(args[0]))
	n, err := intArg("RIGHT", args, 1, 1)
	if err != nil {
		return nil, err
	}
	n = clamp(n, 0, len(runes))
	return string(runes[len(runes)-n:]), nil
}

func mid(args []any, _ *schema.Context) (any, error) {
	runes := []rune(ToText(args[0]))
	start, err := intArg("MID", args, 1, 1)
	if err != nil {
		return nil, err
	}
	n, err := intArg("MID", args, 2, 0)
	if err != nil {
		return nil, err
	}
	from := clamp(start-1, 0, len(runes))
	to := clamp(from+max(n, 0), from, len(runes))
	return string(runes[from:to]), nil
}

func find(args []any, _ *schema.Context) (any, error) {
	needle := ToText(args[0])
	haystack := ToText(args[1])
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return 0.0, nil
	}
	return float64(utf8.RuneCountInString(haystack[:idx]) + 1), nil
}

func substitute(args []any, _ *schema.Context) (any, error) {
	text := ToText(args[0])
	old := ToText(args[1])
	if old == "" {
		return text, nil
	}
	return strings.ReplaceAll(text, old, ToText(args[2])), nil
}

func proper(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if startOfWord {
				sb.WriteRune(unicode.ToUpper(r))
			} else {
				sb.WriteRune(unicode.ToLower(r))
			}
			startOfWord = false
			continue
		}
		sb.WriteRune(r)
		startOfWord = !unicode.IsDigit(r)
	}
	return sb.String()
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
