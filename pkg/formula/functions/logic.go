package functions

import (
	"tabula-hq/formula/pkg/schema"
)

// Lazy functions receive unevaluated arguments from the evaluator. Their
// Execute implementations are the eager fallback used when the arguments
// are already values.
var lazyFunctions = map[string]bool{
	"IF":      true,
	"IFERROR": true,
}

// IsLazy reports whether the evaluator must evaluate the arguments of the
// named function on demand instead of up front.
func IsLazy(name string) bool {
	return lazyFunctions[name]
}

func logicFunctions() []*Definition {
	return []*Definition{
		{
			Name:        "IF",
			Category:    CategoryLogic,
			MinArgs:     2,
			MaxArgs:     3,
			Description: "Returns then when cond is true, otherwise else; only the chosen branch is evaluated",
			Syntax:      "IF(cond, then, else)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				if Truthy(args[0]) {
					return args[1], nil
				}
				if len(args) > 2 {
					return args[2], nil
				}
				return nil, nil
			},
		},
		{
			Name:        "IFERROR",
			Category:    CategoryLogic,
			MinArgs:     2,
			MaxArgs:     2,
			Description: "Returns value, or fallback when evaluating value fails",
			Syntax:      "IFERROR(value, fallback)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return args[0], nil
			},
		},
		{
			Name:        "ISBLANK",
			Category:    CategoryLogic,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "True when the value is blank or whitespace-only text",
			Syntax:      "ISBLANK(value)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return IsBlank(args[0]), nil
			},
		},
		{
			Name:        "AND",
			Category:    CategoryLogic,
			MinArgs:     1,
			MaxArgs:     Variadic,
			Description: "True when every argument is true",
			Syntax:      "AND(cond1, cond2, ...)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				for _, arg := range args {
					if !Truthy(arg) {
						return false, nil
					}
				}
				return true, nil
			},
		},
		{
			Name:        "OR",
			Category:    CategoryLogic,
			MinArgs:     1,
			MaxArgs:     Variadic,
			Description: "True when any argument is true",
			Syntax:      "OR(cond1, cond2, ...)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				for _, arg := range args {
					if Truthy(arg) {
						return true, nil
					}
				}
				return false, nil
			},
		},
		{
			Name:        "NOT",
			Category:    CategoryLogic,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Negates a condition",
			Syntax:      "NOT(cond)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return !Truthy(args[0]), nil
			},
		},
	}
}
