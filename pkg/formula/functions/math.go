package functions

import (
	"math"

	"tabula-hq/formula/pkg/schema"
)

func mathFunctions() []*Definition {
	return []*Definition{
		{
			Name:        "SUM",
			Category:    CategoryMath,
			MinArgs:     0,
			MaxArgs:     Variadic,
			Description: "Adds numbers; non-numeric values count as 0",
			Syntax:      "SUM(number1, number2, ...)",
			Execute:     sum,
		},
		{
			Name:        "AVERAGE",
			Category:    CategoryMath,
			MinArgs:     0,
			MaxArgs:     Variadic,
			Description: "Averages the numeric arguments, ignoring all others",
			Syntax:      "AVERAGE(number1, number2, ...)",
			Execute:     average,
		},
		{
			Name:        "ROUND",
			Category:    CategoryMath,
			MinArgs:     1,
			MaxArgs:     2,
			Description: "Rounds half away from zero to the given number of decimals",
			Syntax:      "ROUND(number, decimals)",
			Execute:     round,
		},
		{
			Name:        "MIN",
			Category:    CategoryMath,
			MinArgs:     1,
			MaxArgs:     Variadic,
			Description: "Returns the smallest numeric argument, or 0 if there is none",
			Syntax:      "MIN(number1, number2, ...)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return extreme(args, func(a, b float64) bool { return a < b }), nil
			},
		},
		{
			Name:        "MAX",
			Category:    CategoryMath,
			MinArgs:     1,
			MaxArgs:     Variadic,
			Description: "Returns the largest numeric argument, or 0 if there is none",
			Syntax:      "MAX(number1, number2, ...)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				return extreme(args, func(a, b float64) bool { return a > b }), nil
			},
		},
		{
			Name:        "ABS",
			Category:    CategoryMath,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Returns the absolute value of a number",
			Syntax:      "ABS(number)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				n, err := numberArg("ABS", args, 0)
				if err != nil {
					return nil, err
				}
				return math.Abs(n), nil
			},
		},
		{
			Name:        "COUNT",
			Category:    CategoryMath,
			MinArgs:     0,
			MaxArgs:     Variadic,
			Description: "Counts the numeric arguments",
			Syntax:      "COUNT(value1, value2, ...)",
			Execute: func(args []any, _ *schema.Context) (any, error) {
				count := 0
				for _, arg := range args {
					if _, ok := NumericValue(arg); ok {
						count++
					}
				}
				return float64(count), nil
			},
		},
	}
}

func sum(args []any, _ *schema.Context) (any, error) {
	total := 0.0
	for _, arg := range args {
		if n, ok := ToNumber(arg); ok {
			total += n
		}
	}
	return total, nil
}

func average(args []any, _ *schema.Context) (any, error) {
	total, count := 0.0, 0
	for _, arg := range args {
		if n, ok := NumericValue(arg); ok {
			total += n
			count++
		}
	}
	if count == 0 {
		return 0.0, nil
	}
	return total / float64(count), nil
}

func round(args []any, _ *schema.Context) (any, error) {
	n, err := numberArg("ROUND", args, 0)
	if err != nil {
		return nil, err
	}
	decimals, err := intArg("ROUND", args, 1, 0)
	if err != nil {
		return nil, err
	}
	return roundHalfAway(n, decimals), nil
}

func roundHalfAway(n float64, decimals int) float64 {
	if decimals > 15 {
		return n
	}
	if decimals < -15 {
		return 0
	}
	if decimals < 0 {
		p := math.Pow(10, float64(-decimals))
		return math.Round(n/p) * p
	}
	p := math.Pow(10, float64(decimals))
	if math.IsInf(n*p, 0) {
		return n
	}
	return math.Round(n*p) / p
}

func extreme(args []any, better func(a, b float64) bool) float64 {
	found := false
	var best float64
	for _, arg := range args {
		n, ok := NumericValue(arg)
		if !ok {
			continue
		}
		if !found || better(n, best) {
			best = n
			found = true
		}
	}
	return best
}
