package functions

import (
	"time"

	"tabula-hq/formula/pkg/schema"
)

// Clock returns the current time. Tests replace it to freeze NOW and TODAY.
var Clock = time.Now

func dateFunctions() []*Definition {
	return []*Definition{
		{
			Name:        "NOW",
			Category:    CategoryDate,
			MinArgs:     0,
			MaxArgs:     0,
			Description: "Returns the current date and time",
			Syntax:      "NOW()",
			Execute: func(_ []any, _ *schema.Context) (any, error) {
				return Clock(), nil
			},
		},
		{
			Name:        "TODAY",
			Category:    CategoryDate,
			MinArgs:     0,
			MaxArgs:     0,
			Description: "Returns today's date at local midnight",
			Syntax:      "TODAY()",
			Execute: func(_ []any, _ *schema.Context) (any, error) {
				return midnight(Clock()), nil
			},
		},
		{
			Name:        "YEAR",
			Category:    CategoryDate,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Returns the year of a date",
			Syntax:      "YEAR(date)",
			Execute:     datePart("YEAR", func(t time.Time) int { return t.Year() }),
		},
		{
			Name:        "MONTH",
			Category:    CategoryDate,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Returns the month (1-12) of a date",
			Syntax:      "MONTH(date)",
			Execute:     datePart("MONTH", func(t time.Time) int { return int(t.Month()) }),
		},
		{
			Name:        "DAY",
			Category:    CategoryDate,
			MinArgs:     1,
			MaxArgs:     1,
			Description: "Returns the day of the month of a date",
			Syntax:      "DAY(date)",
			Execute:     datePart("DAY", func(t time.Time) int { return t.Day() }),
		},
		{
			Name:        "DATEDIFF",
			Category:    CategoryDate,
			MinArgs:     2,
			MaxArgs:     2,
			Description: "Returns the number of whole days from start to end",
			Syntax:      "DATEDIFF(start, end)",
			Execute:     dateDiff,
		},
	}
}

func midnight(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
}

func datePart(fn string, part func(time.Time) int) ExecuteFunc {
	return func(args []any, _ *schema.Context) (any, error) {
		if IsBlank(args[0]) {
			return nil, nil
		}
		t, err := timeArg(fn, args, 0)
		if err != nil {
			return nil, err
		}
		return float64(part(t)), nil
	}
}

func dateDiff(args []any, _ *schema.Context) (any, error) {
	start, err := timeArg("DATEDIFF", args, 0)
	if err != nil {
		return nil, err
	}
	end, err := timeArg("DATEDIFF", args, 1)
	if err != nil {
		return nil, err
	}
	return float64(int64(end.Sub(start) / (24 * time.Hour))), nil
}
