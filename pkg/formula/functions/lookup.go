package functions

import (
	"tabula-hq/formula/pkg/schema"
)

func lookupFunctions() []*Definition {
	return []*Definition{
		{
			Name:        "LOOKUP",
			Category:    CategoryLookup,
			MinArgs:     3,
			MaxArgs:     3,
			Description: "Returns returnColumn of the first record whose matchColumn equals value",
			Syntax:      `LOOKUP("matchColumn", value, "returnColumn")`,
			Execute:     lookup,
			ColumnArgs:  []int{0, 2},
		},
		{
			Name:        "COUNTIF",
			Category:    CategoryLookup,
			MinArgs:     2,
			MaxArgs:     2,
			Description: "Counts the records whose column equals value",
			Syntax:      `COUNTIF("column", value)`,
			Execute:     countIf,
			ColumnArgs:  []int{0},
		},
	}
}

// fieldKey maps a column name argument to the record key it is stored under.
func fieldKey(ctx *schema.Context, ref any) string {
	name := ToText(ref)
	if col, ok := ctx.Column(name); ok {
		return col.FieldKey()
	}
	return name
}

func lookup(args []any, ctx *schema.Context) (any, error) {
	if ctx == nil {
		return nil, nil
	}
	matchKey := fieldKey(ctx, args[0])
	returnKey := fieldKey(ctx, args[2])

	for _, rec := range ctx.Records {
		v, ok := rec.Lookup(matchKey)
		if !ok || !Equal(v, args[1]) {
			continue
		}
		out, _ := rec.Lookup(returnKey)
		return Normalize(out), nil
	}
	return nil, nil
}

func countIf(args []any, ctx *schema.Context) (any, error) {
	if ctx == nil {
		return 0.0, nil
	}
	key := fieldKey(ctx, args[0])

	count := 0
	for _, rec := range ctx.Records {
		v, _ := rec.Lookup(key)
		if Equal(v, args[1]) {
			count++
		}
	}
	return float64(count), nil
}
