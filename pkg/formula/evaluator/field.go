package evaluator

import (
	"fmt"
	"sort"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/schema"
)

// resolveColumn resolves a column reference against the record under
// evaluation: named fields first, then the extension map. A reference that
// names a schema column by id, key or name but has no value on the record
// resolves to blank.
func resolveColumn(ref *ast.ColumnRef, ctx *schema.Context) (any, error) {
	var rec *schema.Record
	if ctx != nil {
		rec = ctx.Record
	}

	if v, ok := rec.Lookup(ref.Name); ok {
		return functions.Normalize(v), nil
	}

	if col, ok := ctx.Column(ref.Name); ok {
		for _, key := range []string{col.FieldKey(), col.ID, col.Name} {
			if key == "" {
				continue
			}
			if v, ok := rec.Lookup(key); ok {
				return functions.Normalize(v), nil
			}
		}
		return nil, nil
	}

	return nil, &ferrors.FormulaError{
		Kind:       ferrors.KindReference,
		Message:    fmt.Sprintf("unknown column %q", ref.Name),
		Position:   ref.Pos,
		Suggestion: ferrors.SuggestColumnName(ref.Name, knownKeys(ctx)),
	}
}

// knownKeys lists the schema keys followed by the record's own field keys.
func knownKeys(ctx *schema.Context) []string {
	keys := ctx.ColumnKeys()
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}

	if ctx == nil || ctx.Record == nil {
		return keys
	}

	var extra []string
	for _, m := range []map[string]any{ctx.Record.Fields, ctx.Record.Custom} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}
