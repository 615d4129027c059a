// Package schema defines the data model the formula engine computes over:
// columns (optionally carrying a formula), records and the evaluation context.
//
// A record holds named fields and an open extension map keyed by column key.
// Derived values are written to the extension map, so a later formula can
// reference an earlier derived column by its key:
//
//	rec := &schema.Record{
//	    ID:     "contact-1",
//	    Fields: map[string]any{"firstName": "John", "lastName": "Doe"},
//	}
//	rec.Set("fullName", "John Doe")
//	v, _ := rec.Lookup("fullName") // "John Doe"
package schema
