package schema

import (
	"strings"
)

// ResultType is the declared type of a formula column's computed value.
type ResultType string

const (
	ResultTypeText    ResultType = "text"
	ResultTypeNumber  ResultType = "number"
	ResultTypeBoolean ResultType = "boolean"
	ResultTypeDate    ResultType = "date"
	ResultTypeAny     ResultType = "any"
)

// Formula is the formula definition attached to a derived column.
type Formula struct {
	// Expression is the user-authored formula text (e.g. `CONCAT(firstName, " ", lastName)`).
	Expression string `yaml:"expression" json:"expression"`

	// Dependencies are the column ids the author declared this formula reads.
	// Identifiers extracted from Expression are added to these by the dependency graph.
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// ResultType is the declared type of the computed value.
	ResultType ResultType `yaml:"result_type,omitempty" json:"resultType,omitempty"`
}

// Column is one entry of the column schema.
type Column struct {
	// ID is the unique column identifier.
	ID string `yaml:"id" json:"id"`

	// Key is the field key used to read and write the value on a record.
	Key string `yaml:"key" json:"key"`

	// Name is the human-readable column name.
	Name string `yaml:"name" json:"name"`

	// Type is the storage type of the column ("text", "number", ...).
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Formula is set for derived columns.
	Formula *Formula `yaml:"formula,omitempty" json:"formula,omitempty"`
}

// HasFormula returns true if the column is derived from an expression.
func (c *Column) HasFormula() bool {
	return c.Formula != nil && strings.TrimSpace(c.Formula.Expression) != ""
}

// FieldKey returns the key under which the column value is stored on a record.
// It falls back to the id when no key is configured.
func (c *Column) FieldKey() string {
	if c.Key != "" {
		return c.Key
	}
	return c.ID
}

// Matches reports whether ref names this column by id, key or name.
func (c *Column) Matches(ref string) bool {
	return ref == c.ID || ref == c.Key || (c.Name != "" && ref == c.Name)
}

// FindColumn returns the first column matching ref by id, key or name.
func FindColumn(columns []Column, ref string) (*Column, bool) {
	for i := range columns {
		if columns[i].Matches(ref) {
			return &columns[i], true
		}
	}
	return nil, false
}

// Record is one row of the dataset: named fields plus an open extension map
// keyed by column key.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
	Custom map[string]any `json:"custom,omitempty"`
}

// Lookup resolves key against the named fields first, then the extension map.
func (r *Record) Lookup(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	if v, ok := r.Fields[key]; ok {
		return v, true
	}
	if v, ok := r.Custom[key]; ok {
		return v, true
	}
	return nil, false
}

// LookupFold is like Lookup but matches keys case-insensitively.
// It is used by heuristics that read loosely named fields.
func (r *Record) LookupFold(key string) (any, bool) {
	if v, ok := r.Lookup(key); ok {
		return v, true
	}
	if r == nil {
		return nil, false
	}
	for k, v := range r.Fields {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	for k, v := range r.Custom {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Set stores a computed value in the extension map under key.
func (r *Record) Set(key string, value any) {
	if r.Custom == nil {
		r.Custom = make(map[string]any)
	}
	r.Custom[key] = value
}

// Clone returns a copy of the record whose maps can be modified independently.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{ID: r.ID}
	if r.Fields != nil {
		c.Fields = make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			c.Fields[k] = v
		}
	}
	if r.Custom != nil {
		c.Custom = make(map[string]any, len(r.Custom))
		for k, v := range r.Custom {
			c.Custom[k] = v
		}
	}
	return c
}

// Context is the read-only input of one evaluation: the record being
// evaluated, the column schema and, for cross-record functions, the record set.
type Context struct {
	Record  *Record   `json:"record"`
	Columns []Column  `json:"columns,omitempty"`
	Records []*Record `json:"records,omitempty"`
}

// RecordID returns the id of the record under evaluation, or "" if none.
func (c *Context) RecordID() string {
	if c == nil || c.Record == nil {
		return ""
	}
	return c.Record.ID
}

// Column returns the schema column matching ref.
func (c *Context) Column(ref string) (*Column, bool) {
	if c == nil {
		return nil, false
	}
	return FindColumn(c.Columns, ref)
}

// ColumnKeys returns every referenceable key of the schema, used for
// "did you mean" suggestions.
func (c *Context) ColumnKeys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Columns))
	for i := range c.Columns {
		keys = append(keys, c.Columns[i].FieldKey())
	}
	return keys
}
