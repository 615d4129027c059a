package functions

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/schema"
)

// Category groups functions for enumeration.
type Category string

const (
	CategoryText       Category = "text"
	CategoryMath       Category = "math"
	CategoryLogic      Category = "logic"
	CategoryDate       Category = "date"
	CategoryLookup     Category = "lookup"
	CategoryValidation Category = "validation"
	CategoryCustom     Category = "custom"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryText,
	CategoryMath,
	CategoryLogic,
	CategoryDate,
	CategoryLookup,
	CategoryValidation,
	CategoryCustom,
}

// Variadic as MaxArgs means the function accepts any number of arguments.
const Variadic = -1

// ExecuteFunc implements a function over already-evaluated arguments.
// It must not modify args or ctx.
type ExecuteFunc func(args []any, ctx *schema.Context) (any, error)

// Definition describes a registered function.
type Definition struct {
	Name        string
	Category    Category
	MinArgs     int
	MaxArgs     int // Variadic for no upper bound
	Description string
	Syntax      string
	Execute     ExecuteFunc

	// ColumnArgs lists the positions of arguments that name a column as
	// text, such as the match and return columns of LOOKUP. Dependency
	// analysis treats literal text at these positions as a column
	// reference.
	ColumnArgs []int
}

// CheckArity returns a syntax error if n arguments are not acceptable.
func (d *Definition) CheckArity(n int) error {
	if n < d.MinArgs || (d.MaxArgs != Variadic && n > d.MaxArgs) {
		return &ferrors.FormulaError{
			Kind:       ferrors.KindSyntax,
			Message:    fmt.Sprintf("%s expects %s, got %d", d.Name, d.arityText(), n),
			Suggestion: d.Syntax,
		}
	}
	return nil
}

func (d *Definition) arityText() string {
	plural := func(n int) string {
		if n == 1 {
			return "1 argument"
		}
		return fmt.Sprintf("%d arguments", n)
	}
	switch {
	case d.MaxArgs == Variadic:
		return "at least " + plural(d.MinArgs)
	case d.MinArgs == d.MaxArgs:
		return plural(d.MinArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", d.MinArgs, d.MaxArgs)
	}
}

// Registry maps upper-case function names to definitions.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]*Definition),
	}
}

// NewDefaultRegistry creates a registry holding every built-in function.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range Builtins() {
		if err := r.Register(def); err != nil {
			panic(fmt.Sprintf("functions: invalid built-in %s: %v", def.Name, err))
		}
	}
	return r
}

// Register inserts def, replacing any function of the same name.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("definition cannot be nil")
	}
	name := strings.ToUpper(strings.TrimSpace(def.Name))
	if name == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	if def.Execute == nil {
		return fmt.Errorf("function %s has no implementation", name)
	}
	if def.MinArgs < 0 {
		return fmt.Errorf("function %s: min args cannot be negative", name)
	}
	if def.MaxArgs != Variadic && def.MaxArgs < def.MinArgs {
		return fmt.Errorf("function %s: max args %d is less than min args %d", name, def.MaxArgs, def.MinArgs)
	}

	stored := *def
	stored.Name = name
	if stored.Category == "" {
		stored.Category = CategoryCustom
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = &stored
	return nil
}

// Get returns the function registered under name, case-insensitively.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.functions[strings.ToUpper(name)]
	return def, ok
}

// GetAll returns every registered function sorted by name.
func (r *Registry) GetAll() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.functions))
	for _, def := range r.functions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// GetByCategory returns the functions of one category sorted by name.
func (r *Registry) GetByCategory(category Category) []*Definition {
	var defs []*Definition
	for _, def := range r.GetAll() {
		if def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}

// Names returns the sorted names of all registered functions.
func (r *Registry) Names() []string {
	defs := r.GetAll()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}

// Builtins returns fresh definitions of every built-in function.
func Builtins() []*Definition {
	var defs []*Definition
	defs = append(defs, textFunctions()...)
	defs = append(defs, mathFunctions()...)
	defs = append(defs, logicFunctions()...)
	defs = append(defs, dateFunctions()...)
	defs = append(defs, lookupFunctions()...)
	defs = append(defs, validationFunctions()...)
	defs = append(defs, customFunctions()...)
	return defs
}
