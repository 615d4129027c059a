package errors

import (
	"fmt"
	"strings"

	"tabula-hq/formula/pkg/formula/ast"
)

// Kind categorizes a formula error.
type Kind string

const (
	KindSyntax           Kind = "syntax"             // Malformed expression or wrong arity
	KindReference        Kind = "reference"          // Unknown column
	KindCircular         Kind = "circular"           // Schema-level dependency cycle
	KindType             Kind = "type"               // Operand unusable for operator or function
	KindDivisionByZero   Kind = "division_by_zero"   // Divisor evaluated to exactly 0
	KindFunctionNotFound Kind = "function_not_found" // Unknown function name
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrSyntax           = &FormulaError{Kind: KindSyntax}
	ErrReference        = &FormulaError{Kind: KindReference}
	ErrCircular         = &FormulaError{Kind: KindCircular}
	ErrType             = &FormulaError{Kind: KindType}
	ErrDivisionByZero   = &FormulaError{Kind: KindDivisionByZero}
	ErrFunctionNotFound = &FormulaError{Kind: KindFunctionNotFound}
)

// FormulaError is the structured error produced by parsing, evaluation and
// schema validation.
type FormulaError struct {
	Kind       Kind    // Category of error
	Message    string  // Human-readable message
	Position   ast.Pos // Token position in the expression (optional)
	Column     string  // Column the error relates to (optional)
	Suggestion string  // Suggested fix (optional)
}

// Error implements the error interface.
func (e *FormulaError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Message))

	if e.Column != "" {
		sb.WriteString(fmt.Sprintf(" (column %q)", e.Column))
	}
	if e.Position.IsValid() {
		sb.WriteString(fmt.Sprintf(" at %s", e.Position))
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf(": %s", e.Suggestion))
	}

	return sb.String()
}

// Is reports whether target is a FormulaError of the same kind. A target
// with an empty Message matches any error of its kind, so the package
// sentinels work with errors.Is.
func (e *FormulaError) Is(target error) bool {
	t, ok := target.(*FormulaError)
	if !ok {
		return false
	}
	if t.Message == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithColumn returns a copy of the error attributed to column.
func (e *FormulaError) WithColumn(column string) *FormulaError {
	c := *e
	c.Column = column
	return &c
}

// New creates a FormulaError of the given kind.
func New(kind Kind, format string, args ...any) *FormulaError {
	return &FormulaError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewAt creates a FormulaError of the given kind at a position.
func NewAt(kind Kind, pos ast.Pos, format string, args ...any) *FormulaError {
	return &FormulaError{Kind: kind, Message: fmt.Sprintf(format, args...), Position: pos}
}

// KindOf returns the kind of err if it is (or wraps) a FormulaError.
func KindOf(err error) (Kind, bool) {
	var fe *FormulaError
	if As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// ErrorList collects several errors, for example one per invalid column
// when validating a whole schema.
type ErrorList struct {
	Errors []*FormulaError
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*FormulaError, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *FormulaError) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d error(s):", el.Count()))
	for _, err := range el.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (el *ErrorList) Unwrap() []error {
	errs := make([]error, len(el.Errors))
	for i, e := range el.Errors {
		errs[i] = e
	}
	return errs
}

// ToError returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByKind returns all errors of the given kind.
func (el *ErrorList) ByKind(kind Kind) []*FormulaError {
	var result []*FormulaError
	for _, err := range el.Errors {
		if err.Kind == kind {
			result = append(result, err)
		}
	}
	return result
}
