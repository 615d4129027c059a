// Package functions provides the function registry and the built-in
// function library of the formula language.
//
// # Registry
//
// Functions are looked up case-insensitively by name:
//
//	reg := functions.NewDefaultRegistry()
//	def, ok := reg.Get("concat")
//
// Custom functions are added with Register, which replaces any existing
// function of the same name:
//
//	reg.Register(&functions.Definition{
//	    Name:     "DOUBLE",
//	    Category: functions.CategoryCustom,
//	    MinArgs:  1,
//	    MaxArgs:  1,
//	    Execute: func(args []any, _ *schema.Context) (any, error) {
//	        n, _ := functions.ToNumber(args[0])
//	        return n * 2, nil
//	    },
//	})
//
// Execute receives evaluated arguments. The evaluator checks arity against
// MinArgs and MaxArgs before calling it, so an implementation may index
// args up to MinArgs-1 without checking.
//
// # Values
//
// Formula values are float64, string, bool, time.Time or nil. Normalize maps
// other numeric types produced by record sources onto this model, and
// ToNumber, ToText, Truthy, IsBlank, ToTime and Equal implement the
// coercions shared with the evaluator's operators.
//
// # Built-ins
//
//	text        CONCAT UPPER LOWER TRIM LEFT RIGHT MID FIND LEN SUBSTITUTE PROPER
//	math        SUM AVERAGE ROUND MIN MAX ABS COUNT
//	logic       IF IFERROR ISBLANK AND OR NOT
//	date        NOW TODAY YEAR MONTH DAY DATEDIFF
//	lookup      LOOKUP COUNTIF
//	validation  ISEMAIL ISPHONE ISURL ISNUMBER
//	custom      LEAD_SCORE
//
// Lookup functions read Context.Records and take column names as text:
//
//	LOOKUP("companyId", companyId, "name")
package functions
