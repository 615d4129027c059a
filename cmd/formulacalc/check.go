package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/cli"
)

var checkFlags struct {
	schemaPath string
	column     string
	expression string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a column schema",
	Long: `Validate a column schema: every formula must parse, call only known
functions with the right number of arguments, and the schema must be free of
circular references. All problems are reported at once.

With --column and --expression, check whether giving that column the
expression would create a circular reference in the schema.

Examples:
  formulacalc check --schema columns.yaml
  formulacalc check --schema columns.yaml --column col_score --expression 'total * 2'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()
		return runCheck(cmd, a, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.schemaPath, "schema", "", "column schema file or directory (default from config)")
	checkCmd.Flags().StringVar(&checkFlags.column, "column", "", "column to give a new expression")
	checkCmd.Flags().StringVar(&checkFlags.expression, "expression", "", "candidate expression for --column")
}

func runCheck(cmd *cobra.Command, a *app, w io.Writer) error {
	path := a.schemaPath(checkFlags.schemaPath)
	columns, err := a.loadSchema(cmd.Context(), path)
	if err != nil {
		fmt.Fprintf(w, "✗ %s is invalid\n", path)
		printFormulaErrors(w, err)
		return err
	}

	formulas := 0
	for i := range columns {
		if columns[i].HasFormula() {
			formulas++
		}
	}
	fmt.Fprintf(w, "✓ %s is valid (%d columns, %d formulas)\n", path, len(columns), formulas)

	if checkFlags.column == "" && checkFlags.expression == "" {
		return nil
	}
	if checkFlags.column == "" || checkFlags.expression == "" {
		return cli.NewConfigError("column", "--column and --expression must be given together")
	}

	if a.eng.HasCircularDependency(checkFlags.column, checkFlags.expression, nil) {
		fmt.Fprintf(w, "✗ %s = %s would create a circular reference\n", checkFlags.column, checkFlags.expression)
		return fmt.Errorf("circular reference through %s", checkFlags.column)
	}
	fmt.Fprintf(w, "✓ %s = %s keeps the schema acyclic\n", checkFlags.column, checkFlags.expression)
	return nil
}
