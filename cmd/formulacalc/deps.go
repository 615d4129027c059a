package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/cli"
)

var depsFlags struct {
	schemaPath string
}

var depsCmd = &cobra.Command{
	Use:   "deps [EXPRESSION]",
	Short: "Show column dependencies",
	Long: `Show the columns an expression reads, or, without an expression, the
formula columns of the schema in calculation order with their level,
dependencies and dependents.

Examples:
  formulacalc deps 'IF(budget > 1000, score * 2, score)'
  formulacalc deps --schema columns.yaml -o csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			return runExpressionDeps(a, args[0], cmd.OutOrStdout())
		}
		return runSchemaDeps(cmd, a, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().StringVar(&depsFlags.schemaPath, "schema", "", "column schema file or directory (default from config)")
}

func runExpressionDeps(a *app, expression string, w io.Writer) error {
	deps, err := a.eng.GetDependencies(expression)
	if err != nil {
		return err
	}
	f, err := formatter()
	if err != nil {
		return err
	}

	table := &cli.Table{Headers: []string{"column"}}
	for _, d := range deps {
		table.Append(d)
	}
	if _, ok := f.(*cli.JSONFormatter); ok {
		if deps == nil {
			deps = []string{}
		}
		return f.FormatTo(w, deps)
	}
	return f.FormatTo(w, table)
}

func runSchemaDeps(cmd *cobra.Command, a *app, w io.Writer) error {
	if _, err := a.loadSchema(cmd.Context(), a.schemaPath(depsFlags.schemaPath)); err != nil {
		printFormulaErrors(cmd.ErrOrStderr(), err)
		return err
	}
	f, err := formatter()
	if err != nil {
		return err
	}

	g := a.eng.Graph()
	table := &cli.Table{Headers: []string{"column", "level", "depends_on", "dependents"}}
	for _, id := range g.FormulaColumns() {
		table.Append(id, g.Level(id), strings.Join(g.Dependencies(id), ", "), strings.Join(g.Dependents(id), ", "))
	}
	return f.FormatTo(w, table)
}
