package main

import (
	"io"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/cli"
	"tabula-hq/formula/pkg/formula/functions"
)

var functionsFlags struct {
	category string
}

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the available functions",
	Long: `List the functions formulas may call, with their category and syntax.

Examples:
  formulacalc functions
  formulacalc functions --category text -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFunctions(functions.NewDefaultRegistry(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(functionsCmd)

	functionsCmd.Flags().StringVar(&functionsFlags.category, "category", "", "only list one category (text, math, logic, date, lookup, validation, custom)")
}

// functionInfo is the JSON form of a function definition.
type functionInfo struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Syntax      string `json:"syntax"`
	Description string `json:"description"`
}

func runFunctions(registry *functions.Registry, w io.Writer) error {
	f, err := formatter()
	if err != nil {
		return err
	}

	var defs []*functions.Definition
	if functionsFlags.category != "" {
		defs = registry.GetByCategory(functions.Category(functionsFlags.category))
		if len(defs) == 0 {
			return cli.NewConfigError("category", "no functions in category "+functionsFlags.category)
		}
	} else {
		for _, c := range functions.Categories {
			defs = append(defs, registry.GetByCategory(c)...)
		}
	}

	if _, ok := f.(*cli.JSONFormatter); ok {
		infos := make([]functionInfo, len(defs))
		for i, d := range defs {
			infos[i] = functionInfo{Name: d.Name, Category: string(d.Category), Syntax: d.Syntax, Description: d.Description}
		}
		return f.FormatTo(w, infos)
	}

	table := &cli.Table{Headers: []string{"name", "category", "syntax", "description"}}
	for _, d := range defs {
		table.Append(d.Name, d.Category, d.Syntax, d.Description)
	}
	return f.FormatTo(w, table)
}
