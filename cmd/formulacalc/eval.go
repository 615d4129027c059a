package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/cli"
	"tabula-hq/formula/pkg/records"
	"tabula-hq/formula/pkg/schema"
)

var evalFlags struct {
	set        []string
	recordFile string
	schemaPath string
}

var evalCmd = &cobra.Command{
	Use:   "eval EXPRESSION",
	Short: "Evaluate one expression",
	Long: `Evaluate one expression against a single record.

Field values come from --set key=value pairs and from the first object of a
JSON record file. Values given with --set are read as numbers or booleans
when they look like one.

Examples:
  formulacalc eval 'ROUND(budget * 1.2, 2)' --set budget=1000
  formulacalc eval 'CONCAT(firstName, " ", lastName)' --record lead.json
  formulacalc eval 'LEAD_SCORE()' --record lead.json --schema columns.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()
		return runEval(cmd, a, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringArrayVar(&evalFlags.set, "set", nil, "field value as key=value (repeatable)")
	evalCmd.Flags().StringVar(&evalFlags.recordFile, "record", "", "JSON file holding the record")
	evalCmd.Flags().StringVar(&evalFlags.schemaPath, "schema", "", "column schema used to resolve column names")
}

// evalResult is the JSON form of an evaluation.
type evalResult struct {
	Expression string `json:"expression"`
	Value      any    `json:"value"`
	Type       string `json:"type"`
}

func runEval(cmd *cobra.Command, a *app, expression string, w io.Writer) error {
	record := &schema.Record{ID: "eval"}
	if evalFlags.recordFile != "" {
		f, err := os.Open(evalFlags.recordFile)
		if err != nil {
			return fmt.Errorf("failed to open record file: %w", err)
		}
		defer f.Close()

		recs, err := records.Decode(f, a.cfg.Records.IDColumn)
		if err != nil {
			return err
		}
		if len(recs) > 0 {
			record = recs[0]
		}
	}

	for _, kv := range evalFlags.set {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return cli.NewConfigError("set", fmt.Sprintf("%q is not key=value", kv))
		}
		if record.Fields == nil {
			record.Fields = make(map[string]any)
		}
		record.Fields[strings.TrimSpace(key)] = parseValue(value)
	}

	cctx := &schema.Context{Record: record}
	if evalFlags.schemaPath != "" {
		columns, err := a.loadSchema(cmd.Context(), evalFlags.schemaPath)
		if err != nil {
			return err
		}
		cctx.Columns = columns
	}

	value, err := a.eng.Evaluate(expression, cctx)
	if err != nil {
		return err
	}

	f, err := formatter()
	if err != nil {
		return err
	}
	if _, ok := f.(*cli.TextFormatter); ok {
		return f.FormatTo(w, displayValue(value))
	}
	return f.FormatTo(w, evalResult{Expression: expression, Value: value, Type: typeName(value)})
}

// parseValue reads a --set value as a number or boolean when possible.
func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func displayValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "<null>"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case float64:
		return "number"
	case string:
		return "text"
	case bool:
		return "boolean"
	case time.Time:
		return "date"
	default:
		return fmt.Sprintf("%T", v)
	}
}
