package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output. Only tables can be written as CSV.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (want text, json or csv)", s))
	}
}

// Table is a tabular command result.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Append adds a row. Values are formatted with %v.
func (t *Table) Append(values ...any) {
	row := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		row[i] = fmt.Sprint(v)
	}
	t.Rows = append(t.Rows, row)
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter formats output as plain text. Tables are aligned in columns.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := data.(*Table)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(table.Headers) > 0 {
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(table.Headers, "\t")))
	}
	for _, row := range table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats tables as CSV.
type CSVFormatter struct{}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := data.(*Table)
	if !ok {
		return fmt.Errorf("csv output needs a table, got %T", data)
	}

	csvWriter := csv.NewWriter(w)
	if len(table.Headers) > 0 {
		if err := csvWriter.Write(table.Headers); err != nil {
			return err
		}
	}
	if err := csvWriter.WriteAll(table.Rows); err != nil {
		return err
	}
	return csvWriter.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
