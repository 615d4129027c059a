package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"tabula-hq/formula/pkg/schema"
)

// customField holds the extension map in the JSON record format.
const customField = "custom"

// JSONSource reads records from a JSON file holding an array of objects.
// The id field becomes the record id, a "custom" object becomes the
// extension map and every other key is a named field.
type JSONSource struct {
	path    string
	idField string
	logger  *slog.Logger
}

// NewJSONSource creates a source for the file at path. An empty idField
// means DefaultIDField.
func NewJSONSource(path, idField string, logger *slog.Logger) *JSONSource {
	if idField == "" {
		idField = DefaultIDField
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONSource{
		path:    path,
		idField: idField,
		logger:  logger.With("component", "records.json"),
	}
}

// Load implements Source.
func (s *JSONSource) Load(ctx context.Context) ([]*schema.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, newSourceError(BackendJSON, "open", err)
	}
	defer f.Close()

	records, err := Decode(f, s.idField)
	if err != nil {
		return nil, newSourceError(BackendJSON, "decode", fmt.Errorf("%s: %w", s.path, err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("records loaded", "path", s.path, "count", len(records))
	return records, nil
}

// Close implements Source.
func (s *JSONSource) Close() error {
	return nil
}

// Decode reads a JSON array of record objects.
func Decode(r io.Reader, idField string) ([]*schema.Record, error) {
	if idField == "" {
		idField = DefaultIDField
	}

	var raw []map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	records := make([]*schema.Record, 0, len(raw))
	for i, obj := range raw {
		rec := &schema.Record{Fields: make(map[string]any, len(obj))}
		for k, v := range obj {
			switch k {
			case idField:
				id, err := idString(v)
				if err != nil {
					return nil, fmt.Errorf("record %d: %w", i, err)
				}
				rec.ID = id
			case customField:
				custom, ok := v.(map[string]any)
				if !ok && v != nil {
					return nil, fmt.Errorf("record %d: %q must be an object", i, customField)
				}
				rec.Custom = custom
			default:
				rec.Fields[k] = v
			}
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(i + 1)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Encode writes records in the format Decode reads. Computed values, which
// live in the extension map, are written under "custom".
func Encode(w io.Writer, records []*schema.Record, idField string) error {
	if idField == "" {
		idField = DefaultIDField
	}

	out := make([]map[string]any, len(records))
	for i, rec := range records {
		obj := make(map[string]any, len(rec.Fields)+2)
		for k, v := range rec.Fields {
			obj[k] = v
		}
		obj[idField] = rec.ID
		if len(rec.Custom) > 0 {
			obj[customField] = rec.Custom
		}
		out[i] = obj
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func idString(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported id type %T", v)
	}
}
