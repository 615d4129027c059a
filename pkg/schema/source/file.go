package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"tabula-hq/formula/pkg/schema"
)

// document is the YAML layout of a schema file.
type document struct {
	Columns []schema.Column `yaml:"columns"`
}

// FileSource loads a column schema from a YAML file, or from every .yaml
// and .yml file of a directory in lexical order.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a source for path.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "schema.source"),
	}
}

// Path returns the configured path.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and parses the schema.
func (s *FileSource) Load(ctx context.Context) ([]schema.Column, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	files := []string{s.path}
	if info.IsDir() {
		files, err = schemaFiles(s.path)
		if err != nil {
			return nil, err
		}
	}

	var columns []schema.Column
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", file, err)
		}
		cols, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		columns = append(columns, cols...)
	}

	if err := validateColumns(columns); err != nil {
		return nil, err
	}

	s.logger.Info("loaded column schema",
		"path", s.path,
		"files", len(files),
		"columns", len(columns),
	)
	return columns, nil
}

// Parse decodes one schema document. Unknown keys are rejected.
func Parse(data []byte) ([]schema.Column, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid schema YAML: %w", err)
	}
	return doc.Columns, nil
}

// validateColumns checks that every column has an id or key and that ids
// are unique.
func validateColumns(columns []schema.Column) error {
	seen := make(map[string]bool, len(columns))
	for i := range columns {
		c := &columns[i]
		id := c.ID
		if id == "" {
			id = c.Key
		}
		if id == "" {
			return fmt.Errorf("column %d: id or key is required", i+1)
		}
		if seen[id] {
			return fmt.Errorf("duplicate column id %q", id)
		}
		seen[id] = true
		if c.Formula != nil && strings.TrimSpace(c.Formula.Expression) == "" {
			return fmt.Errorf("column %q: formula expression is empty", id)
		}
	}
	return nil
}

// schemaFiles lists the YAML files of dir, skipping hidden entries.
func schemaFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && isSchemaFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
