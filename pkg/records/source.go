package records

import (
	"context"
	"fmt"
	"log/slog"

	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/schema"
)

// Backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// DefaultIDField is the field that holds the record id.
const DefaultIDField = "id"

// Source reads the records a batch is calculated over.
type Source interface {
	// Load returns every record of the source in source order.
	Load(ctx context.Context) ([]*schema.Record, error)

	// Close releases the resources held by the source.
	Close() error
}

// SourceError reports a failure of a record source.
type SourceError struct {
	Backend   string // "json" or "sqlite"
	Operation string // "open", "read", "decode", "query", "scan"
	Cause     error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("record source error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SourceError) Unwrap() error {
	return e.Cause
}

func newSourceError(backend, operation string, cause error) *SourceError {
	return &SourceError{Backend: backend, Operation: operation, Cause: cause}
}

// Open creates the source selected by cfg.Backend.
func Open(cfg config.RecordsConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Backend {
	case BackendJSON, "":
		return NewJSONSource(cfg.Path, cfg.IDColumn, logger), nil
	case BackendSQLite:
		return NewSQLiteSource(&SQLiteConfig{
			Path:     cfg.Path,
			Table:    cfg.Table,
			IDColumn: cfg.IDColumn,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown records backend %q", cfg.Backend)
	}
}
