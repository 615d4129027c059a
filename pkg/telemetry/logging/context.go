package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// BatchIDKey is the context key for batch ids.
	BatchIDKey contextKey = "batch_id"

	// RecordIDKey is the context key for record ids.
	RecordIDKey contextKey = "record_id"

	// ColumnIDKey is the context key for column ids.
	ColumnIDKey contextKey = "column_id"

	loggerKey contextKey = "logger"
)

// WithBatchID adds a batch id to the context.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

// GetBatchID retrieves the batch id from the context.
func GetBatchID(ctx context.Context) string {
	if v, ok := ctx.Value(BatchIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRecordID adds a record id to the context.
func WithRecordID(ctx context.Context, recordID string) context.Context {
	return context.WithValue(ctx, RecordIDKey, recordID)
}

// GetRecordID retrieves the record id from the context.
func GetRecordID(ctx context.Context) string {
	if v, ok := ctx.Value(RecordIDKey).(string); ok {
		return v
	}
	return ""
}

// WithColumnID adds a column id to the context.
func WithColumnID(ctx context.Context, columnID string) context.Context {
	return context.WithValue(ctx, ColumnIDKey, columnID)
}

// GetColumnID retrieves the column id from the context.
func GetColumnID(ctx context.Context) string {
	if v, ok := ctx.Value(ColumnIDKey).(string); ok {
		return v
	}
	return ""
}

// WithLogger stores logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx (or slog.Default()) with
// the batch, record and column ids of ctx attached.
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || logger == nil {
		logger = slog.Default()
	}
	if fields := extractContextFields(ctx); len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

// extractContextFields returns the context ids as key-value pairs suitable
// for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if batchID := GetBatchID(ctx); batchID != "" {
		fields = append(fields, "batch_id", batchID)
	}
	if recordID := GetRecordID(ctx); recordID != "" {
		fields = append(fields, "record_id", recordID)
	}
	if columnID := GetColumnID(ctx); columnID != "" {
		fields = append(fields, "column_id", columnID)
	}

	return fields
}
